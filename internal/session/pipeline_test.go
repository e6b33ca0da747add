// SPDX-License-Identifier: MIT

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgsPassthrough(t *testing.T) {
	args := buildArgs(StreamConfig{}, "http://host/stream")

	assert.Contains(t, args, "copy")
	assert.NotContains(t, args, "-re")
	assert.NotContains(t, args, "libx264")
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestBuildArgsTranscode(t *testing.T) {
	args := buildArgs(StreamConfig{Transcode: true, BitrateKbps: 3000}, "http://host/stream")

	assert.Contains(t, args, "libx264")
	assert.Contains(t, args, "3000k")
	assert.Contains(t, args, "6000k", "bufsize is twice the bitrate")
	assert.NotContains(t, args, "zerolatency")
}

func TestBuildArgsLowLatency(t *testing.T) {
	args := buildArgs(StreamConfig{Transcode: true, LowLatency: true}, "http://host/stream")

	assert.Contains(t, args, "zerolatency")
	assert.Contains(t, args, "4500k", "default bitrate applies when unset")
}

func TestBuildArgsLiveHLSInputFlags(t *testing.T) {
	args := buildArgs(StreamConfig{}, "http://host/live/index.m3u8")

	assert.Contains(t, args, "-re")
	assert.Contains(t, args, "-live_start_index")
}

func TestIsLiveHLS(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://host/live/index.m3u8", true},
		{"http://host/live/index.m3u8?token=abc", true},
		{"http://host/live/index.m3u8#frag", true},
		{"http://host/stream.ts", false},
		{"http://host/stream", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, isLiveHLS(tc.url), tc.url)
	}
}

func TestLineRingKeepsTail(t *testing.T) {
	r := newLineRing(3)
	for _, line := range []string{"a", "b", "c", "d"} {
		_, _ = r.Write([]byte(line + "\n"))
	}

	assert.Equal(t, []string{"b", "c", "d"}, r.lastN(3))
	assert.Equal(t, []string{"d"}, r.lastN(1))
}
