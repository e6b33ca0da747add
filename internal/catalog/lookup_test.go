// SPDX-License-Identifier: MIT

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BBC One", "bbc one"},
		{"  BBC   One  ", "bbc one"},
		{"BBC One (1080p)", "bbc one"},
		{"BBC One (720p) (Geo-blocked)", "bbc one"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NameKey(tt.in), tt.in)
	}
}

func TestLookupExactAndPrefix(t *testing.T) {
	channels := []ChannelRecord{
		{ID: "c1", Name: "BBC One"},
		{ID: "c2", Name: "BBC Two"},
		{ID: "c3", Name: "Eurosport"},
	}

	got, ok := Lookup(channels, "bbc one")
	assert.True(t, ok)
	assert.Equal(t, "c1", got.ID)

	got, ok = Lookup(channels, "BBC One (1080p)")
	assert.True(t, ok)
	assert.Equal(t, "c1", got.ID)

	got, ok = Lookup(channels, "euro")
	assert.True(t, ok, "unique prefix resolves")
	assert.Equal(t, "c3", got.ID)

	_, ok = Lookup(channels, "bbc")
	assert.False(t, ok, "ambiguous prefix must not resolve")

	_, ok = Lookup(channels, "cnn")
	assert.False(t, ok)

	_, ok = Lookup(channels, "")
	assert.False(t, ok)
}
