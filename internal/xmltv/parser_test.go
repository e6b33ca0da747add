// SPDX-License-Identifier: MIT

package xmltv

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGuide = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="bbc1">
    <display-name>101</display-name>
    <display-name>BBC One</display-name>
    <icon src="http://logo/bbc1.png"/>
  </channel>
  <channel id="itv">
    <display-name>ITV</display-name>
  </channel>
  <programme start="20240101120000 +0200" stop="20240101130000 +0200" channel="bbc1">
    <title>BBC One: News at Ten</title>
    <desc>Evening news.</desc>
    <category>News</category>
    <episode-num system="xmltv_ns">0.1.</episode-num>
  </programme>
  <programme start="20240101130000" stop="20240101140000" channel="itv">
    <title>Quiz Hour</title>
    <sub-title>Season opener</sub-title>
  </programme>
</tv>`

func TestParseSampleGuide(t *testing.T) {
	res, err := Parse(strings.NewReader(sampleGuide))
	require.NoError(t, err)
	require.Len(t, res.Channels, 2)
	require.Len(t, res.Programmes, 2)

	bbc := res.Channels[0]
	assert.Equal(t, "bbc1", bbc.ID)
	assert.Equal(t, "BBC One", bbc.Name, "non-numeric display-name wins")
	assert.Equal(t, 101, bbc.Number, "numeric display-name becomes channel number")
	assert.Equal(t, "http://logo/bbc1.png", bbc.Logo)

	p := res.Programmes[0]
	assert.Equal(t, "News at Ten", p.Title, "channel name prefix is stripped")
	assert.Equal(t, "Evening news.", p.Desc)
	assert.Equal(t, "News", p.Category)
	assert.Equal(t, 1, p.Season, "xmltv_ns is 0-based")
	assert.Equal(t, 2, p.Episode)

	q := res.Programmes[1]
	assert.Equal(t, "Quiz Hour", q.Title)
	assert.Equal(t, "Season opener", q.Subtitle)
	assert.Equal(t, 0, q.Season)
}

func TestParseTimeToUTC(t *testing.T) {
	got, err := ParseTime("20240101120000 +0200")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got)

	noZone, err := ParseTime("20240101120000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), noZone)

	_, err = ParseTime("not-a-time")
	assert.Error(t, err)
	_, err = ParseTime("")
	assert.Error(t, err)
}

func TestParseIsolatesMalformedProgramme(t *testing.T) {
	guide := `<tv>
  <channel id="c1"><display-name>One</display-name></channel>
  <programme start="garbage" stop="20240101140000" channel="c1">
    <title>Broken</title>
  </programme>
  <programme start="20240101130000" stop="20240101140000" channel="c1">
    <title>Fine</title>
  </programme>
</tv>`

	res, err := Parse(strings.NewReader(guide))
	require.NoError(t, err)
	require.Len(t, res.Programmes, 1)
	assert.Equal(t, "Fine", res.Programmes[0].Title)
}

func TestParseStartAfterStopRejected(t *testing.T) {
	guide := `<tv>
  <programme start="20240101150000" stop="20240101140000" channel="c1">
    <title>Backwards</title>
  </programme>
</tv>`
	res, err := Parse(strings.NewReader(guide))
	require.NoError(t, err)
	assert.Empty(t, res.Programmes)
}

func TestParseStartEqualsStopKept(t *testing.T) {
	guide := `<tv>
  <programme start="20240101140000" stop="20240101140000" channel="c1">
    <title>Zero Length</title>
  </programme>
</tv>`
	res, err := Parse(strings.NewReader(guide))
	require.NoError(t, err)
	require.Len(t, res.Programmes, 1)
}

func TestParseUnknownChannelRefKept(t *testing.T) {
	guide := `<tv>
  <programme start="20240101130000" stop="20240101140000" channel="ghost">
    <title>Orphan</title>
  </programme>
</tv>`
	res, err := Parse(strings.NewReader(guide))
	require.NoError(t, err)
	require.Len(t, res.Programmes, 1)
	assert.Equal(t, "ghost", res.Programmes[0].ChannelID)
}

func TestParseChannelWithoutIDSkipped(t *testing.T) {
	guide := `<tv>
  <channel><display-name>NoID</display-name></channel>
  <channel id="ok"><display-name>OK</display-name></channel>
</tv>`
	res, err := Parse(strings.NewReader(guide))
	require.NoError(t, err)
	require.Len(t, res.Channels, 1)
	assert.Equal(t, "ok", res.Channels[0].ID)
}

func TestParseNumericOnlyDisplayName(t *testing.T) {
	// With only a numeric display-name the channel keeps it as its name.
	guide := `<tv>
  <channel id="n1"><display-name>205</display-name></channel>
</tv>`
	res, err := Parse(strings.NewReader(guide))
	require.NoError(t, err)
	require.Len(t, res.Channels, 1)
	assert.Equal(t, "205", res.Channels[0].Name)
	assert.Equal(t, 205, res.Channels[0].Number)
}

func TestParseXMLTVNS(t *testing.T) {
	tests := []struct {
		in      string
		season  int
		episode int
		ok      bool
	}{
		{"0.1.", 1, 2, true},
		{"2.0.0", 3, 1, true},
		{"0/6.12/24.", 1, 13, true},
		{" . . ", 0, 0, false},
		{"nonsense", 0, 0, false},
	}
	for _, tt := range tests {
		s, e, ok := parseXMLTVNS(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if ok {
			assert.Equal(t, tt.season, s, tt.in)
			assert.Equal(t, tt.episode, e, tt.in)
		}
	}
}
