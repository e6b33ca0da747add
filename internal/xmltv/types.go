// SPDX-License-Identifier: MIT

// Package xmltv parses XMLTV guide documents.
package xmltv

import (
	"encoding/xml"
	"time"
)

// Channel is a guide channel after display-name disambiguation.
type Channel struct {
	ID     string
	Name   string
	Number int
	Logo   string
}

// Programme is one scheduled broadcast with UTC instants.
type Programme struct {
	ChannelID string
	Start     time.Time
	Stop      time.Time
	Title     string
	Subtitle  string
	Desc      string
	Category  string
	Season    int // 1-based, 0 when unknown
	Episode   int // 1-based, 0 when unknown
}

// Wire elements. Channels and programmes are decoded one element at a
// time so a malformed element never aborts the batch.

type channelElem struct {
	XMLName      xml.Name   `xml:"channel"`
	ID           string     `xml:"id,attr"`
	DisplayNames []string   `xml:"display-name"`
	Icon         *iconElem  `xml:"icon"`
}

type iconElem struct {
	Src string `xml:"src,attr"`
}

type programmeElem struct {
	XMLName  xml.Name      `xml:"programme"`
	Start    string        `xml:"start,attr"`
	Stop     string        `xml:"stop,attr"`
	Channel  string        `xml:"channel,attr"`
	Title    string        `xml:"title"`
	SubTitle string        `xml:"sub-title"`
	Desc     string        `xml:"desc"`
	Category string        `xml:"category"`
	Episodes []episodeElem `xml:"episode-num"`
}

type episodeElem struct {
	System string `xml:"system,attr"`
	Value  string `xml:",chardata"`
}
