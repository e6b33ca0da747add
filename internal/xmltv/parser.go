// SPDX-License-Identifier: MIT

package xmltv

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/relaycast/relaycast/internal/log"
)

// MaxDocSize bounds guide documents to prevent memory exhaustion.
const MaxDocSize = 50 * 1024 * 1024

// Result holds the parsed guide.
type Result struct {
	Channels   []Channel
	Programmes []Programme
}

// Parse walks the document element by element. Channels are parsed first
// so programme titles can be de-duplicated against channel display names.
// Malformed elements are logged and skipped; the batch always continues.
func Parse(r io.Reader) (*Result, error) {
	logger := log.WithComponent("xmltv")

	dec := xml.NewDecoder(io.LimitReader(r, MaxDocSize))
	dec.Strict = true
	// Disable entity expansion to prevent XXE.
	dec.Entity = make(map[string]string)

	res := &Result{}
	nameByID := make(map[string]string)
	var rawProgrammes []programmeElem

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmltv: decode: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "channel":
			var el channelElem
			if err := dec.DecodeElement(&el, &start); err != nil {
				skippedTotal.WithLabelValues("channel").Inc()
				logger.Warn().Err(err).Str("event", "xmltv.channel_skipped").
					Msg("malformed channel element, skipping")
				continue
			}
			ch, err := channelFromElem(el)
			if err != nil {
				skippedTotal.WithLabelValues("channel").Inc()
				logger.Warn().Err(err).Str("id", el.ID).
					Str("event", "xmltv.channel_skipped").Msg("invalid channel, skipping")
				continue
			}
			res.Channels = append(res.Channels, ch)
			nameByID[ch.ID] = ch.Name
		case "programme":
			var el programmeElem
			if err := dec.DecodeElement(&el, &start); err != nil {
				skippedTotal.WithLabelValues("programme").Inc()
				logger.Warn().Err(err).Str("event", "xmltv.programme_skipped").
					Msg("malformed programme element, skipping")
				continue
			}
			rawProgrammes = append(rawProgrammes, el)
		}
	}

	for _, el := range rawProgrammes {
		p, err := programmeFromElem(el, nameByID)
		if err != nil {
			skippedTotal.WithLabelValues("programme").Inc()
			logger.Warn().Err(err).Str("channel", el.Channel).Str("title", el.Title).
				Str("event", "xmltv.programme_skipped").Msg("invalid programme, skipping")
			continue
		}
		if _, known := nameByID[p.ChannelID]; !known {
			// Integrity warning only; the record is kept.
			logger.Debug().Str("channel", p.ChannelID).Str("title", p.Title).
				Str("event", "xmltv.unknown_channel_ref").
				Msg("programme references unknown channel")
		}
		res.Programmes = append(res.Programmes, p)
	}

	return res, nil
}

// channelFromElem disambiguates repeated display-name entries: a purely
// numeric one becomes the channel number, the first non-numeric one (or
// one superseding a numeric-looking default) becomes the display name.
func channelFromElem(el channelElem) (Channel, error) {
	if el.ID == "" {
		return Channel{}, errors.New("channel without id")
	}
	ch := Channel{ID: el.ID}
	if el.Icon != nil {
		ch.Logo = el.Icon.Src
	}
	for _, dn := range el.DisplayNames {
		dn = strings.TrimSpace(dn)
		if dn == "" {
			continue
		}
		if n, err := strconv.Atoi(dn); err == nil {
			if ch.Number == 0 {
				ch.Number = n
			}
			if ch.Name == "" {
				ch.Name = dn
			}
			continue
		}
		if ch.Name == "" || isNumericLike(ch.Name) {
			ch.Name = dn
		}
	}
	if ch.Name == "" {
		return Channel{}, errors.New("channel without display name")
	}
	return ch, nil
}

func isNumericLike(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}

func programmeFromElem(el programmeElem, nameByID map[string]string) (Programme, error) {
	start, err := ParseTime(el.Start)
	if err != nil {
		return Programme{}, fmt.Errorf("start: %w", err)
	}
	stop, err := ParseTime(el.Stop)
	if err != nil {
		return Programme{}, fmt.Errorf("stop: %w", err)
	}
	if start.After(stop) {
		return Programme{}, fmt.Errorf("start %s after stop %s", el.Start, el.Stop)
	}
	if start.Equal(stop) {
		logger := log.WithComponent("xmltv")
		logger.Warn().
			Str("channel", el.Channel).Str("title", el.Title).
			Str("event", "xmltv.degenerate_times").Msg("programme start equals stop")
	}

	p := Programme{
		ChannelID: el.Channel,
		Start:     start,
		Stop:      stop,
		Title:     strings.TrimSpace(el.Title),
		Subtitle:  strings.TrimSpace(el.SubTitle),
		Desc:      strings.TrimSpace(el.Desc),
		Category:  strings.TrimSpace(el.Category),
	}
	if p.Title == "" {
		return Programme{}, errors.New("programme without title")
	}

	// "BBC One: News at Ten" under channel BBC One duplicates the name.
	if name := nameByID[el.Channel]; name != "" {
		p.Title = strings.TrimPrefix(p.Title, name+": ")
	}

	for _, ep := range el.Episodes {
		if ep.System != "xmltv_ns" {
			continue
		}
		season, episode, ok := parseXMLTVNS(ep.Value)
		if ok {
			p.Season = season
			p.Episode = episode
			break
		}
	}

	return p, nil
}

// timeLayouts accepted for programme boundaries, most specific first.
var timeLayouts = []string{
	"20060102150405 -0700",
	"20060102150405",
}

// ParseTime parses the XMLTV timestamp `YYYYMMDDHHMMSS [±HHMM]` into a
// UTC instant. A missing zone is treated as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseXMLTVNS converts the `season.episode.part` convention from its
// 0-based form to 1-based season/episode indices. Parts like "0/6" carry
// a total after the slash which is ignored.
func parseXMLTVNS(v string) (season, episode int, ok bool) {
	parts := strings.Split(v, ".")
	if len(parts) < 2 {
		return 0, 0, false
	}
	parse := func(s string) (int, bool) {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		if idx := strings.Index(s, "/"); idx != -1 {
			s = strings.TrimSpace(s[:idx])
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	if n, found := parse(parts[0]); found {
		season = n + 1
	}
	if n, found := parse(parts[1]); found {
		episode = n + 1
	}
	return season, episode, season > 0 || episode > 0
}
