// SPDX-License-Identifier: MIT

// Package playlist parses extended M3U playlists and writes the
// normalized catalog export.
package playlist

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/relaycast/relaycast/internal/log"
)

// Entry is one channel parsed from an EXTINF/URL pair.
type Entry struct {
	ID      string
	Number  int
	Name    string
	GuideID string
	Logo    string
	Group   string
	URL     string
}

// Strategy attempts to extract an Entry from a single EXTINF line. The
// second return reports whether the strategy matched.
type Strategy func(line string) (Entry, bool)

// Strategies are tried in strict order; the first match wins.
var Strategies = []Strategy{
	parseStrict,
	parseAttributes,
	parseLenient,
}

var strictRe = regexp.MustCompile(
	`^#EXTINF:-?\d+(?:\.\d+)?\s+` +
		`tvg-id="([^"]*)"\s+` +
		`tvg-chno="([^"]*)"\s+` +
		`tvg-name="([^"]*)"\s+` +
		`tvg-guide="([^"]*)"\s+` +
		`tvg-logo="([^"]*)"\s+` +
		`group-title="([^"]*)"` +
		`\s*,\s*(.*)$`)

// parseStrict requires the full fixed attribute order.
func parseStrict(line string) (Entry, bool) {
	m := strictRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	e := Entry{
		ID:      m[1],
		Name:    m[3],
		GuideID: m[4],
		Logo:    m[5],
		Group:   m[6],
	}
	if e.Name == "" {
		e.Name = strings.TrimSpace(m[7])
	}
	if n, err := strconv.Atoi(m[2]); err == nil {
		e.Number = n
	}
	return e, e.ID != "" || e.Name != ""
}

// attr extracts a quoted attribute value regardless of position.
func attr(line, name string) string {
	marker := name + `="`
	idx := strings.Index(line, marker)
	if idx == -1 {
		return ""
	}
	rest := line[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end == -1 {
		return ""
	}
	return rest[:end]
}

// trailingName is the display text after the final comma of the line.
func trailingName(line string) string {
	idx := strings.LastIndex(line, ",")
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

// parseAttributes extracts the same fields via independent lookups; the
// channel name falls back to the trailing text.
func parseAttributes(line string) (Entry, bool) {
	e := entryFromAttrs(line)
	if e.Name == "" {
		e.Name = trailingName(line)
	}
	return e, e.ID != "" || e.Name != ""
}

var qualitySuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// parseLenient takes the trailing text as the name with parenthetical
// quality suffixes such as "(1080p)" or "(720p [Geo-blocked])" stripped.
func parseLenient(line string) (Entry, bool) {
	e := entryFromAttrs(line)
	name := trailingName(line)
	for {
		stripped := qualitySuffix.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}
	e.Name = strings.TrimSpace(name)
	return e, e.ID != "" || e.Name != ""
}

func entryFromAttrs(line string) Entry {
	e := Entry{
		ID:      attr(line, "tvg-id"),
		Name:    attr(line, "tvg-name"),
		GuideID: attr(line, "tvg-guide"),
		Logo:    attr(line, "tvg-logo"),
		Group:   attr(line, "group-title"),
	}
	if n, err := strconv.Atoi(attr(line, "tvg-chno")); err == nil {
		e.Number = n
	}
	return e
}

// Parse scans an extended M3U document. Each EXTINF line is run through
// the strategies in order; a matching entry is completed by the next
// non-comment, non-blank line as its stream URL. Malformed entries are
// logged and skipped without aborting the batch.
func Parse(data []byte) []Entry {
	logger := log.WithComponent("playlist")

	var entries []Entry
	var pending *Entry
	lineNo := 0

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#EXTINF:") {
			if pending != nil {
				droppedTotal.WithLabelValues("no_url").Inc()
				logger.Warn().Int("line", lineNo).Str("name", pending.Name).
					Str("event", "playlist.entry_without_url").
					Msg("EXTINF without stream URL, dropping entry")
			}
			pending = nil
			matched := false
			for _, strat := range Strategies {
				if e, ok := strat(line); ok {
					pending = &e
					matched = true
					break
				}
			}
			if !matched {
				droppedTotal.WithLabelValues("unparsed").Inc()
				logger.Warn().Int("line", lineNo).
					Str("event", "playlist.entry_unparsed").
					Msg("EXTINF line did not match any strategy, skipping")
			}
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		// URL line completes the pending entry.
		if pending != nil {
			pending.URL = line
			entries = append(entries, *pending)
			pending = nil
		}
	}
	if err := sc.Err(); err != nil {
		logger.Warn().Err(err).Str("event", "playlist.scan_error").
			Msg("playlist scan stopped early")
	}
	return entries
}
