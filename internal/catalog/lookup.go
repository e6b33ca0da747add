// SPDX-License-Identifier: MIT

package catalog

import (
	"regexp"
	"strings"

	unorm "golang.org/x/text/unicode/norm"
)

var (
	parenSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

// NameKey normalizes a channel name for matching: NFC form, lowercase,
// trailing parenthetical quality suffixes removed, whitespace collapsed.
func NameKey(s string) string {
	s = unorm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = unorm.NFC.String(s)
	for {
		stripped := parenSuffix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Lookup finds a channel by name: exact normalized match first, then
// unique prefix match. The second return is false when no channel (or
// more than one prefix candidate) matches.
func Lookup(channels []ChannelRecord, name string) (ChannelRecord, bool) {
	key := NameKey(name)
	if key == "" {
		return ChannelRecord{}, false
	}

	var prefixHit *ChannelRecord
	prefixCount := 0
	for i := range channels {
		ck := NameKey(channels[i].Name)
		if ck == key {
			return channels[i], true
		}
		if strings.HasPrefix(ck, key) {
			prefixHit = &channels[i]
			prefixCount++
		}
	}
	if prefixCount == 1 {
		return *prefixHit, true
	}
	return ChannelRecord{}, false
}
