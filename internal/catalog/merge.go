// SPDX-License-Identifier: MIT

package catalog

import (
	"fmt"
	"time"
)

// Merge reconciles playlist-derived records into the existing
// guide-derived channel set. On an id match only URL, Group and Logo are
// overwritten; the guide-sourced name and id are preserved, and a known
// display name is never downgraded to an empty one. Unmatched playlist
// records are inserted keyed by their id or a positional fallback.
func Merge(existing, playlist []ChannelRecord, now time.Time) []ChannelRecord {
	merged := make([]ChannelRecord, len(existing))
	index := make(map[string]int, len(existing))
	for i, rec := range existing {
		merged[i] = rec
		if rec.ID != "" {
			index[rec.ID] = i
		}
	}

	for pos, src := range playlist {
		if src.ID != "" {
			if i, ok := index[src.ID]; ok {
				dst := &merged[i]
				dst.URL = src.URL
				if src.Group != "" {
					dst.Group = src.Group
				}
				if src.Logo != "" {
					dst.Logo = src.Logo
				}
				if dst.Name == "" {
					dst.Name = src.Name
				}
				dst.UpdatedAt = TS(now)
				continue
			}
		}

		rec := src
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("chan-pos-%d", pos)
		}
		rec.UpdatedAt = TS(now)
		merged = append(merged, rec)
		index[rec.ID] = len(merged) - 1
	}

	return merged
}
