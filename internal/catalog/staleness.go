// SPDX-License-Identifier: MIT

package catalog

import "time"

// graceWindow is subtracted from the refresh interval when judging
// record age, so a refresh scheduled "any moment now" is not skipped.
const graceWindow = 3 * time.Minute

// Stale reports whether the programme set warrants a refresh. True when
// the set is empty, when the newest record was created longer ago than
// the refresh interval minus the grace window, or when no programme's
// stop time is still in the future (fresh fetch, expired content).
// Forced refreshes bypass this check entirely; it only guards the
// startup fetch.
func Stale(programmes []ProgrammeRecord, refreshInterval time.Duration, now time.Time) bool {
	if len(programmes) == 0 {
		return true
	}

	var newest time.Time
	anyFuture := false
	for _, p := range programmes {
		if p.CreatedAt.After(newest) {
			newest = p.CreatedAt.Time
		}
		if p.Stop.After(now) {
			anyFuture = true
		}
	}

	if now.Sub(newest) > refreshInterval-graceWindow {
		return true
	}
	return !anyFuture
}
