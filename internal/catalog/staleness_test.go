// SPDX-License-Identifier: MIT

package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStaleWithNoProgrammes(t *testing.T) {
	assert.True(t, Stale(nil, 12*time.Hour, time.Now()))
	assert.True(t, Stale([]ProgrammeRecord{}, 12*time.Hour, time.Now()))
}

func TestFreshRecentWithFutureStop(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	progs := []ProgrammeRecord{{
		ChannelID: "c1",
		Start:     TS(at.Add(-time.Hour)),
		Stop:      TS(at.Add(time.Hour)),
		CreatedAt: TS(at.Add(-time.Hour)),
	}}
	assert.False(t, Stale(progs, 12*time.Hour, at))
}

func TestStaleWhenOlderThanIntervalMinusGrace(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	interval := time.Hour

	// Created just inside the window: fresh.
	inside := []ProgrammeRecord{{
		CreatedAt: TS(at.Add(-interval + graceWindow + time.Minute)),
		Stop:      TS(at.Add(time.Hour)),
	}}
	assert.False(t, Stale(inside, interval, at))

	// Created just outside the window: stale.
	outside := []ProgrammeRecord{{
		CreatedAt: TS(at.Add(-interval + graceWindow - time.Minute)),
		Stop:      TS(at.Add(time.Hour)),
	}}
	assert.True(t, Stale(outside, interval, at))
}

func TestStaleWhenAllStopsPast(t *testing.T) {
	// Recently fetched but every programme already ended.
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	progs := []ProgrammeRecord{{
		CreatedAt: TS(at.Add(-time.Minute)),
		Stop:      TS(at.Add(-time.Second)),
	}}
	assert.True(t, Stale(progs, 12*time.Hour, at))
}
