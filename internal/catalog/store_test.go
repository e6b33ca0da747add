// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestReplaceChannelsIsFullReplace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceChannels(ctx, []ChannelRecord{
		{ID: "c1", Name: "One"},
		{ID: "c2", Name: "Two"},
	}))
	require.NoError(t, s.ReplaceChannels(ctx, []ChannelRecord{
		{ID: "c3", Name: "Three"},
	}))

	chans, err := s.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, chans, 1)
	assert.Equal(t, "c3", chans[0].ID)
}

func TestReplaceChannelsLeavesProgrammesUntouched(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	progs := []ProgrammeRecord{{
		ChannelID: "c1", Title: "Show",
		Start: TS(at), Stop: TS(at.Add(time.Hour)), CreatedAt: TS(at),
	}}
	require.NoError(t, s.ReplaceProgrammes(ctx, progs))

	before, err := s.Programmes(ctx)
	require.NoError(t, err)

	require.NoError(t, s.ReplaceChannels(ctx, []ChannelRecord{{ID: "c1", Name: "One"}}))

	after, err := s.Programmes(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "channel refresh must not touch programme records")
}

func TestProgrammesForChannel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.ReplaceProgrammes(ctx, []ProgrammeRecord{
		{ChannelID: "c1", Title: "A", Start: TS(at), Stop: TS(at.Add(time.Hour))},
		{ChannelID: "c2", Title: "B", Start: TS(at), Stop: TS(at.Add(time.Hour))},
		{ChannelID: "c1", Title: "C", Start: TS(at.Add(time.Hour)), Stop: TS(at.Add(2 * time.Hour))},
	}))

	got, err := s.ProgrammesForChannel(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	titles := []string{got[0].Title, got[1].Title}
	sort.Strings(titles)
	assert.Equal(t, []string{"A", "C"}, titles)
}

func TestTimestampUnmarshalBothForms(t *testing.T) {
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	var fromISO Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-01T10:00:00Z"`), &fromISO))
	assert.True(t, fromISO.Equal(want))

	var fromEpoch Timestamp
	require.NoError(t, json.Unmarshal([]byte(`1704103200`), &fromEpoch))
	assert.True(t, fromEpoch.Equal(want))

	var fromNull Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &fromNull))
	assert.True(t, fromNull.IsZero())

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}
