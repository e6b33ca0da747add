// SPDX-License-Identifier: MIT

// Package catalog holds the persisted channel and programme record sets
// and the policies that operate on them.
package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ChannelRecord is one playable channel. Uniquely keyed by ID when
// present, else by a generated positional key.
type ChannelRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Number    int       `json:"number,omitempty"`
	Logo      string    `json:"logo,omitempty"`
	Group     string    `json:"group,omitempty"`
	URL       string    `json:"url,omitempty"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// ProgrammeRecord is one scheduled broadcast referencing a ChannelRecord.
type ProgrammeRecord struct {
	ChannelID string    `json:"channel_id"`
	Start     Timestamp `json:"start"`
	Stop      Timestamp `json:"stop"`
	Title     string    `json:"title"`
	Desc      string    `json:"desc,omitempty"`
	Category  string    `json:"category,omitempty"`
	Subtitle  string    `json:"subtitle,omitempty"`
	Season    int       `json:"season,omitempty"`
	Episode   int       `json:"episode,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// Timestamp marshals as RFC 3339 and unmarshals from either an ISO
// string or an epoch-seconds number, so records written by older tooling
// stay readable.
type Timestamp struct {
	time.Time
}

// TS wraps a time.Time.
func TS(t time.Time) Timestamp { return Timestamp{Time: t.UTC()} }

// MarshalJSON writes the RFC 3339 form.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`null`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// UnmarshalJSON accepts null, an RFC 3339 string or epoch seconds.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if len(s) > 1 && s[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("catalog: parse timestamp %q: %w", raw, err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	epoch, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("catalog: parse epoch timestamp %q: %w", s, err)
	}
	t.Time = time.Unix(int64(epoch), 0).UTC()
	return nil
}
