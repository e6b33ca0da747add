// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	channelPrefix   = "chan:"
	programmePrefix = "prog:"
)

// Store persists the two record collections. Writes are full-replace:
// each successful refresh clears the old set and writes the new one in a
// single transaction.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: open store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a volatile store, used by tests and memory cache mode.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: open in-memory store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// ReplaceChannels clears the channel set and writes records in one
// transaction. Programme records are untouched.
func (s *Store) ReplaceChannels(ctx context.Context, records []ChannelRecord) error {
	return s.replace(channelPrefix, len(records), func(i int) (string, any) {
		return records[i].ID, records[i]
	})
}

// ReplaceProgrammes clears the programme set and writes records in one
// transaction. Channel records are untouched.
func (s *Store) ReplaceProgrammes(ctx context.Context, records []ProgrammeRecord) error {
	return s.replace(programmePrefix, len(records), func(i int) (string, any) {
		r := records[i]
		key := fmt.Sprintf("%s:%d:%d", r.ChannelID, r.Start.Unix(), i)
		return key, r
	})
}

func (s *Store) replace(prefix string, n int, record func(i int) (string, any)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for i := 0; i < n; i++ {
			key, rec := record(i)
			buf, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(prefix+key), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

// Channels returns all channel records.
func (s *Store) Channels(ctx context.Context) ([]ChannelRecord, error) {
	var out []ChannelRecord
	err := s.scan(channelPrefix, func(val []byte) error {
		var rec ChannelRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// Programmes returns all programme records.
func (s *Store) Programmes(ctx context.Context) ([]ProgrammeRecord, error) {
	var out []ProgrammeRecord
	err := s.scan(programmePrefix, func(val []byte) error {
		var rec ProgrammeRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ProgrammesForChannel returns programme records for one channel id.
func (s *Store) ProgrammesForChannel(ctx context.Context, channelID string) ([]ProgrammeRecord, error) {
	var out []ProgrammeRecord
	err := s.scan(programmePrefix+channelID+":", func(val []byte) error {
		var rec ProgrammeRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (s *Store) scan(prefix string, visit func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(visit); err != nil {
				return err
			}
		}
		return nil
	})
}
