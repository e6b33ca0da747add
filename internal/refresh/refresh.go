// SPDX-License-Identifier: MIT

// Package refresh orchestrates the fetch → parse → merge cycle that
// keeps the catalog fresh.
package refresh

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relaycast/relaycast/internal/cache"
	"github.com/relaycast/relaycast/internal/catalog"
	"github.com/relaycast/relaycast/internal/log"
	"github.com/relaycast/relaycast/internal/playlist"
	"github.com/relaycast/relaycast/internal/xmltv"
)

// Kind selects which record collections a refresh updates.
type Kind string

const (
	KindAll       Kind = "all"
	KindChannels  Kind = "channels"
	KindProgramme Kind = "programme"
)

// Cache keys for the two source blobs.
const (
	PlaylistKey = "playlist"
	GuideKey    = "guide"
)

// Fetcher is the retrying retrieval dependency; satisfied by
// fetch.Fetcher and mocked in tests.
type Fetcher interface {
	Fetch(ctx context.Context, url, cacheKey string) ([]byte, error)
}

// Status describes the outcome of the last refresh.
type Status struct {
	LastRun    time.Time `json:"last_run"`
	Kind       Kind      `json:"kind"`
	Channels   int       `json:"channels"`
	Programmes int       `json:"programmes"`
	Error      string    `json:"error,omitempty"`
}

// Config holds the refresh endpoints and optional playlist export path.
type Config struct {
	PlaylistURL     string
	GuideURL        string
	RefreshInterval time.Duration
	ExportPath      string // when set, the merged catalog is exported as M3U
}

// Runner executes refresh cycles against the catalog store.
type Runner struct {
	cfg     Config
	fetcher Fetcher
	store   *catalog.Store
	blobs   cache.Store

	mu     sync.Mutex
	status Status

	// now is swappable in tests.
	now func() time.Time
}

// NewRunner wires a refresh runner.
func NewRunner(cfg Config, fetcher Fetcher, store *catalog.Store, blobs cache.Store) *Runner {
	return &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		blobs:   blobs,
		now:     time.Now,
	}
}

// Status returns the outcome of the most recent refresh.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Refresh performs a forced refresh of the requested kind. Staleness is
// never consulted here; callers wanting a conditional refresh use
// RunIfStale. A full refresh clears the blob cache afterwards so the
// next cycle re-downloads both sources.
func (r *Runner) Refresh(ctx context.Context, kind Kind) (*Status, error) {
	logger := log.WithComponentFromContext(ctx, "refresh")
	started := r.now()
	logger.Info().Str("event", "refresh.start").Str("kind", string(kind)).Msg("starting refresh")

	status, err := r.run(ctx, kind)
	if err != nil {
		cycleTotal.WithLabelValues(string(kind), "error").Inc()
		st := Status{LastRun: started, Kind: kind, Error: err.Error()}
		r.mu.Lock()
		r.status = st
		r.mu.Unlock()
		logger.Error().Err(err).Str("event", "refresh.failed").Str("kind", string(kind)).
			Msg("refresh failed")
		return &st, err
	}

	cycleTotal.WithLabelValues(string(kind), "success").Inc()
	cycleDuration.Observe(r.now().Sub(started).Seconds())
	r.mu.Lock()
	r.status = *status
	r.mu.Unlock()
	logger.Info().Str("event", "refresh.success").Str("kind", string(kind)).
		Int("channels", status.Channels).Int("programmes", status.Programmes).
		Msg("refresh completed")
	return status, nil
}

// RunIfStale refreshes everything only when the catalog's staleness
// policy says so. Used for the startup fetch.
func (r *Runner) RunIfStale(ctx context.Context) error {
	logger := log.WithComponentFromContext(ctx, "refresh")
	progs, err := r.store.Programmes(ctx)
	if err != nil {
		return fmt.Errorf("load programmes: %w", err)
	}
	if !catalog.Stale(progs, r.cfg.RefreshInterval, r.now()) {
		logger.Info().Str("event", "refresh.skipped").Int("programmes", len(progs)).
			Msg("catalog still fresh, skipping startup refresh")
		return nil
	}
	_, err = r.Refresh(ctx, KindAll)
	return err
}

func (r *Runner) run(ctx context.Context, kind Kind) (*Status, error) {
	logger := log.WithComponentFromContext(ctx, "refresh")
	var playlistData, guideData []byte

	g, gctx := errgroup.WithContext(ctx)
	if kind == KindAll || kind == KindChannels {
		g.Go(func() error {
			data, err := r.fetcher.Fetch(gctx, r.cfg.PlaylistURL, PlaylistKey)
			if err != nil {
				return fmt.Errorf("playlist: %w", err)
			}
			playlistData = data
			return nil
		})
	}
	if kind == KindAll || kind == KindProgramme {
		g.Go(func() error {
			data, err := r.fetcher.Fetch(gctx, r.cfg.GuideURL, GuideKey)
			if err != nil {
				return fmt.Errorf("guide: %w", err)
			}
			guideData = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := r.now()
	status := &Status{LastRun: now, Kind: kind}

	var guide *xmltv.Result
	if guideData != nil {
		parsed, err := xmltv.Parse(bytes.NewReader(guideData))
		if err != nil {
			return nil, fmt.Errorf("parse guide: %w", err)
		}
		guide = parsed
	}

	if kind == KindAll || kind == KindChannels {
		base, err := r.channelBase(ctx, guide, now)
		if err != nil {
			return nil, err
		}

		entries := playlist.Parse(playlistData)
		merged := catalog.Merge(base, channelsFromEntries(entries, now), now)
		if err := r.store.ReplaceChannels(ctx, merged); err != nil {
			return nil, fmt.Errorf("replace channels: %w", err)
		}
		status.Channels = len(merged)
		channelRecords.Set(float64(len(merged)))

		if r.cfg.ExportPath != "" {
			if err := playlist.ExportM3U(r.cfg.ExportPath, entriesFromChannels(merged)); err != nil {
				// Export is a convenience artifact, not part of the cycle.
				logger.Warn().Err(err).
					Str("event", "refresh.export_failed").Str("path", r.cfg.ExportPath).
					Msg("playlist export failed")
			}
		}
	}

	if kind == KindAll || kind == KindProgramme {
		records := programmesFromGuide(guide, now)
		if err := r.store.ReplaceProgrammes(ctx, records); err != nil {
			return nil, fmt.Errorf("replace programmes: %w", err)
		}
		status.Programmes = len(records)
		programmeRecords.Set(float64(len(records)))
	}

	if kind == KindAll {
		if err := r.blobs.Clear(ctx); err != nil {
			logger.Warn().Err(err).
				Str("event", "refresh.cache_clear_failed").Msg("could not clear blob cache")
		}
	}

	return status, nil
}

// channelBase is the guide-derived set the playlist merges into: the
// freshly parsed guide channels on a full refresh, the stored set on a
// channels-only refresh.
func (r *Runner) channelBase(ctx context.Context, guide *xmltv.Result, now time.Time) ([]catalog.ChannelRecord, error) {
	if guide != nil {
		base := make([]catalog.ChannelRecord, 0, len(guide.Channels))
		for _, ch := range guide.Channels {
			base = append(base, catalog.ChannelRecord{
				ID:        ch.ID,
				Name:      ch.Name,
				Number:    ch.Number,
				Logo:      ch.Logo,
				UpdatedAt: catalog.TS(now),
			})
		}
		return base, nil
	}
	stored, err := r.store.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}
	return stored, nil
}

func channelsFromEntries(entries []playlist.Entry, now time.Time) []catalog.ChannelRecord {
	out := make([]catalog.ChannelRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, catalog.ChannelRecord{
			ID:        e.ID,
			Name:      e.Name,
			Number:    e.Number,
			Logo:      e.Logo,
			Group:     e.Group,
			URL:       e.URL,
			UpdatedAt: catalog.TS(now),
		})
	}
	return out
}

func entriesFromChannels(records []catalog.ChannelRecord) []playlist.Entry {
	out := make([]playlist.Entry, 0, len(records))
	for _, rec := range records {
		out = append(out, playlist.Entry{
			ID:     rec.ID,
			Name:   rec.Name,
			Number: rec.Number,
			Logo:   rec.Logo,
			Group:  rec.Group,
			URL:    rec.URL,
		})
	}
	return out
}

func programmesFromGuide(guide *xmltv.Result, now time.Time) []catalog.ProgrammeRecord {
	if guide == nil {
		return nil
	}
	out := make([]catalog.ProgrammeRecord, 0, len(guide.Programmes))
	for _, p := range guide.Programmes {
		out = append(out, catalog.ProgrammeRecord{
			ChannelID: p.ChannelID,
			Start:     catalog.TS(p.Start),
			Stop:      catalog.TS(p.Stop),
			Title:     p.Title,
			Desc:      p.Desc,
			Category:  p.Category,
			Subtitle:  p.Subtitle,
			Season:    p.Season,
			Episode:   p.Episode,
			CreatedAt: catalog.TS(now),
		})
	}
	return out
}
