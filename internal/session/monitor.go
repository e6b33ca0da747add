// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"sync"
	"time"

	"github.com/relaycast/relaycast/internal/log"
)

const (
	defaultPollInterval  = 10 * time.Second
	defaultIdleThreshold = 10 * time.Minute
)

// monitor watches voice occupancy for one session and fires onIdle
// exactly once when nobody has been watching for the idle threshold.
// Bot accounts and the relay's own user never count as spectators.
type monitor struct {
	voice     Voice
	target    string
	selfID    string
	poll      time.Duration
	threshold time.Duration
	onIdle    func()

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newMonitor(voice Voice, target, selfID string, poll, threshold time.Duration, onIdle func()) *monitor {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	if threshold <= 0 {
		threshold = defaultIdleThreshold
	}
	return &monitor{
		voice:     voice,
		target:    target,
		selfID:    selfID,
		poll:      poll,
		threshold: threshold,
		onIdle:    onIdle,
		done:      make(chan struct{}),
	}
}

func (m *monitor) start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.run(ctx)
}

// stop tears the monitor down without firing. Safe to call from any
// goroutine, including the monitor's own onIdle path.
func (m *monitor) stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *monitor) run(ctx context.Context) {
	defer close(m.done)
	logger := log.WithComponentFromContext(ctx, "monitor")

	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	var idle time.Duration
	for {
		select {
		case <-ctx.Done():
			idleSeconds.Set(0)
			return
		case <-ticker.C:
		}

		occupants, err := m.voice.Occupants(ctx, m.target)
		if err != nil {
			if ctx.Err() != nil {
				idleSeconds.Set(0)
				return
			}
			logger.Warn().Err(err).Str("event", "monitor.poll_failed").
				Msg("occupancy poll failed, keeping accumulator")
			continue
		}

		if m.spectators(occupants) > 0 {
			idle = 0
		} else {
			idle += m.poll
		}
		idleSeconds.Set(idle.Seconds())

		if idle >= m.threshold {
			logger.Info().Str("event", "monitor.idle_timeout").
				Dur("idle", idle).Msg("no spectators, stopping session")
			m.once.Do(m.onIdle)
			idleSeconds.Set(0)
			return
		}
	}
}

func (m *monitor) spectators(occupants []Occupant) int {
	n := 0
	for _, o := range occupants {
		if o.Bot || o.ID == m.selfID {
			continue
		}
		n++
	}
	return n
}
