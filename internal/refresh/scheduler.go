// SPDX-License-Identifier: MIT

package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaycast/relaycast/internal/log"
)

// Scheduler drives periodic full refreshes. At most one timer is ever
// active: Arm cancels the previous loop before starting the next. Ticks
// run synchronously in the loop so they never overlap each other.
type Scheduler struct {
	runner *Runner

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for the given runner.
func NewScheduler(runner *Runner) *Scheduler {
	return &Scheduler{runner: runner}
}

// Arm (re)starts the periodic timer with the given interval. Any
// previously armed timer is cancelled first.
func (s *Scheduler) Arm(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(loopCtx, interval)

	logger := log.WithComponent("scheduler")
	logger.Info().Str("event", "scheduler.armed").
		Dur("interval", interval).Msg("refresh timer armed")
}

// Stop cancels the active timer, waiting for an in-flight tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
		s.cancel = nil
	}
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick performs one forced full refresh. Failures are logged and never
// stop future ticks.
func (s *Scheduler) tick(ctx context.Context) {
	jobCtx := log.ContextWithJobID(ctx, uuid.NewString())
	if _, err := s.runner.Refresh(jobCtx, KindAll); err != nil {
		logger := log.WithComponentFromContext(jobCtx, "scheduler")
		logger.Error().Err(err).
			Str("event", "scheduler.tick_failed").Msg("scheduled refresh failed")
	}
}
