// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaycast/relaycast/internal/catalog"
	"github.com/relaycast/relaycast/internal/log"
)

// State of the manager's lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateJoining   State = "joining"
	StateStreaming State = "streaming"
	StateStopping  State = "stopping"
)

const (
	// settleDelay gives the voice transport a moment to finish its
	// handshake before media starts flowing. Heuristic, not a
	// correctness contract.
	settleDelay = 750 * time.Millisecond

	// stopGrace bounds how long Terminate waits before SIGKILL.
	stopGrace = 5 * time.Second
)

// Config tunes the manager.
type Config struct {
	Stream      StreamConfig
	SelfID      string
	IdleTimeout time.Duration
	// PollInterval overrides the spectator poll cadence; zero means
	// the 10s default.
	PollInterval time.Duration
}

type activeSession struct {
	id       string
	channel  catalog.ChannelRecord
	target   string
	pipeline Pipeline
	cancel   context.CancelFunc
	monitor  *monitor
}

// Status is a snapshot of the manager for the ops surface.
type Status struct {
	State   State  `json:"state"`
	Channel string `json:"channel,omitempty"`
	Target  string `json:"target,omitempty"`
}

// Manager owns the single active streaming session. Start always tears
// down any prior session first, so its operations are safe to invoke
// repeatedly and in any order.
//
// Known limitation: a source that stalls without the ffmpeg process
// exiting is not detected. There is no data-liveness watchdog; such a
// session ends only through a manual stop or the spectator monitor.
type Manager struct {
	cfg   Config
	voice Voice

	// Swappable in tests.
	newPipeline func(StreamConfig, string) Pipeline
	sleep       func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	state       State
	active      *activeSession
	connectedTo string
}

// NewManager creates an idle manager over the given voice transport.
func NewManager(cfg Config, voice Voice) *Manager {
	return &Manager{
		cfg:         cfg,
		voice:       voice,
		newPipeline: newFFmpegPipeline,
		sleep:       sleepCtx,
		state:       StateIdle,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Status returns the current state snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{State: m.state}
	if m.active != nil {
		st.Channel = m.active.channel.Name
		st.Target = m.active.target
	}
	return st
}

// Start begins streaming the channel into the voice target. Any prior
// session is fully stopped first.
func (m *Manager) Start(ctx context.Context, channel catalog.ChannelRecord, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessionID := uuid.NewString()
	ctx = log.ContextWithSessionID(ctx, sessionID)
	logger := log.WithComponentFromContext(ctx, "session")

	m.stopLocked(ctx, "replaced")

	if channel.URL == "" {
		sessionStartTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("channel %q has no stream url", channel.Name)
	}

	m.state = StateJoining
	if m.connectedTo != target {
		if err := m.voice.Join(ctx, target); err != nil {
			m.state = StateIdle
			sessionStartTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("join voice target: %w", err)
		}
		m.connectedTo = target
		if err := m.sleep(ctx, settleDelay); err != nil {
			m.state = StateIdle
			sessionStartTotal.WithLabelValues("error").Inc()
			return err
		}
	}

	// The session outlives the start request; only its own cancel or
	// a stop path may end it.
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	pipeline := m.newPipeline(m.cfg.Stream, channel.URL)
	out, err := pipeline.Start(sessionCtx)
	if err != nil {
		cancel()
		m.state = StateIdle
		sessionStartTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("start pipeline: %w", err)
	}

	mon := newMonitor(m.voice, target, m.cfg.SelfID, m.cfg.PollInterval, m.cfg.IdleTimeout, func() {
		m.idleStop(sessionID)
	})
	mon.start(sessionCtx)

	m.active = &activeSession{
		id:       sessionID,
		channel:  channel,
		target:   target,
		pipeline: pipeline,
		cancel:   cancel,
		monitor:  mon,
	}
	m.state = StateStreaming
	sessionActive.Set(1)
	sessionStartTotal.WithLabelValues("ok").Inc()

	go m.play(sessionCtx, out)
	go m.watchExit(sessionID, pipeline)

	logger.Info().Str("event", "session.started").
		Str("channel", channel.Name).Str("target", target).
		Msg("streaming session started")
	return nil
}

func (m *Manager) play(ctx context.Context, out io.Reader) {
	if err := m.voice.Play(ctx, out); err != nil && ctx.Err() == nil {
		logger := log.WithComponentFromContext(ctx, "session")
		logger.Warn().Err(err).
			Str("event", "session.play_failed").Msg("voice playback ended with error")
	}
}

// watchExit tears the session down when the pipeline ends for any
// reason other than our own forced stop.
func (m *Manager) watchExit(id string, pipeline Pipeline) {
	err := <-pipeline.Done()
	if errors.Is(err, ErrForcedStop) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.id != id {
		return
	}

	ctx := log.ContextWithSessionID(context.Background(), id)
	logger := log.WithComponentFromContext(ctx, "session")
	if err != nil {
		logger.Error().Err(err).Str("event", "session.pipeline_failed").
			Strs("stderr", pipeline.StderrTail(10)).
			Msg("pipeline exited abnormally, stopping session")
	} else {
		logger.Info().Str("event", "session.pipeline_ended").
			Msg("pipeline ended, stopping session")
	}
	m.stopLocked(ctx, "pipeline_exit")
}

// idleStop handles the spectator monitor's timeout: stop, then leave.
func (m *Manager) idleStop(id string) {
	ctx := log.ContextWithSessionID(context.Background(), id)

	m.mu.Lock()
	if m.active == nil || m.active.id != id {
		m.mu.Unlock()
		return
	}
	m.stopLocked(ctx, "idle_timeout")
	m.connectedTo = ""
	m.mu.Unlock()

	if err := m.voice.Leave(ctx); err != nil {
		logger := log.WithComponentFromContext(ctx, "session")
		logger.Warn().Err(err).
			Str("event", "session.leave_failed").Msg("voice leave failed")
	}
}

// Stop ends the active session. A no-op when idle.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(ctx, "manual")
	return nil
}

// Leave stops any active session and disconnects from voice.
func (m *Manager) Leave(ctx context.Context) error {
	m.mu.Lock()
	m.stopLocked(ctx, "leave")
	m.connectedTo = ""
	m.mu.Unlock()

	return m.voice.Leave(ctx)
}

// stopLocked tears down the active session. Callers hold m.mu.
func (m *Manager) stopLocked(ctx context.Context, trigger string) {
	sess := m.active
	if sess == nil {
		m.state = StateIdle
		return
	}
	m.state = StateStopping
	logger := log.WithComponentFromContext(ctx, "session")

	sess.monitor.stop()
	// Terminate before cancelling the context: a cancelled context
	// hard-kills the process and would skip the SIGTERM grace.
	if err := sess.pipeline.Terminate(stopGrace); err != nil {
		logger.Warn().Err(err).Str("event", "session.terminate_failed").
			Msg("pipeline terminate returned error")
	}
	sess.cancel()

	m.active = nil
	m.state = StateIdle
	sessionActive.Set(0)
	sessionStopTotal.WithLabelValues(trigger).Inc()
	logger.Info().Str("event", "session.stopped").Str("trigger", trigger).
		Str("channel", sess.channel.Name).Msg("streaming session stopped")
}
