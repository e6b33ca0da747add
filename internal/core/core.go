// SPDX-License-Identifier: MIT

// Package core is the command facade consumed by the presentation
// layer. Every operation returns a Result instead of an error so
// callers never need error handling around core calls.
package core

import (
	"context"
	"fmt"

	"github.com/relaycast/relaycast/internal/catalog"
	"github.com/relaycast/relaycast/internal/log"
	"github.com/relaycast/relaycast/internal/refresh"
	"github.com/relaycast/relaycast/internal/session"
)

// Result is the structured outcome of a user-facing operation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ok(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// ChannelSource provides the current channel set.
type ChannelSource interface {
	Channels(ctx context.Context) ([]catalog.ChannelRecord, error)
}

// Refresher forces catalog refreshes.
type Refresher interface {
	Refresh(ctx context.Context, kind refresh.Kind) (*refresh.Status, error)
}

// SessionManager drives the streaming session lifecycle.
type SessionManager interface {
	Start(ctx context.Context, channel catalog.ChannelRecord, target string) error
	Stop(ctx context.Context) error
	Status() session.Status
}

// Core wires the catalog, refresh runner and session manager behind a
// uniform command surface.
type Core struct {
	store   ChannelSource
	runner  Refresher
	manager SessionManager
}

// New creates the facade.
func New(store ChannelSource, runner Refresher, manager SessionManager) *Core {
	return &Core{store: store, runner: runner, manager: manager}
}

// Start resolves the channel by name and begins streaming it into the
// voice target.
func (c *Core) Start(ctx context.Context, channelName, voiceTarget string) (res Result) {
	defer recoverResult(ctx, &res)

	channels, err := c.store.Channels(ctx)
	if err != nil {
		return fail("could not load the channel list: %v", err)
	}
	channel, found := catalog.Lookup(channels, channelName)
	if !found {
		return fail("no channel matches %q", channelName)
	}

	if err := c.manager.Start(ctx, channel, voiceTarget); err != nil {
		return fail("could not start %s: %v", channel.Name, err)
	}
	return ok("now streaming %s", channel.Name)
}

// Stop ends the active session, if any.
func (c *Core) Stop(ctx context.Context) (res Result) {
	defer recoverResult(ctx, &res)

	if c.manager.Status().State == session.StateIdle {
		return ok("nothing is streaming")
	}
	if err := c.manager.Stop(ctx); err != nil {
		return fail("could not stop the stream: %v", err)
	}
	return ok("stream stopped")
}

// Refresh forces a catalog refresh of the given kind: "all",
// "channels" or "programme".
func (c *Core) Refresh(ctx context.Context, kind string) (res Result) {
	defer recoverResult(ctx, &res)

	k := refresh.Kind(kind)
	switch k {
	case refresh.KindAll, refresh.KindChannels, refresh.KindProgramme:
	default:
		return fail("unknown refresh kind %q, want all, channels or programme", kind)
	}

	status, err := c.runner.Refresh(ctx, k)
	if err != nil {
		return fail("refresh failed: %v", err)
	}
	return ok("refreshed %d channels and %d programmes", status.Channels, status.Programmes)
}

// List returns the current channel set.
func (c *Core) List(ctx context.Context) (res Result, channels []catalog.ChannelRecord) {
	defer recoverResult(ctx, &res)

	channels, err := c.store.Channels(ctx)
	if err != nil {
		return fail("could not load the channel list: %v", err), nil
	}
	return ok("%d channels", len(channels)), channels
}

// Lookup resolves a single channel by name or unique prefix.
func (c *Core) Lookup(ctx context.Context, name string) (res Result, channel *catalog.ChannelRecord) {
	defer recoverResult(ctx, &res)

	channels, err := c.store.Channels(ctx)
	if err != nil {
		return fail("could not load the channel list: %v", err), nil
	}
	found, okMatch := catalog.Lookup(channels, name)
	if !okMatch {
		return fail("no channel matches %q", name), nil
	}
	return ok("found %s", found.Name), &found
}

// recoverResult converts a panic into a failed Result. The facade must
// never let a panic escape to the presentation layer.
func recoverResult(ctx context.Context, res *Result) {
	if r := recover(); r != nil {
		logger := log.WithComponentFromContext(ctx, "core")
		logger.Error().
			Interface("panic", r).Str("event", "core.panic").
			Msg("operation panicked")
		*res = fail("internal error")
	}
}
