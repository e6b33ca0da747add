// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"io"

	"github.com/relaycast/relaycast/internal/session"
)

var errNoTransport = errors.New("no voice transport attached")

// unboundVoice is the placeholder transport used when the daemon runs
// standalone. The real media-relay transport is attached by the
// embedding deployment; until then session starts fail cleanly while
// the catalog, refresh and ops surfaces stay fully functional.
type unboundVoice struct{}

func (unboundVoice) Join(ctx context.Context, target string) error { return errNoTransport }

func (unboundVoice) Leave(ctx context.Context) error { return nil }

func (unboundVoice) Occupants(ctx context.Context, target string) ([]session.Occupant, error) {
	return nil, errNoTransport
}

func (unboundVoice) Play(ctx context.Context, r io.Reader) error { return errNoTransport }
