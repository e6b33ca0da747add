// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"io"
)

// Occupant is a member of a voice target as reported by the transport.
type Occupant struct {
	ID  string
	Bot bool
}

// Voice is the media-relay transport collaborator. The concrete
// implementation lives outside this module; the manager only drives
// its lifecycle.
type Voice interface {
	// Join connects to the given voice target. Joining a target the
	// transport is already connected to must be a cheap no-op.
	Join(ctx context.Context, target string) error

	// Leave disconnects from the current voice target, if any.
	Leave(ctx context.Context) error

	// Occupants lists the current members of the target.
	Occupants(ctx context.Context, target string) ([]Occupant, error)

	// Play streams the media from r until r is exhausted or ctx is
	// cancelled.
	Play(ctx context.Context, r io.Reader) error
}
