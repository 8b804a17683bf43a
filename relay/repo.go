// Package relay implements the server-held key/value handoff that bridges
// two partitioned contexts: the popup writes the login result under a
// one-time session id and the initiator polls it out. This is the only
// transport guaranteed to cross a fully partitioned boundary.
package relay

import (
	"context"
	"time"

	"github.com/adboardhq/auth-relay/message"
)

// Session is the ephemeral correlation record for one popup-auth attempt.
// It is created empty by the initiator, written at most once by the
// completion emitter, and read any number of times by the poller before the
// server garbage-collects it.
type Session struct {
	SessionID string
	Payload   *message.AuthMessage // nil until written
	CreatedAt time.Time
	WrittenAt time.Time
}

// Repo stores relay sessions with a fixed server-side TTL independent of
// client polling activity.
//
// Write conflicts resolve first-write-wins: the first payload stored for a
// session id is authoritative, later writes are accepted (no error) but
// ignored. Two emitters should never share an id by construction, and this
// policy keeps a racing duplicate from swapping tokens under a poller that
// already observed the first write.
type Repo interface {
	// Create registers an empty session. Overwrites any stale record under
	// the same id and restarts its TTL.
	Create(ctx context.Context, sessionID string) error

	// Write stores the payload for an existing session. Returns
	// errors.ErrSessionNotFound when the session is missing or expired.
	// The returned bool is false when an earlier write already won.
	Write(ctx context.Context, sessionID string, payload message.AuthMessage) (bool, error)

	// Read returns the stored payload, or (nil, nil) when the session
	// exists but has not been written yet. Missing or expired sessions
	// return errors.ErrSessionNotFound.
	Read(ctx context.Context, sessionID string) (*message.AuthMessage, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error
}
