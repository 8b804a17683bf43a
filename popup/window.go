package popup

import (
	"github.com/adboardhq/auth-relay/transport/messenger"
)

// Window is the handle the initiator holds on a launched popup context.
type Window interface {
	// Endpoint is the popup context's message port, used to pin the
	// messenger subscription to this specific window reference.
	Endpoint() *messenger.Endpoint

	// Closed reports whether the user has dismissed the popup. Close
	// signals are unreliable across platforms, so callers treat this as a
	// hint and keep an independent wall-clock timeout.
	Closed() bool
}

// Opener launches the login popup carrying the relay session id and the
// initiator's own origin. A nil Window means the launch was blocked by the
// platform; the initiator must fail immediately without starting any
// listeners.
type Opener func(sessionID, initiatorOrigin string) (Window, error)
