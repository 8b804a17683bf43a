// Package tokenstore persists the session TokenBundle across an ordered
// chain of storage tiers of decreasing reliability. Writes fan out to every
// reachable tier; reads stop at the first tier holding a live bundle.
package tokenstore

import (
	"context"

	"github.com/adboardhq/auth-relay/bundle"
)

// Tier is one backend in the ordered fallback chain. A tier failure is an
// isolated, recoverable event: the store catches and logs it, never
// propagates it.
type Tier interface {
	// Name identifies the tier in logs.
	Name() string

	// Synchronous reports whether the tier is cheap enough to consult on
	// the fast read path, before slower tiers have had a chance to resolve.
	Synchronous() bool

	// Save persists the bundle. The bundle fully replaces any prior one.
	Save(ctx context.Context, b *bundle.TokenBundle) error

	// Load returns the stored bundle, or (nil, nil) when the tier holds
	// nothing. Expiry is judged by the store, not the tier.
	Load(ctx context.Context) (*bundle.TokenBundle, error)

	// Clear removes any stored bundle. Must be a no-op when empty.
	Clear(ctx context.Context) error
}
