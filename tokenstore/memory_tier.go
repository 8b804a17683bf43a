package tokenstore

import (
	"context"
	"sync"

	"github.com/adboardhq/auth-relay/bundle"
)

// MemoryTier is the volatile in-process tier. Always available, cannot fail,
// lost on process restart. It is always the first tier in the chain and the
// read-repair target for slower tiers.
type MemoryTier struct {
	mu     sync.RWMutex
	bundle *bundle.TokenBundle
}

var _ Tier = (*MemoryTier)(nil)

func NewMemoryTier() *MemoryTier {
	return &MemoryTier{}
}

func (*MemoryTier) Name() string { return "memory" }

func (*MemoryTier) Synchronous() bool { return true }

func (t *MemoryTier) Save(_ context.Context, b *bundle.TokenBundle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bundle = b
	return nil
}

func (t *MemoryTier) Load(_ context.Context) (*bundle.TokenBundle, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bundle, nil
}

func (t *MemoryTier) Clear(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bundle = nil
	return nil
}
