package tierfakes

import (
	"context"
	"sync"

	"github.com/adboardhq/auth-relay/bundle"
	"github.com/adboardhq/auth-relay/tokenstore"
	"github.com/pkg/errors"
)

var _ tokenstore.Tier = (*FakeTier)(nil)

// FakeTier is an in-memory tier whose failure modes can be toggled per call
// site, used to simulate blocked or quota-exhausted storage backends.
type FakeTier struct {
	TierName string
	Sync     bool

	FailSave  bool
	FailLoad  bool
	FailClear bool

	mu     sync.Mutex
	bundle *bundle.TokenBundle

	SaveCalls  int
	LoadCalls  int
	ClearCalls int
}

func NewFakeTier(name string, synchronous bool) *FakeTier {
	return &FakeTier{TierName: name, Sync: synchronous}
}

func (t *FakeTier) Name() string { return t.TierName }

func (t *FakeTier) Synchronous() bool { return t.Sync }

func (t *FakeTier) Save(_ context.Context, b *bundle.TokenBundle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.SaveCalls++
	if t.FailSave {
		return errors.Errorf("%s tier unavailable", t.TierName)
	}
	t.bundle = b
	return nil
}

func (t *FakeTier) Load(_ context.Context) (*bundle.TokenBundle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.LoadCalls++
	if t.FailLoad {
		return nil, errors.Errorf("%s tier unavailable", t.TierName)
	}
	return t.bundle, nil
}

func (t *FakeTier) Clear(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ClearCalls++
	if t.FailClear {
		return errors.Errorf("%s tier unavailable", t.TierName)
	}
	t.bundle = nil
	return nil
}

// Stored returns the currently held bundle, bypassing failure toggles.
func (t *FakeTier) Stored() *bundle.TokenBundle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bundle
}

// Seed places a bundle directly into the tier, bypassing failure toggles.
func (t *FakeTier) Seed(b *bundle.TokenBundle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bundle = b
}
