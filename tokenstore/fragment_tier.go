package tokenstore

import (
	"context"
	"sync"

	"github.com/adboardhq/auth-relay/bundle"
)

// Fragment models the address-bar fragment handed to a page by an
// authenticated navigation. Take returns the value at most once and scrubs
// it, so a decoded token never lingers in the visible address.
type Fragment struct {
	mu    sync.Mutex
	value string
}

// NewFragment wraps the raw fragment of the current navigation.
func NewFragment(value string) *Fragment {
	return &Fragment{value: value}
}

// Take returns the fragment and clears it. Subsequent calls return "".
func (f *Fragment) Take() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.value
	f.value = ""
	return v
}

// Peek reports whether a fragment is still present, without consuming it.
func (f *Fragment) Peek() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value != ""
}

// FragmentTier is the one-shot decode-only tier: it recovers a bundle handed
// over in the URL fragment of the first navigation after a popup success.
// Save is deliberately a no-op; the fragment is written only by an explicit
// authenticated navigation (session.Manager.NavigateWithAuth).
type FragmentTier struct {
	fragment *Fragment
}

var _ Tier = (*FragmentTier)(nil)

func NewFragmentTier(fragment *Fragment) *FragmentTier {
	return &FragmentTier{fragment: fragment}
}

func (*FragmentTier) Name() string { return "fragment" }

func (*FragmentTier) Synchronous() bool { return false }

func (*FragmentTier) Save(context.Context, *bundle.TokenBundle) error {
	return nil
}

func (t *FragmentTier) Load(_ context.Context) (*bundle.TokenBundle, error) {
	if t.fragment == nil {
		return nil, nil
	}
	raw := t.fragment.Take()
	if raw == "" {
		return nil, nil
	}
	return bundle.DecodeFragment(raw)
}

func (t *FragmentTier) Clear(_ context.Context) error {
	if t.fragment != nil {
		t.fragment.Take()
	}
	return nil
}
