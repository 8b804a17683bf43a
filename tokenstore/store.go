package tokenstore

import (
	"context"
	"time"

	"github.com/adboardhq/auth-relay/bundle"
	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/rs/zerolog/log"
)

const defaultTokenTTL = time.Hour

// Store tries tiers in reliability order. The in-process memory tier is
// always first and is owned by the store itself, so a save can never lose
// the bundle for the remainder of the page life even when every other tier
// is blocked.
type Store struct {
	memory  *MemoryTier
	tiers   []Tier // memory first, then the configured chain
	ttl     time.Duration
	nowTime func() time.Time
}

// Option modifies a Store instance.
type Option func(*Store)

// WithTTL overrides the fixed client-side bundle lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// New creates a Store over the given tiers, in decreasing reliability order.
// A memory tier is always prepended; callers pass only the slower chain
// (file, keyring, fragment, ...).
func New(tiers []Tier, options ...Option) *Store {
	s := &Store{
		memory:  NewMemoryTier(),
		ttl:     defaultTokenTTL,
		nowTime: time.Now,
	}
	s.tiers = append([]Tier{s.memory}, tiers...)
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Save stamps the fixed TTL onto a copy of the bundle, writes the copy to
// every reachable tier, and returns it so callers adopt the stamped bundle
// as their in-memory state (an unstamped copy re-encoded into a fragment
// would read as already expired on the next page). Individual tier failures
// are logged and swallowed; Save fails only if every tier fails, which
// cannot happen while the memory tier exists.
func (s *Store) Save(ctx context.Context, b *bundle.TokenBundle) (*bundle.TokenBundle, error) {
	if err := b.Validate(); err != nil {
		return nil, autherrors.Wrapf(err, "[Store.Save]")
	}
	stamped := b.WithExpiry(s.nowTime().Add(s.ttl))
	if err := s.saveAll(ctx, stamped); err != nil {
		return nil, err
	}
	return stamped, nil
}

func (s *Store) saveAll(ctx context.Context, b *bundle.TokenBundle) error {
	saved := 0
	for _, tier := range s.tiers {
		if err := tier.Save(ctx, b); err != nil {
			log.Warn().Err(err).Str("tier", tier.Name()).Msg("token save failed, continuing with remaining tiers")
			continue
		}
		saved++
	}
	if saved == 0 {
		return autherrors.ErrAllTiersFailed
	}
	return nil
}

// Get queries tiers in reliability order and returns the first live bundle.
// Expired bundles are treated as absent and proactively deleted from the
// tier where they were found. A hit on a non-memory tier is mirrored into
// the memory tier so later synchronous reads don't touch the slower tier.
func (s *Store) Get(ctx context.Context) *bundle.TokenBundle {
	return s.get(ctx, s.tiers)
}

// GetFast is the synchronous variant used before asynchronous tiers have had
// a chance to resolve (first paint). It never queries slow tiers.
func (s *Store) GetFast(ctx context.Context) *bundle.TokenBundle {
	fast := make([]Tier, 0, len(s.tiers))
	for _, tier := range s.tiers {
		if tier.Synchronous() {
			fast = append(fast, tier)
		}
	}
	return s.get(ctx, fast)
}

func (s *Store) get(ctx context.Context, tiers []Tier) *bundle.TokenBundle {
	now := s.nowTime()
	for _, tier := range tiers {
		b, err := tier.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Str("tier", tier.Name()).Msg("token load failed, trying next tier")
			continue
		}
		if b == nil {
			continue
		}
		if !b.LiveAt(now) {
			log.Debug().Str("tier", tier.Name()).Time("expiresAt", b.ExpiresAt).Msg("expired bundle dropped")
			if err := tier.Clear(ctx); err != nil {
				log.Warn().Err(err).Str("tier", tier.Name()).Msg("failed clearing expired bundle")
			}
			continue
		}
		if _, fromFragment := tier.(*FragmentTier); fromFragment {
			// Decode-once handoff: immediately re-persist through the
			// normal tier order so the next reload doesn't depend on it.
			if err := s.saveAll(ctx, b); err != nil {
				log.Warn().Err(err).Msg("failed re-saving fragment bundle")
			}
		} else if tier != Tier(s.memory) {
			_ = s.memory.Save(ctx, b) // read-repair, cannot fail
		}
		return b
	}
	return nil
}

// Clear wipes every tier unconditionally, including the one-shot fragment.
// Safe to call when no session exists.
func (s *Store) Clear(ctx context.Context) {
	for _, tier := range s.tiers {
		if err := tier.Clear(ctx); err != nil {
			log.Warn().Err(err).Str("tier", tier.Name()).Msg("token clear failed")
		}
	}
}
