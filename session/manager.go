// Package session owns the application-visible authentication state for the
// life of the embedding page. The Manager resolves its initial state from the
// tiered token store (after asking the embedding parent for anything it has
// cached), adopts out-of-band popup successes arriving on the broadcast
// channel, and exposes the current bundle to the rest of the application
// through an explicit instance with an init/teardown lifecycle.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/adboardhq/auth-relay/bundle"
	"github.com/adboardhq/auth-relay/identity"
	"github.com/adboardhq/auth-relay/message"
	"github.com/adboardhq/auth-relay/tokenstore"
	"github.com/adboardhq/auth-relay/transport/broadcast"
	"github.com/adboardhq/auth-relay/transport/messenger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Navigate performs a page navigation to the given path. Injected so the
// manager stays runtime-agnostic.
type Navigate func(path string)

// Manager is the long-lived session owner for one page. Create it once at
// page start, call Init, and tear it down with Close.
type Manager struct {
	store    *tokenstore.Store
	channel  *broadcast.Channel
	endpoint *messenger.Endpoint
	idp      identity.Provider

	// parent is the embedding parent's message port when this page runs
	// inside an iframe; nil means top-level.
	parent       *messenger.Endpoint
	parentOrigin string

	host     identity.HostSession
	profiles identity.ProfileStore
	navigate Navigate
	nowTime  func() time.Time

	mu      sync.RWMutex
	current *bundle.TokenBundle
	nextID  int
	subs    map[int]func(*bundle.TokenBundle)

	teardown []func()
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithParent marks the page as embedded and attaches the parent's message
// port plus the origin messenger sends to it are pinned to.
func WithParent(parent *messenger.Endpoint, parentOrigin string) ManagerOption {
	return func(m *Manager) {
		m.parent = parent
		m.parentOrigin = parentOrigin
	}
}

// WithHostSession sets the embedding platform's native session lookup, used
// as the top-level fallback when no stored bundle exists.
func WithHostSession(host identity.HostSession) ManagerOption {
	return func(m *Manager) { m.host = host }
}

// WithProfiles sets the profile store consulted when a host session's role
// must be resolved.
func WithProfiles(profiles identity.ProfileStore) ManagerOption {
	return func(m *Manager) { m.profiles = profiles }
}

// WithNavigate sets the navigation function used by NavigateWithAuth.
func WithNavigate(navigate Navigate) ManagerOption {
	return func(m *Manager) { m.navigate = navigate }
}

// WithManagerNowTime sets the now time function (primarily for testing)
func WithManagerNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) { m.nowTime = nowFunc }
}

// NewManager initializes a Manager with required dependencies.
func NewManager(
	store *tokenstore.Store,
	channel *broadcast.Channel,
	endpoint *messenger.Endpoint,
	idp identity.Provider,
	options ...ManagerOption,
) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] token store is required")
	}
	if channel == nil {
		return nil, errors.New("[NewManager] broadcast channel is required")
	}
	if endpoint == nil {
		return nil, errors.New("[NewManager] messenger endpoint is required")
	}
	if idp == nil {
		return nil, errors.New("[NewManager] identity provider is required")
	}

	manager := &Manager{
		store:    store,
		channel:  channel,
		endpoint: endpoint,
		idp:      idp,
		navigate: func(string) {},
		nowTime:  time.Now,
		subs:     make(map[int]func(*bundle.TokenBundle)),
	}
	for _, opt := range options {
		opt(manager)
	}
	return manager, nil
}

// Embedded reports whether the page runs inside an embedding parent.
func (m *Manager) Embedded() bool { return m.parent != nil }

// Init resolves the initial session and starts the long-lived listeners.
// Resolution order: a bundle cached by the embedding parent (requested
// proactively), the tiered token store, then the host platform's native
// session for the top-level case. Call exactly once per page life.
func (m *Manager) Init(ctx context.Context) error {
	// Out-of-band successes: a popup completing while this page is already
	// open is adopted exactly like a direct initiator win.
	unsubBroadcast := m.channel.Subscribe(func(msg message.AuthMessage) {
		if !msg.IsWellFormedSuccess() {
			return
		}
		b, err := msg.Bundle()
		if err != nil {
			return
		}
		log.Debug().Str("sessionId", msg.SessionID).Msg("adopting out-of-band popup success")
		m.SetSessionFromPopup(ctx, b)
	})
	m.teardown = append(m.teardown, unsubBroadcast)

	if m.Embedded() {
		// The parent may answer the request (or push unprompted) with a
		// cached bundle from a previous page life.
		unsubParent := m.endpoint.OnMessage(messenger.FromWindow(m.parent), func(env messenger.Envelope) {
			if env.Data.Type != message.TypeAuthUpdate {
				return
			}
			b, err := env.Data.Bundle()
			if err != nil {
				log.Debug().Err(err).Msg("ignoring malformed cached bundle from parent")
				return
			}
			m.adopt(ctx, b)
		})
		m.teardown = append(m.teardown, unsubParent)

		if err := m.endpoint.Send(m.parent, message.AuthMessage{
			Type:      message.TypeAuthRequest,
			Timestamp: m.nowTime().UnixMilli(),
		}, m.parentOrigin); err != nil {
			log.Debug().Err(err).Msg("cached-token request to parent failed")
		}
	}

	if b := m.store.Get(ctx); b != nil {
		m.adopt(ctx, b)
		return nil
	}

	if !m.Embedded() && m.host != nil {
		tokens, err := m.host.Current(ctx)
		if err != nil {
			return errors.Wrap(err, "[Manager.Init] host session lookup")
		}
		if tokens != nil {
			role := identity.ResolveRole(ctx, m.profiles, tokens.UserID, tokens.AccessToken)
			m.adopt(ctx, &bundle.TokenBundle{
				AccessToken:  tokens.AccessToken,
				RefreshToken: tokens.RefreshToken,
				UserID:       tokens.UserID,
				Email:        tokens.Email,
				Role:         string(role),
			})
		}
	}
	return nil
}

// Current returns the in-memory session bundle, or nil when signed out.
func (m *Manager) Current() *bundle.TokenBundle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers a listener for session changes (nil on sign-out) and
// returns its unsubscribe function.
func (m *Manager) Subscribe(handler func(*bundle.TokenBundle)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = handler
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SetSessionFromPopup is the write path for a page that ran the initiator
// itself: persist through every tier, hand the bundle to the embedding
// parent so it can cache it for future iframe reloads (best-effort), and
// update in-memory state.
func (m *Manager) SetSessionFromPopup(ctx context.Context, b *bundle.TokenBundle) {
	stamped, err := m.store.Save(ctx, b)
	if err != nil {
		log.Warn().Err(err).Msg("token persistence degraded to memory only")
	} else {
		b = stamped
	}
	if m.Embedded() {
		if err := m.endpoint.Send(m.parent, message.Update(b, m.nowTime()), m.parentOrigin); err != nil {
			log.Debug().Err(err).Msg("bundle handoff to parent failed")
		}
	}
	m.setCurrent(b)
}

// SignOut clears local state first so the page reacts immediately, then
// wipes every storage tier, then asks the identity provider to invalidate
// server-side state. The local effect is guaranteed even when the network
// calls fail.
func (m *Manager) SignOut(ctx context.Context) {
	m.mu.Lock()
	prior := m.current
	m.current = nil
	handlers := m.snapshotSubsLocked()
	m.mu.Unlock()
	for _, h := range handlers {
		h(nil)
	}

	m.store.Clear(ctx)
	if prior != nil && prior.RefreshToken != "" {
		if err := m.idp.Invalidate(ctx, prior.RefreshToken); err != nil {
			log.Warn().Err(err).Msg("server-side session invalidation failed")
		}
	}
}

// NavigateWithAuth navigates to path. When embedded with a live session the
// bundle rides along in the URL fragment so the next page can recover it
// even if every persistent tier is blocked.
func (m *Manager) NavigateWithAuth(path string) {
	b := m.Current()
	if m.Embedded() && b != nil {
		fragment, err := bundle.EncodeFragment(b)
		if err != nil {
			log.Warn().Err(err).Msg("fragment encoding failed, navigating without auth")
			m.navigate(path)
			return
		}
		m.navigate(path + fragment)
		return
	}
	m.navigate(path)
}

// Close tears the long-lived listeners down. Safe to call more than once.
func (m *Manager) Close() {
	for _, fn := range m.teardown {
		fn()
	}
	m.teardown = nil
}

// adopt takes a bundle found outside this page's own write path (stored,
// parent-cached, host session) into memory without re-persisting it.
func (m *Manager) adopt(_ context.Context, b *bundle.TokenBundle) {
	m.setCurrent(b)
}

func (m *Manager) setCurrent(b *bundle.TokenBundle) {
	m.mu.Lock()
	m.current = b
	handlers := m.snapshotSubsLocked()
	m.mu.Unlock()
	for _, h := range handlers {
		h(b)
	}
}

func (m *Manager) snapshotSubsLocked() []func(*bundle.TokenBundle) {
	handlers := make([]func(*bundle.TokenBundle), 0, len(m.subs))
	for _, h := range m.subs {
		handlers = append(handlers, h)
	}
	return handlers
}
