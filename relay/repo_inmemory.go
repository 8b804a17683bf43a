package relay

import (
	"context"
	"sync"
	"time"

	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/adboardhq/auth-relay/internal/utils"
	"github.com/adboardhq/auth-relay/message"
	"github.com/pkg/errors"
)

const defaultSessionTTL = 5 * time.Minute

// InMemoryRepo is a thread-safe in-memory implementation of Repo for
// single-node relay deployments and tests.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	nowTime  func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryOption modifies an InMemoryRepo instance.
type InMemoryOption func(*InMemoryRepo)

// WithSessionTTL overrides the server-side session lifetime.
func WithSessionTTL(ttl time.Duration) InMemoryOption {
	return func(r *InMemoryRepo) {
		r.ttl = ttl
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) InMemoryOption {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

// NewInMemoryRepo creates a new in-memory relay session repository
func NewInMemoryRepo(options ...InMemoryOption) *InMemoryRepo {
	r := &InMemoryRepo{
		sessions: make(map[string]*Session),
		ttl:      defaultSessionTTL,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Create registers an empty session under the id
func (r *InMemoryRepo) Create(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("sessionID cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = &Session{
		SessionID: sessionID,
		CreatedAt: r.nowTime(),
	}
	return nil
}

// Write stores the payload, first-write-wins
func (r *InMemoryRepo) Write(_ context.Context, sessionID string, payload message.AuthMessage) (bool, error) {
	if sessionID == "" {
		return false, errors.New("sessionID cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok || r.expired(session) {
		delete(r.sessions, sessionID)
		return false, autherrors.ErrSessionNotFound
	}
	if session.Payload != nil {
		return false, nil // earlier write already won
	}
	session.Payload = utils.Ptr(payload)
	session.WrittenAt = r.nowTime()
	return true, nil
}

// Read returns the payload, or nil when the session is still unwritten
func (r *InMemoryRepo) Read(_ context.Context, sessionID string) (*message.AuthMessage, error) {
	if sessionID == "" {
		return nil, errors.New("sessionID cannot be empty")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok || r.expired(session) {
		return nil, autherrors.ErrSessionNotFound
	}
	if session.Payload == nil {
		return nil, nil
	}
	return utils.Ptr(utils.Value(session.Payload)), nil
}

// Delete removes a session
func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

// PurgeExpired drops every expired session and returns how many were
// removed. Run periodically by the relay server's janitor.
func (r *InMemoryRepo) PurgeExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for id, session := range r.sessions {
		if r.expired(session) {
			delete(r.sessions, id)
			purged++
		}
	}
	return purged
}

func (r *InMemoryRepo) expired(s *Session) bool {
	return r.nowTime().Sub(s.CreatedAt) > r.ttl
}
