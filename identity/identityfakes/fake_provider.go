package identityfakes

import (
	"context"
	"sync"

	"github.com/adboardhq/auth-relay/identity"
	autherrors "github.com/adboardhq/auth-relay/internal/errors"
)

var _ identity.Provider = (*FakeProvider)(nil)

// FakeProvider verifies against a fixed credential table and records
// invalidated refresh tokens.
type FakeProvider struct {
	mu          sync.Mutex
	users       map[string]fakeUser // email -> user
	Invalidated []string
	FailVerify  error
}

type fakeUser struct {
	password string
	tokens   identity.Tokens
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{users: make(map[string]fakeUser)}
}

// AddUser registers a credential pair and the tokens Verify hands back.
func (p *FakeProvider) AddUser(email, password string, tokens identity.Tokens) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[email] = fakeUser{password: password, tokens: tokens}
}

func (p *FakeProvider) Verify(_ context.Context, email, password string) (*identity.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailVerify != nil {
		return nil, p.FailVerify
	}
	user, ok := p.users[email]
	if !ok || user.password != password {
		return nil, autherrors.ErrAuthRejected
	}
	tokens := user.tokens
	return &tokens, nil
}

func (p *FakeProvider) Invalidate(_ context.Context, refreshToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Invalidated = append(p.Invalidated, refreshToken)
	return nil
}

var _ identity.ProfileStore = (*FakeProfileStore)(nil)

// FakeProfileStore returns roles from a fixed table.
type FakeProfileStore struct {
	mu    sync.Mutex
	roles map[string]identity.RoleType
	Err   error
}

func NewFakeProfileStore() *FakeProfileStore {
	return &FakeProfileStore{roles: make(map[string]identity.RoleType)}
}

func (s *FakeProfileStore) SetRole(userID string, role identity.RoleType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
}

func (s *FakeProfileStore) GetRole(_ context.Context, userID string) (identity.RoleType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	role, ok := s.roles[userID]
	if !ok {
		return "", autherrors.ErrNotFound
	}
	return role, nil
}

var _ identity.HostSession = (*FakeHostSession)(nil)

// FakeHostSession models the embedding platform's native session lookup.
type FakeHostSession struct {
	Tokens *identity.Tokens
	Err    error
}

func (h *FakeHostSession) Current(context.Context) (*identity.Tokens, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	return h.Tokens, nil
}
