package bundle

import (
	"time"

	"github.com/pkg/errors"
)

// TokenBundle is the unit of transfer and storage for an authenticated
// session: the token pair plus the minimal identity claims the dashboard
// needs. A bundle is immutable once created; a new login produces a new
// bundle that fully replaces any prior one.
type TokenBundle struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// LiveAt reports whether the bundle should still be trusted by the client
// cache at the given instant. This is an optimization only: the identity
// provider owns the real token lifetime, and a locally live bundle can still
// be rejected upstream.
func (b *TokenBundle) LiveAt(now time.Time) bool {
	return b != nil && b.ExpiresAt.After(now)
}

// Validate checks that the bundle is complete enough to adopt as a session.
func (b *TokenBundle) Validate() error {
	if b == nil {
		return errors.New("[TokenBundle.Validate] nil bundle")
	}
	if b.AccessToken == "" {
		return errors.New("[TokenBundle.Validate] missing access token")
	}
	if b.UserID == "" {
		return errors.New("[TokenBundle.Validate] missing user id")
	}
	return nil
}

// WithExpiry returns a copy of the bundle with ExpiresAt set. The receiver is
// never mutated.
func (b TokenBundle) WithExpiry(expiresAt time.Time) *TokenBundle {
	b.ExpiresAt = expiresAt
	return &b
}
