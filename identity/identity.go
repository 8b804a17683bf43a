// Package identity is the boundary to the external identity provider: it
// verifies credentials, invalidates server-side state on sign-out, and
// resolves the user's dashboard role. Token issuance and validation live
// entirely on the provider's side; this package treats tokens as opaque.
package identity

import (
	"context"
)

// RoleType defines the dashboard roles passed through as opaque data by the
// relay protocol.
type RoleType string

const (
	RoleAdmin   RoleType = "admin"
	RoleAgency  RoleType = "agency"
	RoleAnalyst RoleType = "analyst"
	// RoleViewer is the non-privileged default when no role source yields
	// anything.
	RoleViewer RoleType = "viewer"
)

// Tokens is the provider's answer to a successful credential check.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
}

// Provider verifies credentials and owns real token lifetimes.
type Provider interface {
	// Verify checks the credentials and returns fresh tokens, or
	// errors.ErrAuthRejected when the provider refuses them.
	Verify(ctx context.Context, email, password string) (*Tokens, error)

	// Invalidate revokes server-side session state for the refresh token.
	Invalidate(ctx context.Context, refreshToken string) error
}

// ProfileStore is the external relational store of user profiles. It is the
// first and most authoritative role source.
type ProfileStore interface {
	// GetRole returns the profile's role, or errors.ErrNotFound when the
	// user has no profile record.
	GetRole(ctx context.Context, userID string) (RoleType, error)
}

// HostSession is the embedding platform's native session lookup, used by the
// session manager as the non-iframe fallback.
type HostSession interface {
	// Current returns the platform session's tokens, or nil when signed out.
	Current(ctx context.Context) (*Tokens, error)
}
