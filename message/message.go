// Package message defines the wire envelope exchanged between the popup,
// the embedded dashboard, and the relay server. Every transport (server
// relay, broadcast channel, window messenger) carries the same AuthMessage
// shape so receivers can treat the channels interchangeably.
package message

import (
	"time"

	"github.com/adboardhq/auth-relay/bundle"
	"github.com/pkg/errors"
)

// Type is the discriminant carried by every message. Receivers act only on
// recognized types and ignore the rest.
type Type string

const (
	// TypeAuthSuccess announces a completed popup login carrying tokens.
	TypeAuthSuccess Type = "POPUP_AUTH_SUCCESS"
	// TypeAuthError announces an explicit popup login failure.
	TypeAuthError Type = "POPUP_AUTH_ERROR"
	// TypeAuthRequest asks the embedding parent for any cached bundle.
	TypeAuthRequest Type = "REQUEST_AUTH_TOKEN"
	// TypeAuthUpdate hands the parent a fresh bundle to cache for future
	// iframe reloads.
	TypeAuthUpdate Type = "AUTH_TOKEN_UPDATE"
)

// UserClaims is the minimal identity block inside a success message.
type UserClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthMessage is the authData payload from the relay boundary, reused
// verbatim on the in-process transports.
type AuthMessage struct {
	Type         Type        `json:"type"`
	AccessToken  string      `json:"accessToken,omitempty"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	User         *UserClaims `json:"user,omitempty"`
	Error        string      `json:"error,omitempty"`
	Timestamp    int64       `json:"timestamp"`
	SessionID    string      `json:"sessionId,omitempty"`
}

// Success builds a POPUP_AUTH_SUCCESS message from a bundle.
func Success(sessionID string, b *bundle.TokenBundle, now time.Time) AuthMessage {
	return AuthMessage{
		Type:         TypeAuthSuccess,
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		User: &UserClaims{
			ID:    b.UserID,
			Email: b.Email,
			Role:  b.Role,
		},
		Timestamp: now.UnixMilli(),
		SessionID: sessionID,
	}
}

// Update builds an AUTH_TOKEN_UPDATE message handing a bundle to the
// embedding parent so it can cache it for future iframe reloads.
func Update(b *bundle.TokenBundle, now time.Time) AuthMessage {
	return AuthMessage{
		Type:         TypeAuthUpdate,
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		User: &UserClaims{
			ID:    b.UserID,
			Email: b.Email,
			Role:  b.Role,
		},
		Timestamp: now.UnixMilli(),
	}
}

// Failure builds a POPUP_AUTH_ERROR message.
func Failure(sessionID, cause string, now time.Time) AuthMessage {
	return AuthMessage{
		Type:      TypeAuthError,
		Error:     cause,
		Timestamp: now.UnixMilli(),
		SessionID: sessionID,
	}
}

// Bundle converts a token-carrying message (success or update) back into a
// TokenBundle. ExpiresAt is left zero: the tiered store stamps its own
// client-side TTL on save.
func (m AuthMessage) Bundle() (*bundle.TokenBundle, error) {
	if m.Type != TypeAuthSuccess && m.Type != TypeAuthUpdate {
		return nil, errors.Errorf("[AuthMessage.Bundle] message carries no tokens: %q", m.Type)
	}
	if m.User == nil {
		return nil, errors.New("[AuthMessage.Bundle] success message without user claims")
	}
	b := &bundle.TokenBundle{
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		UserID:       m.User.ID,
		Email:        m.User.Email,
		Role:         m.User.Role,
	}
	if err := b.Validate(); err != nil {
		return nil, errors.Wrap(err, "[AuthMessage.Bundle]")
	}
	return b, nil
}

// IsWellFormedSuccess reports whether the message is a success payload
// complete enough to win the initiator race.
func (m AuthMessage) IsWellFormedSuccess() bool {
	if m.Type != TypeAuthSuccess {
		return false
	}
	_, err := m.Bundle()
	return err == nil
}
