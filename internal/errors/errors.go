package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth relay
var (
	// Popup flow errors
	ErrPopupBlocked = errors.New("popup blocked")
	ErrPopupClosed  = errors.New("popup closed before completion")
	ErrAuthTimeout  = errors.New("authentication timed out")
	ErrAuthRejected = errors.New("authentication rejected")

	// Relay errors
	ErrSessionNotFound = errors.New("relay session not found")
	ErrSessionExpired  = errors.New("relay session expired")

	// Storage errors
	ErrTierUnavailable = errors.New("storage tier unavailable")
	ErrAllTiersFailed  = errors.New("all storage tiers failed")

	// Transport errors
	ErrOriginNotAllowed = errors.New("origin not allowed")
	ErrChannelClosed    = errors.New("channel closed")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
