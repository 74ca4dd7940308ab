package errors

import (
	"errors"
	"fmt"
)

// Common error types for the portal's authentication core
var (
	// Credential errors
	ErrNoCredentialPresented   = errors.New("no credential presented")
	ErrCredentialExpiredOrUsed = errors.New("credential expired or already used")
	ErrCredentialMalformed     = errors.New("credential malformed")

	// Provider errors
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// Redirect errors
	ErrOpenRedirectRejected = errors.New("redirect target rejected")

	// Session errors
	ErrSessionLookupFailed = errors.New("session lookup failed")
	ErrSessionNotFound     = errors.New("session not found")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
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

// IsCredentialError reports whether err means the presented credential was rejected
// by the provider, as opposed to the provider being unreachable.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrCredentialExpiredOrUsed) || errors.Is(err, ErrCredentialMalformed)
}
