package errors

import (
	"errors"
	"fmt"
)

// Common error types for the proxy
var (
	// Validation errors
	ErrRejected = errors.New("request rejected")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Flow errors
	ErrMalformedFlow = errors.New("malformed login flow")

	// Upstream errors
	ErrUpstreamExchange    = errors.New("upstream token exchange failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
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
