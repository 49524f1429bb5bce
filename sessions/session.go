package sessions

import (
	"fmt"
	"time"

	"github.com/jrsteele09/somtoday-proxy/internal/errors"
)

// Session is a pending login attempt. It is created by a login-URL request and
// lives until a token request consumes it or it expires. Sessions are never
// updated once stored.
type Session struct {
	User        string    // Caller supplied identifier, returned verbatim
	VanityCode  string    // Primary key and first path segment of every proxied URL
	CallbackURL string    // Where the exchange result is POSTed
	ExpiresAt   time.Time // Creation time + session lifetime, never extended
	Spoonfeed   bool      // Proxy performs the code exchange itself
}

// Expired reports whether the session is logically dead at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// RejectedError is returned by CreateSession when a required field is missing.
type RejectedError struct {
	Field string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *RejectedError) Unwrap() error {
	return errors.ErrRejected
}
