package sessions

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jrsteele09/somtoday-proxy/internal/config"
	"github.com/jrsteele09/somtoday-proxy/internal/errors"
	"github.com/rs/zerolog/log"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo. Sessions do
// not survive a restart.
type InMemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]Session // vanityCode -> Session
	byUser   map[string]string  // user -> vanityCode

	lifetime time.Duration
	minWidth int
	now      func() time.Time
	intn     func(n int) int
}

// Option configures an InMemoryRepo.
type Option func(*InMemoryRepo)

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(r *InMemoryRepo) {
		r.now = now
	}
}

// WithCodeSource replaces the random number source used to mint vanity codes.
// fn must return a value in [0, n).
func WithCodeSource(fn func(n int) int) Option {
	return func(r *InMemoryRepo) {
		r.intn = fn
	}
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo(cfg config.SessionConfig, opts ...Option) *InMemoryRepo {
	r := &InMemoryRepo{
		sessions: make(map[string]Session),
		byUser:   make(map[string]string),
		lifetime: cfg.GetSessionLifetime(),
		minWidth: cfg.GetVanityCodeWidth(),
		now:      time.Now,
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateSession returns the live session for user if there is one, otherwise
// it mints a new vanity code and stores a fresh session.
func (r *InMemoryRepo) CreateSession(user, callbackURL string, spoonfeed bool) (Session, error) {
	if user == "" {
		return Session{}, &RejectedError{Field: "user"}
	}
	if callbackURL == "" {
		return Session{}, &RejectedError{Field: "callbackUrl"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if code, ok := r.byUser[user]; ok {
		existing := r.sessions[code]
		if !existing.Expired(now) {
			return existing, nil
		}
		r.remove(code)
	}

	session := Session{
		User:        user,
		VanityCode:  r.generateCode(),
		CallbackURL: callbackURL,
		ExpiresAt:   now.Add(r.lifetime),
		Spoonfeed:   spoonfeed,
	}
	r.sessions[session.VanityCode] = session
	r.byUser[user] = session.VanityCode
	return session, nil
}

// GetSession looks up a live session without consuming it
func (r *InMemoryRepo) GetSession(vanityCode string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[vanityCode]
	if !ok || session.Expired(r.now()) {
		return Session{}, fmt.Errorf("[InMemoryRepo GetSession] %s: %w", vanityCode, errors.ErrSessionNotFound)
	}
	return session, nil
}

// ConsumeSession removes and returns a live session in one step. Of several
// concurrent callers for the same code only one gets the session.
func (r *InMemoryRepo) ConsumeSession(vanityCode string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[vanityCode]
	if !ok {
		return Session{}, fmt.Errorf("[InMemoryRepo ConsumeSession] %s: %w", vanityCode, errors.ErrSessionNotFound)
	}
	r.remove(vanityCode)
	if session.Expired(r.now()) {
		return Session{}, fmt.Errorf("[InMemoryRepo ConsumeSession] %s expired: %w", vanityCode, errors.ErrSessionNotFound)
	}
	return session, nil
}

// RemoveSession deletes a session. Removing an absent code is a no-op.
func (r *InMemoryRepo) RemoveSession(vanityCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(vanityCode)
}

// Count returns the number of stored sessions, including expired ones the
// sweeper has not reached yet.
func (r *InMemoryRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes every expired session and returns how many were removed.
func (r *InMemoryRepo) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for code, session := range r.sessions {
		if session.Expired(now) {
			r.remove(code)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (r *InMemoryRepo) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				log.Info().Int("removed", removed).Int("live", r.Count()).Msg("Expired sessions swept")
			}
		}
	}
}

// remove must be called with r.mu held
func (r *InMemoryRepo) remove(vanityCode string) {
	session, ok := r.sessions[vanityCode]
	if !ok {
		return
	}
	delete(r.sessions, vanityCode)
	if r.byUser[session.User] == vanityCode {
		delete(r.byUser, session.User)
	}
}

// generateCode must be called with r.mu held
func (r *InMemoryRepo) generateCode() string {
	width := codeWidth(len(r.sessions), r.minWidth)
	space := codeSpace(width)
	for {
		code := formatCode(r.intn(space), width)
		if _, taken := r.sessions[code]; !taken {
			return code
		}
	}
}
