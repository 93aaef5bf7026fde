// Package auth decides admin logins, derives per-IP lockout from the login
// attempt log and manages session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/config"
	"github.com/hst-Sunday/SoloLink/internal/store"

	"golang.org/x/crypto/bcrypt"
)

const (
	FailureThreshold = 5
	FailureWindow    = 10 * time.Minute
	LockoutDuration  = 2 * time.Hour
	SessionTTL       = 24 * time.Hour

	// AttemptHorizon is how far back LockRemaining can look: a burst may
	// start one FailureWindow before the failure that holds the lock.
	AttemptHorizon = LockoutDuration + FailureWindow

	sessionIDBytes = 32 // 256 bits
)

// ErrNotConfigured means no admin identity is configured. Retrying will not help.
var ErrNotConfigured = errors.New("admin identity not configured")

// LockedOutError rejects an attempt from an IP in the locked state.
type LockedOutError struct {
	Remaining time.Duration
	Until     time.Time
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed attempts, locked for %s", e.Remaining.Round(time.Second))
}

// InvalidCredentialsError is a failed attempt that did not trigger a lockout.
type InvalidCredentialsError struct {
	RemainingAttempts int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid username or password, %d attempts left", e.RemainingAttempts)
}

// LoginResult describes the session issued by a successful login.
type LoginResult struct {
	SessionID string
	ExpiresAt time.Time
}

// Store is the subset of the record store the guard needs.
type Store interface {
	store.AttemptStore
	store.SessionStore
}

// Guard checks credentials and lockout state. It keeps no state of its own:
// every decision re-reads the store.
type Guard struct {
	store Store
	admin config.AdminConfig
	now   func() time.Time
	newID func() (string, error)
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithIDGenerator replaces the session id source.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(g *Guard) { g.newID = fn }
}

// NewGuard builds a guard for the single configured admin.
func NewGuard(s Store, admin config.AdminConfig, opts ...Option) *Guard {
	g := &Guard{
		store: s,
		admin: admin,
		now:   time.Now,
		newID: NewSessionID,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSessionID returns a URL-safe token carrying 256 bits of entropy.
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// LockRemaining reports how long ip stays locked, or zero when it is open.
//
// An IP is locked while its most recent failure is younger than
// LockoutDuration and that failure closed a burst of at least
// FailureThreshold failures inside one FailureWindow. Attempts rejected while
// locked are never recorded, so the burst stays fixed until it ages out.
// The lock therefore lasts LockoutDuration from the last failure even after
// the burst has left the FailureWindow used for counting attempts.
func (g *Guard) LockRemaining(ctx context.Context, ip string) (time.Duration, error) {
	last, ok, err := g.store.MostRecentFailure(ctx, ip)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	elapsed := g.now().Sub(last)
	if elapsed >= LockoutDuration {
		return 0, nil
	}
	if elapsed < 0 {
		elapsed = 0
	}
	// failures in (last-FailureWindow, now]
	failures, err := g.store.CountRecentFailures(ctx, ip, elapsed+FailureWindow)
	if err != nil {
		return 0, err
	}
	if failures < FailureThreshold {
		return 0, nil
	}
	return LockoutDuration - elapsed, nil
}

// Login evaluates one attempt from ip. Expected outcomes other than success
// come back as *LockedOutError, *InvalidCredentialsError or ErrNotConfigured;
// any other error is a store failure.
func (g *Guard) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	remaining, err := g.LockRemaining(ctx, ip)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		// a rejected attempt while locked is not recorded
		return nil, &LockedOutError{Remaining: remaining, Until: g.now().Add(remaining)}
	}

	if !g.admin.Configured() {
		return nil, ErrNotConfigured
	}

	if g.credentialsMatch(username, password) {
		if err := g.store.RecordLoginAttempt(ctx, ip, true); err != nil {
			return nil, err
		}
		id, err := g.newID()
		if err != nil {
			return nil, err
		}
		sess, err := g.store.CreateSession(ctx, id, SessionTTL)
		if err != nil {
			return nil, err
		}
		return &LoginResult{SessionID: sess.ID, ExpiresAt: sess.ExpiresAt}, nil
	}

	if err := g.store.RecordLoginAttempt(ctx, ip, false); err != nil {
		return nil, err
	}
	failures, err := g.store.CountRecentFailures(ctx, ip, FailureWindow)
	if err != nil {
		return nil, err
	}
	left := FailureThreshold - int(failures)
	if left <= 0 {
		return nil, &LockedOutError{Remaining: LockoutDuration, Until: g.now().Add(LockoutDuration)}
	}
	return nil, &InvalidCredentialsError{RemainingAttempts: left}
}

func (g *Guard) credentialsMatch(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.admin.Username)) == 1
	var passOK bool
	if g.admin.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(g.admin.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(g.admin.Password)) == 1
	}
	return userOK && passOK
}

// ValidateSession reports whether id names a live session.
func (g *Guard) ValidateSession(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	return g.store.IsSessionValid(ctx, id)
}

// Logout deletes the session. Unknown or empty ids are not an error.
func (g *Guard) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return g.store.DeleteSession(ctx, id)
}
