// Package store holds every piece of persisted state: settings, charging
// events, login attempts and sessions.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/models"
)

// ErrStore marks an underlying persistence failure. Callers test for it with
// errors.Is and fail closed.
var ErrStore = errors.New("store failure")

// ErrInvalidTTL is returned by CreateSession for a non-positive ttl.
var ErrInvalidTTL = errors.New("session ttl must be positive")

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// SettingStore is the key/value settings surface.
type SettingStore interface {
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	SetSetting(ctx context.Context, key, value string) error
	AllSettings(ctx context.Context) (map[string]string, error)
}

// EventStore holds charging events.
type EventStore interface {
	CreateEvent(ctx context.Context, e *models.ChargingEvent) error
	// LatestEvent returns the event with the greatest CreatedAt, or nil when
	// no event exists.
	LatestEvent(ctx context.Context) (*models.ChargingEvent, error)
	ListEvents(ctx context.Context, page, limit int) ([]models.ChargingEvent, int64, error)
	AllEvents(ctx context.Context) ([]models.ChargingEvent, error)
	DeleteEvent(ctx context.Context, id uint) (bool, error)
	DeleteAllEvents(ctx context.Context) (int64, error)
}

// AttemptStore is the append-only login attempt log.
type AttemptStore interface {
	RecordLoginAttempt(ctx context.Context, ip string, success bool) error
	// CountRecentFailures counts failures for ip with attempted_at > now-window.
	CountRecentFailures(ctx context.Context, ip string, window time.Duration) (int64, error)
	MostRecentFailure(ctx context.Context, ip string) (time.Time, bool, error)
	PurgeLoginAttempts(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SessionStore holds admin sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, id string, ttl time.Duration) (*models.Session, error)
	IsSessionValid(ctx context.Context, id string) (bool, error)
	DeleteSession(ctx context.Context, id string) error
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// RecordStore is the full operation set.
type RecordStore interface {
	SettingStore
	EventStore
	AttemptStore
	SessionStore
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for every timestamp the store assigns or
// compares against.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return page, limit
}
