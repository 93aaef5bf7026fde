// Package maintenance prunes login attempts and expired sessions.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/auth"
	"github.com/hst-Sunday/SoloLink/internal/store"
)

// Store is what the janitor prunes.
type Store interface {
	PurgeLoginAttempts(ctx context.Context, olderThan time.Duration) (int64, error)
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Janitor periodically deletes login attempts older than the retention and
// sessions past their expiry.
type Janitor struct {
	store     Store
	interval  time.Duration
	retention time.Duration
	log       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Store = (store.RecordStore)(nil)

// NewJanitor builds a stopped janitor. retention is raised to
// auth.AttemptHorizon so pruning never drops a failure a lock still counts.
func NewJanitor(s Store, interval, retention time.Duration, log *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if retention < auth.AttemptHorizon {
		retention = auth.AttemptHorizon
	}
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		store:     s,
		interval:  interval,
		retention: retention,
		log:       log.With("component", "janitor"),
	}
}

// Start launches the background loop. A second Start is a no-op.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel, j.done = cancel, make(chan struct{})
	go j.loop(ctx, j.done)
}

// Stop ends the loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
	j.cancel, j.done = nil, nil
}

func (j *Janitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(j.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs one pruning pass and returns the deleted row counts.
func (j *Janitor) RunOnce(ctx context.Context) (attempts, sessions int64) {
	attempts, err := j.store.PurgeLoginAttempts(ctx, j.retention)
	if err != nil {
		j.log.Error("purge login attempts", "error", err)
	}
	sessions, err = j.store.PurgeExpiredSessions(ctx)
	if err != nil {
		j.log.Error("purge sessions", "error", err)
	}
	if attempts > 0 || sessions > 0 {
		j.log.Info("pruned", "login_attempts", attempts, "sessions", sessions)
	}
	return attempts, sessions
}
