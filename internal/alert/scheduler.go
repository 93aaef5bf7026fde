package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/models"
	"github.com/hst-Sunday/SoloLink/internal/store"

	"github.com/google/uuid"
)

// Scheduler fires the checker on a fixed interval read from the
// check_interval_minutes setting. Cycles never overlap: a tick that finds a
// cycle in flight is skipped, RunNow waits for it.
type Scheduler struct {
	checker         *Checker
	settings        store.SettingStore
	defaultInterval int
	unit            time.Duration
	log             *slog.Logger

	cycleMu sync.Mutex // held for the whole check-and-send cycle

	lifeMu   sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithIntervalUnit changes what one unit of check_interval_minutes means.
// Tests use it to run the loop in milliseconds.
func WithIntervalUnit(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.unit = d
		}
	}
}

// WithLogger sets the logger used for cycle outcomes.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// NewScheduler builds a stopped scheduler. defaultMinutes applies when the
// setting is missing or invalid.
func NewScheduler(c *Checker, settings store.SettingStore, defaultMinutes int, opts ...SchedulerOption) *Scheduler {
	if defaultMinutes <= 0 {
		defaultMinutes = 5
	}
	s := &Scheduler{
		checker:         c,
		settings:        settings,
		defaultInterval: defaultMinutes,
		unit:            time.Minute,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "alert-scheduler")
	return s
}

// Start begins the recurring check. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.startLocked()
}

// Stop cancels the timer and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.stopLocked()
}

// Restart re-reads the interval setting and reschedules the timer.
func (s *Scheduler) Restart() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.log.Info("restarting schedule")
	s.stopLocked()
	s.startLocked()
}

// Running reports whether the timer is active.
func (s *Scheduler) Running() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.cancel != nil
}

// Interval is the period of the active timer, or zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.interval
}

// RunNow runs one cycle immediately, waiting for any cycle in flight.
func (s *Scheduler) RunNow(ctx context.Context) (Result, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	return s.checker.CheckAndSend(ctx)
}

func (s *Scheduler) startLocked() {
	if s.cancel != nil {
		return
	}
	interval := s.readInterval()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done, s.interval = cancel, done, interval

	s.log.Info("schedule started", "interval", interval.String())
	go s.loop(ctx, interval, done)
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done, s.interval = nil, nil, 0
	s.log.Info("schedule stopped")
}

func (s *Scheduler) readInterval() time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	minutes := s.defaultInterval
	v, ok, err := s.settings.GetSetting(ctx, models.SettingCheckIntervalMinutes)
	switch {
	case err != nil:
		s.log.Warn("read check interval, using default", "error", err, "minutes", minutes)
	case ok:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			minutes = n
		}
	}
	return time.Duration(minutes) * s.unit
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// the cycle runs to completion even if Stop is called meanwhile
			s.fire(context.WithoutCancel(ctx))
		}
	}
}

// fire runs one scheduled cycle unless another is in flight.
func (s *Scheduler) fire(ctx context.Context) {
	if !s.cycleMu.TryLock() {
		s.log.Info("cycle skipped, previous still running")
		return
	}
	defer s.cycleMu.Unlock()

	log := s.log.With("cycle_id", uuid.NewString())
	defer func() {
		if r := recover(); r != nil {
			log.Error("cycle panicked", "panic", fmt.Sprint(r))
		}
	}()

	res, err := s.checker.CheckAndSend(ctx)
	switch {
	case err != nil:
		log.Error("alert check failed", "error", err)
	case res.Sent:
		log.Info("alert sent")
	case res.Err != nil:
		log.Warn("alert send failed", "error", res.Err)
	default:
		log.Info("alert check done", "sent", false, "reason", res.Reason)
	}
}
