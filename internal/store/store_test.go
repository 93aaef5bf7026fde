package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/config"
	"github.com/hst-Sunday/SoloLink/internal/database"
	"github.com/hst-Sunday/SoloLink/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// setupTestDB opens a migrated SQLite database in a per-test directory.
func setupTestDB(t *testing.T, clock *fakeClock) *GormStore {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "store_test.db"),
	})
	if err != nil {
		t.Fatalf("Init test database failed: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormStore(db, WithClock(clock.Now))
}

// forEachStore runs fn against both implementations with a fresh clock.
func forEachStore(t *testing.T, fn func(t *testing.T, s RecordStore, clock *fakeClock)) {
	t.Run("gorm", func(t *testing.T) {
		clock := newFakeClock()
		fn(t, setupTestDB(t, clock), clock)
	})
	t.Run("memory", func(t *testing.T) {
		clock := newFakeClock()
		fn(t, NewMemoryStore(WithClock(clock.Now)), clock)
	})
}

func TestSettings_UpsertLastWriteWins(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore, _ *fakeClock) {
		ctx := context.Background()

		if _, ok, err := s.GetSetting(ctx, "missing_key"); err != nil || ok {
			t.Fatalf("GetSetting(missing) = ok %v err %v, want absent", ok, err)
		}

		if err := s.SetSetting(ctx, "alert_hours", "12"); err != nil {
			t.Fatalf("SetSetting: %v", err)
		}
		if err := s.SetSetting(ctx, "alert_hours", "36"); err != nil {
			t.Fatalf("SetSetting again: %v", err)
		}
		v, ok, err := s.GetSetting(ctx, "alert_hours")
		if err != nil || !ok || v != "36" {
			t.Errorf("GetSetting = (%q, %v, %v), want (36, true, nil)", v, ok, err)
		}

		all, err := s.AllSettings(ctx)
		if err != nil {
			t.Fatalf("AllSettings: %v", err)
		}
		if all["alert_hours"] != "36" {
			t.Errorf("AllSettings[alert_hours] = %q, want 36", all["alert_hours"])
		}
	})
}

func TestEvents_LatestAndPaging(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore, clock *fakeClock) {
		ctx := context.Background()

		latest, err := s.LatestEvent(ctx)
		if err != nil || latest != nil {
			t.Fatalf("LatestEvent on empty store = (%v, %v), want (nil, nil)", latest, err)
		}

		for i := 0; i < 5; i++ {
			level := 10 * i
			if err := s.CreateEvent(ctx, &models.ChargingEvent{BatteryLevel: &level, IsCharging: true}); err != nil {
				t.Fatalf("CreateEvent: %v", err)
			}
			clock.Advance(time.Minute)
		}

		latest, err = s.LatestEvent(ctx)
		if err != nil || latest == nil {
			t.Fatalf("LatestEvent = (%v, %v)", latest, err)
		}
		if latest.BatteryLevel == nil || *latest.BatteryLevel != 40 {
			t.Errorf("latest battery = %v, want 40", latest.BatteryLevel)
		}
		if latest.EventType != "charging" {
			t.Errorf("EventType = %q, want charging", latest.EventType)
		}

		page, total, err := s.ListEvents(ctx, 2, 2)
		if err != nil {
			t.Fatalf("ListEvents: %v", err)
		}
		if total != 5 || len(page) != 2 {
			t.Fatalf("ListEvents = %d items total %d, want 2 of 5", len(page), total)
		}
		if *page[0].BatteryLevel != 20 || *page[1].BatteryLevel != 10 {
			t.Errorf("page 2 batteries = %d,%d want 20,10", *page[0].BatteryLevel, *page[1].BatteryLevel)
		}

		ok, err := s.DeleteEvent(ctx, latest.ID)
		if err != nil || !ok {
			t.Fatalf("DeleteEvent = (%v, %v), want (true, nil)", ok, err)
		}
		ok, err = s.DeleteEvent(ctx, latest.ID)
		if err != nil || ok {
			t.Errorf("DeleteEvent twice = (%v, %v), want (false, nil)", ok, err)
		}

		n, err := s.DeleteAllEvents(ctx)
		if err != nil || n != 4 {
			t.Errorf("DeleteAllEvents = (%d, %v), want (4, nil)", n, err)
		}
		if latest, _ := s.LatestEvent(ctx); latest != nil {
			t.Errorf("LatestEvent after delete all = %+v, want nil", latest)
		}
	})
}

func TestLoginAttempts_WindowedCount(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore, clock *fakeClock) {
		ctx := context.Background()
		const ip = "10.0.0.1"

		for i := 0; i < 4; i++ {
			if err := s.RecordLoginAttempt(ctx, ip, false); err != nil {
				t.Fatalf("RecordLoginAttempt: %v", err)
			}
		}
		clock.Advance(11 * time.Minute)
		if err := s.RecordLoginAttempt(ctx, ip, false); err != nil {
			t.Fatalf("RecordLoginAttempt: %v", err)
		}
		_ = s.RecordLoginAttempt(ctx, ip, true)
		_ = s.RecordLoginAttempt(ctx, "10.0.0.2", false)

		n, err := s.CountRecentFailures(ctx, ip, 10*time.Minute)
		if err != nil || n != 1 {
			t.Errorf("CountRecentFailures = (%d, %v), want (1, nil)", n, err)
		}

		last, ok, err := s.MostRecentFailure(ctx, ip)
		if err != nil || !ok {
			t.Fatalf("MostRecentFailure = (%v, %v, %v)", last, ok, err)
		}
		if !last.Equal(clock.Now()) {
			t.Errorf("MostRecentFailure = %v, want %v", last, clock.Now())
		}

		if _, ok, _ := s.MostRecentFailure(ctx, "192.168.1.1"); ok {
			t.Error("MostRecentFailure for unknown ip reported a failure")
		}

		clock.Advance(24*time.Hour - 5*time.Minute)
		purged, err := s.PurgeLoginAttempts(ctx, 24*time.Hour)
		if err != nil || purged != 4 {
			t.Errorf("PurgeLoginAttempts = (%d, %v), want (4, nil)", purged, err)
		}
	})
}

func TestSessions_Lifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s RecordStore, clock *fakeClock) {
		ctx := context.Background()

		if _, err := s.CreateSession(ctx, "bad", 0); !errors.Is(err, ErrInvalidTTL) {
			t.Errorf("CreateSession(ttl 0) error = %v, want ErrInvalidTTL", err)
		}

		sess, err := s.CreateSession(ctx, "tok-1", 24*time.Hour)
		if err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		if !sess.ExpiresAt.After(sess.CreatedAt) {
			t.Errorf("ExpiresAt %v not after CreatedAt %v", sess.ExpiresAt, sess.CreatedAt)
		}

		if ok, _ := s.IsSessionValid(ctx, "tok-1"); !ok {
			t.Error("fresh session invalid")
		}
		if ok, _ := s.IsSessionValid(ctx, "tok-unknown"); ok {
			t.Error("unknown session valid")
		}

		clock.Advance(24*time.Hour - time.Second)
		if ok, _ := s.IsSessionValid(ctx, "tok-1"); !ok {
			t.Error("session invalid one second before expiry")
		}
		clock.Advance(time.Second)
		if ok, _ := s.IsSessionValid(ctx, "tok-1"); ok {
			t.Error("session valid at expires_at")
		}

		n, err := s.PurgeExpiredSessions(ctx)
		if err != nil || n != 1 {
			t.Errorf("PurgeExpiredSessions = (%d, %v), want (1, nil)", n, err)
		}

		if _, err := s.CreateSession(ctx, "tok-2", time.Hour); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		if err := s.DeleteSession(ctx, "tok-2"); err != nil {
			t.Fatalf("DeleteSession: %v", err)
		}
		if ok, _ := s.IsSessionValid(ctx, "tok-2"); ok {
			t.Error("deleted session still valid")
		}
		if err := s.DeleteSession(ctx, "tok-2"); err != nil {
			t.Errorf("DeleteSession on missing id = %v, want nil", err)
		}
	})
}

func TestMemoryStore_FailWith(t *testing.T) {
	s := NewMemoryStore()
	s.FailWith = errors.New("disk on fire")

	_, _, err := s.GetSetting(context.Background(), "x")
	if !errors.Is(err, ErrStore) {
		t.Errorf("GetSetting error = %v, want ErrStore", err)
	}
	if _, err := s.LatestEvent(context.Background()); !errors.Is(err, ErrStore) {
		t.Errorf("LatestEvent error = %v, want ErrStore", err)
	}
}

func TestAutoMigrate_SeedsDefaultsOnce(t *testing.T) {
	clock := newFakeClock()
	s := setupTestDB(t, clock)
	ctx := context.Background()

	v, ok, err := s.GetSetting(ctx, models.SettingAlertHours)
	if err != nil || !ok || v != "24" {
		t.Fatalf("seeded alert_hours = (%q, %v, %v), want 24", v, ok, err)
	}

	if err := s.SetSetting(ctx, models.SettingAlertHours, "6"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := database.SeedSettings(s.db); err != nil {
		t.Fatalf("SeedSettings: %v", err)
	}
	v, _, _ = s.GetSetting(ctx, models.SettingAlertHours)
	if v != "6" {
		t.Errorf("alert_hours after reseed = %q, want 6", v)
	}
}
