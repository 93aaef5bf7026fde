package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/auth"
	"github.com/hst-Sunday/SoloLink/internal/config"
	"github.com/hst-Sunday/SoloLink/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJanitor_RunOnce(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore(store.WithClock(clock.Now))
	ctx := context.Background()

	if _, err := s.CreateSession(ctx, "old", time.Hour); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := s.CreateSession(ctx, "fresh", time.Hour); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	s.SeedLoginAttempt("10.0.0.1", false, clock.Now().Add(-25*time.Hour))
	s.SeedLoginAttempt("10.0.0.1", false, clock.Now().Add(-23*time.Hour))
	s.SeedLoginAttempt("10.0.0.2", true, clock.Now().Add(-48*time.Hour))

	j := NewJanitor(s, time.Hour, 24*time.Hour, quietLogger())
	attempts, sessions := j.RunOnce(ctx)
	if attempts != 2 {
		t.Errorf("purged attempts = %d, want 2", attempts)
	}
	if sessions != 1 {
		t.Errorf("purged sessions = %d, want 1", sessions)
	}

	if ok, _ := s.IsSessionValid(ctx, "fresh"); !ok {
		t.Error("fresh session was purged")
	}
	if n, _ := s.CountRecentFailures(ctx, "10.0.0.1", 48*time.Hour); n != 1 {
		t.Errorf("remaining failures = %d, want 1", n)
	}
}

func TestJanitor_StoreFailureIsLogged(t *testing.T) {
	s := store.NewMemoryStore()
	s.FailWith = io.ErrUnexpectedEOF

	j := NewJanitor(s, time.Hour, 24*time.Hour, quietLogger())
	attempts, sessions := j.RunOnce(context.Background())
	if attempts != 0 || sessions != 0 {
		t.Errorf("RunOnce = (%d, %d), want zeros", attempts, sessions)
	}
}

func TestJanitor_StartStop(t *testing.T) {
	s := store.NewMemoryStore()
	j := NewJanitor(s, 5*time.Millisecond, time.Hour, quietLogger())

	j.Start()
	j.Start()
	time.Sleep(20 * time.Millisecond)
	j.Stop()
	j.Stop()
}

func TestJanitor_PruningKeepsLockedBurst(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore(store.WithClock(clock.Now))
	admin := config.AdminConfig{Username: "admin", Password: "pw"}
	guard := auth.NewGuard(s, admin, auth.WithClock(clock.Now))
	ctx := context.Background()
	const ip = "10.0.0.9"

	// 五次失败间隔 2 分钟，最后一次在 t+8m
	start := clock.Now()
	for i := 0; i < auth.FailureThreshold; i++ {
		s.SeedLoginAttempt(ip, false, start.Add(time.Duration(2*i)*time.Minute))
	}
	clock.Advance(124 * time.Minute)

	// 配置的保留时长小于锁定范围时按锁定范围处理
	j := NewJanitor(s, time.Hour, 2*time.Hour, quietLogger())
	if attempts, _ := j.RunOnce(ctx); attempts != 0 {
		t.Errorf("purged attempts = %d, want 0", attempts)
	}

	remaining, err := guard.LockRemaining(ctx, ip)
	if err != nil {
		t.Fatalf("LockRemaining: %v", err)
	}
	if want := 4 * time.Minute; remaining != want {
		t.Errorf("LockRemaining = %v, want %v", remaining, want)
	}
	var locked *auth.LockedOutError
	if _, err := guard.Login(ctx, "admin", "pw", ip); !errors.As(err, &locked) {
		t.Fatalf("Login during lockout: err = %v, want LockedOutError", err)
	}

	// t+131m: 锁定已结束，t+0 的失败超出保留时长被清理
	clock.Advance(7 * time.Minute)
	if attempts, _ := j.RunOnce(ctx); attempts != 1 {
		t.Errorf("purged attempts after lockout = %d, want 1", attempts)
	}
	if _, err := guard.Login(ctx, "admin", "pw", ip); err != nil {
		t.Errorf("Login after lockout: %v", err)
	}
}
