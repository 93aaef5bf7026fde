package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/models"
)

// MemoryStore is an in-process RecordStore. A single mutex serializes every
// operation. Nothing survives a restart, so it is meant for tests and local
// experiments.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	settings map[string]string
	events   []models.ChargingEvent
	nextID   uint
	attempts []models.LoginAttempt
	sessions map[string]models.Session

	// FailWith, when set, is returned (wrapped in ErrStore) by every call.
	FailWith error
}

var _ RecordStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		now:      o.now,
		settings: make(map[string]string),
		sessions: make(map[string]models.Session),
	}
}

func (m *MemoryStore) fail(op string) error {
	if m.FailWith != nil {
		return wrap(op, m.FailWith)
	}
	return nil
}

func (m *MemoryStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("get setting"); err != nil {
		return "", false, err
	}
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *MemoryStore) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("set setting"); err != nil {
		return err
	}
	m.settings[key] = value
	return nil
}

func (m *MemoryStore) AllSettings(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list settings"); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) CreateEvent(ctx context.Context, e *models.ChargingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create event"); err != nil {
		return err
	}
	m.nextID++
	e.ID = m.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now().UTC()
	}
	if e.EventType == "" {
		e.EventType = "charging"
	}
	m.events = append(m.events, *e)
	return nil
}

// sortedEvents returns a newest-first copy. Caller holds mu.
func (m *MemoryStore) sortedEvents() []models.ChargingEvent {
	out := make([]models.ChargingEvent, len(m.events))
	copy(out, m.events)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) LatestEvent(ctx context.Context) (*models.ChargingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("latest event"); err != nil {
		return nil, err
	}
	if len(m.events) == 0 {
		return nil, nil
	}
	e := m.sortedEvents()[0]
	return &e, nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, page, limit int) ([]models.ChargingEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list events"); err != nil {
		return nil, 0, err
	}
	page, limit = normalizePage(page, limit)
	all := m.sortedEvents()
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.ChargingEvent{}, int64(len(all)), nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *MemoryStore) AllEvents(ctx context.Context) ([]models.ChargingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("all events"); err != nil {
		return nil, err
	}
	return m.sortedEvents(), nil
}

func (m *MemoryStore) DeleteEvent(ctx context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete event"); err != nil {
		return false, err
	}
	for i := range m.events {
		if m.events[i].ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) DeleteAllEvents(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete all events"); err != nil {
		return 0, err
	}
	n := int64(len(m.events))
	m.events = nil
	return n, nil
}

func (m *MemoryStore) RecordLoginAttempt(ctx context.Context, ip string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("record login attempt"); err != nil {
		return err
	}
	m.attempts = append(m.attempts, models.LoginAttempt{
		ID:          uint(len(m.attempts) + 1),
		IPAddress:   ip,
		AttemptedAt: m.now().UTC(),
		Success:     success,
	})
	return nil
}

// SeedLoginAttempt appends an attempt with an explicit timestamp.
func (m *MemoryStore) SeedLoginAttempt(ip string, success bool, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, models.LoginAttempt{
		ID:          uint(len(m.attempts) + 1),
		IPAddress:   ip,
		AttemptedAt: at.UTC(),
		Success:     success,
	})
}

func (m *MemoryStore) CountRecentFailures(ctx context.Context, ip string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("count failures"); err != nil {
		return 0, err
	}
	since := m.now().Add(-window)
	var n int64
	for _, a := range m.attempts {
		if a.IPAddress == ip && !a.Success && a.AttemptedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) MostRecentFailure(ctx context.Context, ip string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("most recent failure"); err != nil {
		return time.Time{}, false, err
	}
	var latest time.Time
	found := false
	for _, a := range m.attempts {
		if a.IPAddress != ip || a.Success {
			continue
		}
		if !found || a.AttemptedAt.After(latest) {
			latest = a.AttemptedAt
			found = true
		}
	}
	return latest, found, nil
}

func (m *MemoryStore) PurgeLoginAttempts(ctx context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("purge login attempts"); err != nil {
		return 0, err
	}
	cutoff := m.now().Add(-olderThan)
	kept := m.attempts[:0]
	var n int64
	for _, a := range m.attempts {
		if a.AttemptedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	m.attempts = kept
	return n, nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, id string, ttl time.Duration) (*models.Session, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create session"); err != nil {
		return nil, err
	}
	now := m.now().UTC()
	s := models.Session{ID: id, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	m.sessions[id] = s
	return &s, nil
}

func (m *MemoryStore) IsSessionValid(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("validate session"); err != nil {
		return false, err
	}
	s, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	return m.now().Before(s.ExpiresAt), nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete session"); err != nil {
		return err
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("purge sessions"); err != nil {
		return 0, err
	}
	now := m.now()
	var n int64
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
