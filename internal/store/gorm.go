package store

import (
	"context"
	"errors"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the SQLite-backed RecordStore. All timestamps are written in
// UTC so that SQLite's text comparison orders them correctly.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ RecordStore = (*GormStore)(nil)

// NewGormStore wraps an opened and migrated database.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	o := buildOptions(opts)
	return &GormStore{db: db, now: o.now}
}

func (s *GormStore) clock() time.Time {
	return s.now().UTC()
}

// ---------- settings ----------

func (s *GormStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var row models.Setting
	err := s.db.WithContext(ctx).Where("`key` = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("get setting", err)
	}
	return row.Value, true, nil
}

func (s *GormStore) SetSetting(ctx context.Context, key, value string) error {
	row := models.Setting{Key: key, Value: value, UpdatedAt: s.clock()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	return wrap("set setting", err)
}

func (s *GormStore) AllSettings(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, wrap("list settings", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// ---------- charging events ----------

func (s *GormStore) CreateEvent(ctx context.Context, e *models.ChargingEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}
	if e.EventType == "" {
		e.EventType = "charging"
	}
	return wrap("create event", s.db.WithContext(ctx).Create(e).Error)
}

func (s *GormStore) LatestEvent(ctx context.Context) (*models.ChargingEvent, error) {
	var e models.ChargingEvent
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("latest event", err)
	}
	return &e, nil
}

func (s *GormStore) ListEvents(ctx context.Context, page, limit int) ([]models.ChargingEvent, int64, error) {
	page, limit = normalizePage(page, limit)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.ChargingEvent{}).Count(&total).Error; err != nil {
		return nil, 0, wrap("count events", err)
	}

	var events []models.ChargingEvent
	if err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&events).Error; err != nil {
		return nil, 0, wrap("list events", err)
	}
	return events, total, nil
}

func (s *GormStore) AllEvents(ctx context.Context) ([]models.ChargingEvent, error) {
	var events []models.ChargingEvent
	if err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&events).Error; err != nil {
		return nil, wrap("all events", err)
	}
	return events, nil
}

func (s *GormStore) DeleteEvent(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.ChargingEvent{}, id)
	if res.Error != nil {
		return false, wrap("delete event", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) DeleteAllEvents(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.ChargingEvent{})
	if res.Error != nil {
		return 0, wrap("delete all events", res.Error)
	}
	return res.RowsAffected, nil
}

// ---------- login attempts ----------

func (s *GormStore) RecordLoginAttempt(ctx context.Context, ip string, success bool) error {
	a := models.LoginAttempt{
		IPAddress:   ip,
		AttemptedAt: s.clock(),
		Success:     success,
	}
	return wrap("record login attempt", s.db.WithContext(ctx).Create(&a).Error)
}

func (s *GormStore) CountRecentFailures(ctx context.Context, ip string, window time.Duration) (int64, error) {
	since := s.clock().Add(-window)
	var n int64
	err := s.db.WithContext(ctx).Model(&models.LoginAttempt{}).
		Where("ip_address = ? AND success = ? AND attempted_at > ?", ip, false, since).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count failures", err)
	}
	return n, nil
}

func (s *GormStore) MostRecentFailure(ctx context.Context, ip string) (time.Time, bool, error) {
	var a models.LoginAttempt
	err := s.db.WithContext(ctx).
		Where("ip_address = ? AND success = ?", ip, false).
		Order("attempted_at DESC, id DESC").
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, wrap("most recent failure", err)
	}
	return a.AttemptedAt, true, nil
}

func (s *GormStore) PurgeLoginAttempts(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("attempted_at < ?", s.clock().Add(-olderThan)).
		Delete(&models.LoginAttempt{})
	if res.Error != nil {
		return 0, wrap("purge login attempts", res.Error)
	}
	return res.RowsAffected, nil
}

// ---------- sessions ----------

func (s *GormStore) CreateSession(ctx context.Context, id string, ttl time.Duration) (*models.Session, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	now := s.clock()
	sess := models.Session{ID: id, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, wrap("create session", err)
	}
	return &sess, nil
}

func (s *GormStore) IsSessionValid(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND expires_at > ?", id, s.clock()).
		Count(&n).Error
	if err != nil {
		return false, wrap("validate session", err)
	}
	return n > 0, nil
}

func (s *GormStore) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return wrap("delete session", s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error)
}

func (s *GormStore) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.clock()).
		Delete(&models.Session{})
	if res.Error != nil {
		return 0, wrap("purge sessions", res.Error)
	}
	return res.RowsAffected, nil
}
