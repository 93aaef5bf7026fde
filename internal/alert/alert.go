// Package alert detects stale telemetry and sends at most one email per
// stale incident.
package alert

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/models"
	"github.com/hst-Sunday/SoloLink/internal/store"
)

// Reasons reported by CheckAndSend when nothing was sent.
const (
	ReasonNoTelemetry    = "no telemetry yet"
	ReasonBelowThreshold = "below threshold"
	ReasonAlreadySent    = "already sent"
	ReasonSendFailed     = "send failed"
)

const (
	defaultAlertHours = 24
	defaultSubject    = "Charging event timeout"
	defaultBody       = "Your device has not reported a charging event for more than {hours} hours. Please check the device."
)

// Transport delivers one message to the configured recipient.
type Transport interface {
	Send(ctx context.Context, subject, body string) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, subject, body string) error

func (f TransportFunc) Send(ctx context.Context, subject, body string) error {
	return f(ctx, subject, body)
}

// Store is the subset of the record store the checker reads and writes.
type Store interface {
	store.SettingStore
	LatestEvent(ctx context.Context) (*models.ChargingEvent, error)
}

// Result is the outcome of one check.
type Result struct {
	Sent   bool   `json:"sent"`
	Reason string `json:"reason,omitempty"`
	// Err is the transport error behind ReasonSendFailed. It is logged, never
	// returned to clients.
	Err error `json:"-"`
}

// Checker runs a single check-and-send cycle. It is not safe for concurrent
// use on its own; Scheduler serializes calls.
type Checker struct {
	store       Store
	transport   Transport
	sendTimeout time.Duration
	now         func() time.Time
}

// NewChecker builds a checker. sendTimeout bounds each transport call.
func NewChecker(s Store, t Transport, sendTimeout time.Duration, now func() time.Time) *Checker {
	if now == nil {
		now = time.Now
	}
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Checker{store: s, transport: t, sendTimeout: sendTimeout, now: now}
}

// CheckAndSend evaluates staleness and sends the alert when due. Expected
// non-sends come back as Result with a reason; err is only set for store
// failures, in which case nothing was sent.
func (c *Checker) CheckAndSend(ctx context.Context) (Result, error) {
	settings, err := c.store.AllSettings(ctx)
	if err != nil {
		return Result{}, err
	}
	alertHours := positiveInt(settings[models.SettingAlertHours], defaultAlertHours)

	latest, err := c.store.LatestEvent(ctx)
	if err != nil {
		return Result{}, err
	}
	if latest == nil {
		return Result{Reason: ReasonNoTelemetry}, nil
	}

	now := c.now()
	since := now.Sub(latest.CreatedAt)
	if since <= time.Duration(alertHours)*time.Hour {
		return Result{Reason: ReasonBelowThreshold}, nil
	}

	if marker := settings[models.SettingLastAlertSent]; marker != "" {
		// an unparsable marker is treated as absent so alerts are not lost
		if sentAt, err := time.Parse(time.RFC3339Nano, marker); err == nil && sentAt.After(latest.CreatedAt) {
			return Result{Reason: ReasonAlreadySent}, nil
		}
	}

	subject, body := Render(settings, alertHours)

	sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()
	if err := c.transport.Send(sendCtx, subject, body); err != nil {
		return Result{Reason: ReasonSendFailed, Err: fmt.Errorf("send alert: %w", err)}, nil
	}

	if err := c.store.SetSetting(ctx, models.SettingLastAlertSent, now.UTC().Format(time.RFC3339Nano)); err != nil {
		// the mail went out; report it but surface the failed marker write
		return Result{Sent: true}, err
	}
	return Result{Sent: true}, nil
}

// Render builds the alert subject and body from settings, substituting
// {hours} with the threshold.
func Render(settings map[string]string, alertHours int) (subject, body string) {
	subject = settings[models.SettingAlertSubject]
	if subject == "" {
		subject = defaultSubject
	}
	body = settings[models.SettingAlertBody]
	if body == "" {
		body = defaultBody
	}
	body = strings.ReplaceAll(body, "{hours}", strconv.Itoa(alertHours))
	return subject, body
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
