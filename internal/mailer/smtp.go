// Package mailer sends alert emails over SMTP using the settings stored in
// the database.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/models"
	"github.com/hst-Sunday/SoloLink/internal/store"

	"github.com/wneessen/go-mail"
)

// ErrNotConfigured means the SMTP settings are incomplete.
var ErrNotConfigured = errors.New("email settings incomplete")

// Settings is the SMTP configuration read from the settings store.
type Settings struct {
	Host   string
	Port   int
	Secure bool // implicit TLS; STARTTLS when possible otherwise
	User   string
	Pass   string
	From   string
	To     []string
}

// SettingsFrom extracts SMTP settings. It returns ErrNotConfigured when host,
// user, password or recipient is missing.
func SettingsFrom(m map[string]string) (Settings, error) {
	s := Settings{
		Host:   strings.TrimSpace(m[models.SettingSMTPHost]),
		User:   strings.TrimSpace(m[models.SettingSMTPUser]),
		Pass:   m[models.SettingSMTPPass],
		From:   strings.TrimSpace(m[models.SettingEmailFrom]),
		Secure: m[models.SettingSMTPSecure] == "true",
		Port:   465,
	}
	for _, addr := range strings.Split(m[models.SettingEmailTo], ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			s.To = append(s.To, addr)
		}
	}
	if s.Host == "" || s.User == "" || s.Pass == "" || len(s.To) == 0 {
		return Settings{}, ErrNotConfigured
	}
	if p, err := strconv.Atoi(strings.TrimSpace(m[models.SettingSMTPPort])); err == nil && p > 0 && p <= 65535 {
		s.Port = p
	}
	if s.From == "" {
		s.From = s.User
	}
	return s, nil
}

// SMTPTransport re-reads the SMTP settings on every send so edits in the
// admin panel apply without a restart.
type SMTPTransport struct {
	settings store.SettingStore
	timeout  time.Duration
}

// NewSMTPTransport builds a transport. timeout bounds dialing and each SMTP
// command; the caller's context bounds the whole send.
func NewSMTPTransport(settings store.SettingStore, timeout time.Duration) *SMTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPTransport{settings: settings, timeout: timeout}
}

// Configured reports whether the stored settings are complete.
func (t *SMTPTransport) Configured(ctx context.Context) (bool, error) {
	all, err := t.settings.AllSettings(ctx)
	if err != nil {
		return false, err
	}
	_, err = SettingsFrom(all)
	return err == nil, nil
}

// Send delivers subject and body as a plain-text message with an HTML
// alternative.
func (t *SMTPTransport) Send(ctx context.Context, subject, body string) error {
	all, err := t.settings.AllSettings(ctx)
	if err != nil {
		return err
	}
	cfg, err := SettingsFrom(all)
	if err != nil {
		return err
	}

	msg, err := BuildMessage(cfg, subject, body)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Pass),
		mail.WithTimeout(t.timeout),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// BuildMessage assembles the message for cfg.
func BuildMessage(cfg Settings, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(cfg.To...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	msg.AddAlternativeString(mail.TypeTextHTML, HTMLBody(body))
	return msg, nil
}

// HTMLBody escapes body and turns newlines into <br>.
func HTMLBody(body string) string {
	return strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")
}
