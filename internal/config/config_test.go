package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8088
  secure_cookies: true
database:
  path: "/tmp/sololink.db"
admin:
  username: "root"
  password: "hunter2"
alert:
  send_timeout: "5s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port = %d, want 8088", cfg.Server.Port)
	}
	if !cfg.Server.SecureCookies {
		t.Error("Server.SecureCookies = false, want true")
	}
	if cfg.Alert.SendTimeout != 5*time.Second {
		t.Errorf("Alert.SendTimeout = %v, want 5s", cfg.Alert.SendTimeout)
	}
	if !cfg.Admin.Configured() {
		t.Error("Admin.Configured() = false, want true")
	}
	// defaults fill what the file leaves out
	if cfg.Maintenance.Interval != time.Hour {
		t.Errorf("Maintenance.Interval = %v, want 1h", cfg.Maintenance.Interval)
	}
	if len(cfg.Server.TrustedProxies) != 0 {
		t.Errorf("Server.TrustedProxies = %v, want empty", cfg.Server.TrustedProxies)
	}
	if cfg.App.PageSize != 20 || cfg.App.MaxPageSize != 100 {
		t.Errorf("App = %+v, want page_size 20 max 100", cfg.App)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
admin:
  username: "admin"
`)
	t.Setenv("SOLOLINK_ADMIN_PASSWORD", "from-env")
	t.Setenv("SOLOLINK_SERVER_PORT", "9001")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Admin.Password != "from-env" {
		t.Errorf("Admin.Password = %q, want from-env", cfg.Admin.Password)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", cfg.Server.Port)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing explicit file")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad port":        "server:\n  port: 70000\n",
		"zero timeout":    "alert:\n  send_timeout: \"0s\"\n",
		"bad format":      "log:\n  format: \"xml\"\n",
		"short retention": "maintenance:\n  attempt_retention: \"30m\"\n",
		"2h retention":    "maintenance:\n  attempt_retention: \"2h\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Errorf("Load() error = nil, want error")
			}
		})
	}
}

func TestAdminConfigured(t *testing.T) {
	cases := []struct {
		admin AdminConfig
		want  bool
	}{
		{AdminConfig{}, false},
		{AdminConfig{Username: "admin"}, false},
		{AdminConfig{Password: "x"}, false},
		{AdminConfig{Username: "admin", Password: "x"}, true},
		{AdminConfig{Username: "admin", PasswordHash: "$2a$..."}, true},
	}
	for _, tc := range cases {
		if got := tc.admin.Configured(); got != tc.want {
			t.Errorf("%+v.Configured() = %v, want %v", tc.admin, got, tc.want)
		}
	}
}

func TestLoad_MinimumRetention(t *testing.T) {
	cfg, err := Load(writeConfig(t, "maintenance:\n  attempt_retention: \"2h10m\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Maintenance.AttemptRetention != minAttemptRetention {
		t.Errorf("AttemptRetention = %v, want %v", cfg.Maintenance.AttemptRetention, minAttemptRetention)
	}
}
