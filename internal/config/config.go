package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// minAttemptRetention is the 2h lockout plus the 10m failure window; a lock
// still counts failures that old.
const minAttemptRetention = 2*time.Hour + 10*time.Minute

type ServerConfig struct {
	Address       string `mapstructure:"address"`
	Port          int    `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
	// TrustedProxies lists proxy addresses whose X-Forwarded-For is honored
	// when resolving the client IP for lockout. Empty means none.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

// AdminConfig is the single administrator identity. It lives only in
// configuration and is never written to the database.
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"` // bcrypt
}

// Configured reports whether a usable admin identity is present.
func (a AdminConfig) Configured() bool {
	return a.Username != "" && (a.Password != "" || a.PasswordHash != "")
}

type AlertConfig struct {
	SendTimeout            time.Duration `mapstructure:"send_timeout"`
	DefaultIntervalMinutes int           `mapstructure:"default_interval_minutes"`
}

type MaintenanceConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	AttemptRetention time.Duration `mapstructure:"attempt_retention"`
}

type LogConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AppSubConfig struct {
	PageSize    int `mapstructure:"page_size"`
	MaxPageSize int `mapstructure:"max_page_size"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Alert       AlertConfig       `mapstructure:"alert"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Log         LogConfig         `mapstructure:"log"`
	App         AppSubConfig      `mapstructure:"app"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.path", "data/app.db")
	v.SetDefault("database.log_mode", false)

	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.password_hash", "")

	v.SetDefault("alert.send_timeout", "30s")
	v.SetDefault("alert.default_interval_minutes", 5)

	v.SetDefault("maintenance.interval", "1h")
	v.SetDefault("maintenance.attempt_retention", "24h")

	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("app.page_size", 20)
	v.SetDefault("app.max_page_size", 100)
}

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it looks for "config.yaml" in the working directory and
// falls back to defaults plus environment when no file exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. SOLOLINK_ADMIN_PASSWORD=secret
	v.SetEnvPrefix("SOLOLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the rest of the program cannot run with.
// A missing admin identity is not an error here: login reports it per request.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("config: database.path must be set")
	}
	if c.Alert.SendTimeout <= 0 {
		return errors.New("config: alert.send_timeout must be positive")
	}
	if c.Alert.DefaultIntervalMinutes <= 0 {
		return errors.New("config: alert.default_interval_minutes must be positive")
	}
	if c.Maintenance.Interval <= 0 {
		return errors.New("config: maintenance.interval must be positive")
	}
	if c.Maintenance.AttemptRetention < minAttemptRetention {
		return fmt.Errorf("config: maintenance.attempt_retention must be at least %s", minAttemptRetention)
	}
	if c.App.PageSize <= 0 {
		c.App.PageSize = 20
	}
	if c.App.MaxPageSize < c.App.PageSize {
		c.App.MaxPageSize = c.App.PageSize
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("config: unsupported log.format %q", c.Log.Format)
	}
	return nil
}
