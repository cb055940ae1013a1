// Package config loads the server configuration from defaults, an optional
// YAML file and PISO_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "piso"

// Overdue notification policies.
const (
	OverduePolicyDueDay = "due_day"
	OverduePolicyDaily  = "daily"
)

// Config is the complete server configuration.
type Config struct {
	Addr         string        `yaml:"addr"          envconfig:"ADDR"`
	DatabasePath string        `yaml:"database_path" envconfig:"DATABASE_PATH"`
	LogPath      string        `yaml:"log_path"      envconfig:"LOG_PATH"`
	AppURL       string        `yaml:"app_url"       envconfig:"APP_URL"`
	Timezone     string        `yaml:"timezone"      envconfig:"TIMEZONE"`
	CronSecret   string        `yaml:"cron_secret"   envconfig:"CRON_SECRET"`
	JWTSecret    string        `yaml:"jwt_secret"    envconfig:"JWT_SECRET"`
	SessionTTL   time.Duration `yaml:"session_ttl"   envconfig:"SESSION_TTL"`

	Mail     MailConfig     `yaml:"mail"     envconfig:"MAIL"`
	Reminder ReminderConfig `yaml:"reminder" envconfig:"REMINDER"`
	Metrics  MetricsConfig  `yaml:"metrics"  envconfig:"METRICS"`

	location *time.Location
}

// MailConfig configures the transactional mail provider.
type MailConfig struct {
	APIKey  string        `yaml:"api_key"  envconfig:"API_KEY"`
	From    string        `yaml:"from"     envconfig:"FROM"`
	BaseURL string        `yaml:"base_url" envconfig:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout"  envconfig:"TIMEOUT"`
}

// ReminderConfig configures the reminder sweep.
type ReminderConfig struct {
	Workers       int           `yaml:"workers"        envconfig:"WORKERS"`
	Interval      time.Duration `yaml:"interval"       envconfig:"INTERVAL"`
	OverduePolicy string        `yaml:"overdue_policy" envconfig:"OVERDUE_POLICY"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Addr:         ":8080",
		DatabasePath: "piso.sqlite3",
		AppURL:       "http://localhost:8080",
		Timezone:     "UTC",
		SessionTTL:   24 * time.Hour,
		Mail: MailConfig{
			BaseURL: "https://api.resend.com",
			Timeout: 10 * time.Second,
		},
		Reminder: ReminderConfig{
			Workers:       4,
			OverduePolicy: OverduePolicyDueDay,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and resolves the household time zone.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.AppURL != "" {
		if u, err := url.Parse(c.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("app_url %q is not an absolute URL", c.AppURL))
		}
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	} else {
		c.location = loc
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("jwt_secret must be at least 16 characters"))
	}

	if c.Mail.APIKey != "" && c.Mail.From == "" {
		errs = append(errs, errors.New("mail.from is required when mail.api_key is set"))
	}
	if c.Mail.Timeout <= 0 {
		errs = append(errs, errors.New("mail.timeout must be positive"))
	}

	if c.Reminder.Workers < 1 {
		errs = append(errs, errors.New("reminder.workers must be at least 1"))
	}
	if c.Reminder.Interval < 0 {
		errs = append(errs, errors.New("reminder.interval must not be negative"))
	}
	switch c.Reminder.OverduePolicy {
	case OverduePolicyDueDay, OverduePolicyDaily:
	default:
		errs = append(errs, fmt.Errorf("reminder.overdue_policy must be %q or %q, got %q",
			OverduePolicyDueDay, OverduePolicyDaily, c.Reminder.OverduePolicy))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location returns the household time zone. Calendar days for reminders and
// the dish log are computed in it.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}
