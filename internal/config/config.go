// Package config provides YAML-based configuration loading for rxcare.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level rxcare configuration, loaded from rxcare.yaml.
type Config struct {
	Language  string          `yaml:"language"` // display language code, e.g. "es"
	Storage   StorageConfig   `yaml:"storage"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`
	API       APIConfig       `yaml:"api"`
}

// StorageConfig selects the database backend. SQLite is the default;
// setting driver to "mysql" switches to a server-backed store.
type StorageConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" (default) or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// GatewayConfig holds the analysis backend connection settings.
type GatewayConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// CalendarConfig holds calendar service settings. TokenPath points at the
// OAuth token JSON saved by "rx auth".
type CalendarConfig struct {
	BaseURL      string `yaml:"base_url"`
	TokenPath    string `yaml:"token_path"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
}

// SchedulerConfig controls the reminder check cadence.
type SchedulerConfig struct {
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	Permission      string        `yaml:"permission"` // granted, denied, undetermined
}

// NotifyConfig configures notification sinks. All are optional; reminders
// with no configured sink are checked but never delivered anywhere.
type NotifyConfig struct {
	Command        string `yaml:"command"` // shell template, e.g. "notify-send 'rxcare' '{{.Subject}}'"
	SlackToken     string `yaml:"slack_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Language == "" {
		c.Language = "en"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "rxcare.db"
	}
	if c.Storage.Host == "" {
		c.Storage.Host = "127.0.0.1"
	}
	if c.Storage.Port == 0 {
		c.Storage.Port = 3306
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "rxcare"
	}
	if c.Storage.User == "" {
		c.Storage.User = "root"
	}
	if c.Gateway.TimeoutSeconds == 0 {
		c.Gateway.TimeoutSeconds = 120
	}
	c.Gateway.Timeout = time.Duration(c.Gateway.TimeoutSeconds) * time.Second
	if c.Calendar.TokenPath == "" {
		c.Calendar.TokenPath = "token.json"
	}
	if c.Scheduler.IntervalSeconds == 0 {
		c.Scheduler.IntervalSeconds = 30
	}
	c.Scheduler.Interval = time.Duration(c.Scheduler.IntervalSeconds) * time.Second
	if c.Scheduler.Permission == "" {
		c.Scheduler.Permission = "undetermined"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Gateway.BaseURL == "" {
		errs = append(errs, "gateway.base_url is required")
	}
	switch c.Storage.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("storage.driver must be sqlite or mysql, got %q", c.Storage.Driver))
	}
	// A check cadence above a minute can skip a reminder's matching minute
	// entirely between ticks.
	if c.Scheduler.IntervalSeconds < 0 || c.Scheduler.IntervalSeconds > 60 {
		errs = append(errs, "scheduler.interval_seconds must be between 1 and 60")
	}
	switch c.Scheduler.Permission {
	case "granted", "denied", "undetermined":
	default:
		errs = append(errs, fmt.Sprintf("scheduler.permission must be granted, denied or undetermined, got %q", c.Scheduler.Permission))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
