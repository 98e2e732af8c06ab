package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config holds all budget client configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Dashboard  DashboardConfig  `toml:"dashboard"`
	Alerts     AlertsConfig     `toml:"alerts"`
	Appearance AppearanceConfig `toml:"appearance"`
	Logging    LoggingConfig    `toml:"logging"`
	Storage    StorageConfig    `toml:"storage"`
}

// APIConfig locates the budgeting service.
type APIConfig struct {
	BaseURL      string `toml:"base_url"`
	TimeoutSec   int    `toml:"timeout_sec"`
	AITimeoutSec int    `toml:"ai_timeout_sec"`
}

// DashboardConfig controls dashboard loading.
type DashboardConfig struct {
	Join               string `toml:"join"`
	AlertLimit         int    `toml:"alert_limit"`
	InsightLimit       int    `toml:"insight_limit"`
	AutoRefresh        bool   `toml:"auto_refresh"`
	RefreshIntervalSec int    `toml:"refresh_interval_sec"`
}

// AlertsConfig controls alert mutation semantics.
type AlertsConfig struct {
	Consistency string `toml:"consistency"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LoggingConfig controls the stderr logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// StorageConfig locates local state.
type StorageConfig struct {
	CredentialsDB string `toml:"credentials_db,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:      "http://localhost:8000",
			TimeoutSec:   10,
			AITimeoutSec: 60,
		},
		Dashboard: DashboardConfig{
			Join:               "all-or-nothing",
			AlertLimit:         5,
			InsightLimit:       3,
			RefreshIntervalSec: 60,
		},
		Alerts: AlertsConfig{
			Consistency: "baseline",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Timeout is the per-request API timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// AITimeout bounds assistant requests, which wait on a model.
func (c Config) AITimeout() time.Duration {
	return time.Duration(c.API.AITimeoutSec) * time.Second
}

// RefreshInterval is the TUI auto-refresh period.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Dashboard.RefreshIntervalSec) * time.Second
}

// CredentialsPath returns the credential database path, defaulting to the
// XDG data directory.
func (c Config) CredentialsPath() string {
	if c.Storage.CredentialsDB != "" {
		return c.Storage.CredentialsDB
	}
	return filepath.Join(DataDir(), "credentials.db")
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "budget")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "budget")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "budget")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "budget")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides are not applied; see ApplyEnv.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// envOverrides are the settings that may come from the environment.
type envOverrides struct {
	APIURL        string        `env:"BUDGET_API_URL"`
	APITimeout    time.Duration `env:"BUDGET_API_TIMEOUT"`
	AITimeout     time.Duration `env:"BUDGET_AI_TIMEOUT"`
	LogLevel      string        `env:"BUDGET_LOG_LEVEL"`
	LogFormat     string        `env:"BUDGET_LOG_FORMAT"`
	CredentialsDB string        `env:"BUDGET_CREDENTIALS_DB"`
	Theme         string        `env:"BUDGET_THEME"`
}

// ApplyEnv overlays BUDGET_* environment variables onto cfg. Unset
// variables leave cfg untouched.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.APIURL != "" {
		cfg.API.BaseURL = o.APIURL
	}
	if o.APITimeout > 0 {
		cfg.API.TimeoutSec = wholeSeconds(o.APITimeout)
	}
	if o.AITimeout > 0 {
		cfg.API.AITimeoutSec = wholeSeconds(o.AITimeout)
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}
	if o.CredentialsDB != "" {
		cfg.Storage.CredentialsDB = o.CredentialsDB
	}
	if o.Theme != "" {
		cfg.Appearance.Theme = o.Theme
	}
	return nil
}

func wholeSeconds(d time.Duration) int {
	return max(1, int(d.Round(time.Second)/time.Second))
}

var (
	validJoins        = []string{"all-or-nothing", "per-source"}
	validConsistency  = []string{"baseline", "rollback"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
	validLogFormats   = []string{"text", "json"}
	errInvalidSetting = errors.New("configuration validation failed")
)

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		problems = append(problems, fmt.Sprintf("api.base_url %q: must be an http(s) URL", c.API.BaseURL))
	}
	if c.API.TimeoutSec < 1 {
		problems = append(problems, fmt.Sprintf("api.timeout_sec %d: must be at least 1", c.API.TimeoutSec))
	}
	if c.API.AITimeoutSec < 1 {
		problems = append(problems, fmt.Sprintf("api.ai_timeout_sec %d: must be at least 1", c.API.AITimeoutSec))
	}
	if !slices.Contains(validJoins, c.Dashboard.Join) {
		problems = append(problems, fmt.Sprintf("dashboard.join %q: must be one of %v", c.Dashboard.Join, validJoins))
	}
	if c.Dashboard.AlertLimit < 1 || c.Dashboard.InsightLimit < 1 {
		problems = append(problems, "dashboard.alert_limit and dashboard.insight_limit must be positive")
	}
	if c.Dashboard.AutoRefresh && c.Dashboard.RefreshIntervalSec < 5 {
		problems = append(problems, fmt.Sprintf("dashboard.refresh_interval_sec %d: must be at least 5", c.Dashboard.RefreshIntervalSec))
	}
	if !slices.Contains(validConsistency, c.Alerts.Consistency) {
		problems = append(problems, fmt.Sprintf("alerts.consistency %q: must be one of %v", c.Alerts.Consistency, validConsistency))
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		problems = append(problems, fmt.Sprintf("logging.level %q: must be one of %v", c.Logging.Level, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		problems = append(problems, fmt.Sprintf("logging.format %q: must be one of %v", c.Logging.Format, validLogFormats))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n- %s", errInvalidSetting, strings.Join(problems, "\n- "))
	}
	return nil
}
