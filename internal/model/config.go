package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPollInterval is how often the inbox is refreshed when nothing
// else is configured.
const DefaultPollInterval = 30 * time.Second

// APIConfig holds connection settings for the recruitment platform API.
type APIConfig struct {
	// BaseURL is the root URL of the conversation API
	// (e.g., https://api.example.com/api/v1).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how many times idempotent requests are retried on
	// 429 and 5xx responses. Sending a message is never retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// SyncConfig controls the polling engine.
type SyncConfig struct {
	// PollIntervalMs is the refresh cadence in milliseconds.
	PollIntervalMs int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`

	// FetchTimeoutSec bounds one refresh tick.
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`

	// MaxReconcilePasses is how many poll snapshots may disagree with an
	// optimistic read before the server value is accepted.
	MaxReconcilePasses int `mapstructure:"max_reconcile_passes" yaml:"max_reconcile_passes"`
}

// CacheConfig controls the local snapshot cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it.
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Viewer  Viewer        `mapstructure:"viewer" yaml:"viewer"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// PollInterval returns the configured poll cadence.
func (c *AppConfig) PollInterval() time.Duration {
	if c.Sync.PollIntervalMs <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.Sync.PollIntervalMs) * time.Millisecond
}

// FetchTimeout returns the configured per-tick deadline.
func (c *AppConfig) FetchTimeout() time.Duration {
	if c.Sync.FetchTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Sync.FetchTimeoutSec) * time.Second
}

// Validate checks the settings the engine cannot run without.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if !c.Viewer.Role.Valid() {
		errs = append(errs, fmt.Errorf("viewer.role must be %q or %q, got %q",
			RoleApplicant, RoleRecruiter, c.Viewer.Role))
	}
	if c.Sync.MaxReconcilePasses < 1 {
		errs = append(errs, errors.New("sync.max_reconcile_passes must be at least 1"))
	}
	return errors.Join(errs...)
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/recruit-inbox/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "recruit-inbox", "config.yaml")
}

// DefaultCachePath returns the default location of the snapshot cache.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "inbox.db")
	}
	return filepath.Join(home, ".local", "share", "recruit-inbox", "inbox.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("viewer.role", string(RoleApplicant))
	v.SetDefault("viewer.user_id", "")
	v.SetDefault("sync.poll_interval_ms", int(DefaultPollInterval/time.Millisecond))
	v.SetDefault("sync.fetch_timeout_sec", 30)
	v.SetDefault("sync.max_reconcile_passes", 10)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", DefaultCachePath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file is not an error: defaults apply. INBOX_* environment
// variables (e.g. INBOX_API_BASE_URL) override both.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("INBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Viewer.Role = ParseSenderRole(string(cfg.Viewer.Role))
	if cfg.Sync.MaxReconcilePasses == 0 {
		cfg.Sync.MaxReconcilePasses = 10
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("viewer", map[string]string{
		"role":    string(cfg.Viewer.Role),
		"user_id": cfg.Viewer.UserID,
	})
	v.Set("sync", cfg.Sync)
	v.Set("cache", cfg.Cache)
	v.Set("log", cfg.Log)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
