package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is everything toby needs to reach the household backend and run
// its cache.
type Config struct {
	APIBaseURL     string        `env:"API_BASE_URL"`
	HouseholdID    int64         `env:"HOUSEHOLD_ID"`
	UserID         int64         `env:"USER_ID"`
	PollEvery      time.Duration `env:"POLL_EVERY"`
	GCDelay        time.Duration `env:"GC_DELAY"`
	MaxIdleEntries int           `env:"MAX_IDLE_ENTRIES"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	LogFile        string        `env:"LOG_FILE"`
	LogLevel       string        `env:"LOG_LEVEL"`
	MetricsAddr    string        `env:"METRICS_ADDR"`
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOBY_"

const (
	defaultConfigPath     = "~/.config/toby/config.toml"
	defaultAPIBaseURL     = "http://localhost:5000/api"
	defaultLogFile        = "~/.local/state/toby/toby.log"
	defaultLogLevel       = "info"
	defaultPollEvery      = 30 * time.Second
	defaultGCDelay        = 60 * time.Second
	defaultMaxIdleEntries = 256
	defaultRequestTimeout = 10 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBaseURL:     defaultAPIBaseURL,
		PollEvery:      defaultPollEvery,
		GCDelay:        defaultGCDelay,
		MaxIdleEntries: defaultMaxIdleEntries,
		RequestTimeout: defaultRequestTimeout,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
	}
}

type fileConfig struct {
	APIBaseURL     string `toml:"api_base_url"`
	HouseholdID    int64  `toml:"household_id"`
	UserID         int64  `toml:"user_id"`
	PollSeconds    int    `toml:"poll_seconds"`
	GCDelay        string `toml:"gc_delay"`
	MaxIdleEntries int    `toml:"max_idle_entries"`
	RequestTimeout string `toml:"request_timeout"`
	LogFile        string `toml:"log_file"`
	LogLevel       string `toml:"log_level"`
	MetricsAddr    string `toml:"metrics_addr"`
}

// Load reads the TOML file at path (or the default location), then applies
// TOBY_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := cfg.readFile(resolved); err != nil {
		return Config{}, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBaseURL); v != "" {
		c.APIBaseURL = v
	}
	c.HouseholdID = raw.HouseholdID
	c.UserID = raw.UserID
	if raw.PollSeconds > 0 {
		c.PollEvery = time.Duration(raw.PollSeconds) * time.Second
	}
	if c.GCDelay, err = durationOr(raw.GCDelay, c.GCDelay); err != nil {
		return fmt.Errorf("parse config: gc_delay: %w", err)
	}
	if c.RequestTimeout, err = durationOr(raw.RequestTimeout, c.RequestTimeout); err != nil {
		return fmt.Errorf("parse config: request_timeout: %w", err)
	}
	if raw.MaxIdleEntries > 0 {
		c.MaxIdleEntries = raw.MaxIdleEntries
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = v
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = v
	}
	c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	return nil
}

func durationOr(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}

func (c *Config) normalize() {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.PollEvery <= 0 {
		c.PollEvery = defaultPollEvery
	}
	if c.GCDelay <= 0 {
		c.GCDelay = defaultGCDelay
	}
	if c.MaxIdleEntries <= 0 {
		c.MaxIdleEntries = defaultMaxIdleEntries
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	c.LogFile = mustExpand(c.LogFile)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate reports settings the client cannot start without.
func (c Config) Validate() error {
	if c.HouseholdID <= 0 {
		return fmt.Errorf("household_id is not set (config file or %sHOUSEHOLD_ID)", EnvPrefix)
	}
	if c.UserID <= 0 {
		return fmt.Errorf("user_id is not set (config file or %sUSER_ID)", EnvPrefix)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
