// Package config loads voicebridge configuration from YAML with environment
// overrides. Every settle delay and timeout the automation layer relies on is
// a named field here rather than an inline sleep.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all voicebridge configuration.
type Config struct {
	// Backend identifies this bridge instance against the shared store.
	Backend BackendConfig `yaml:"backend"`

	// HTTP server settings
	Server ServerConfig `yaml:"server"`

	// Browser automation settings
	Browser BrowserConfig `yaml:"browser"`

	// Persistent store settings
	Store StoreConfig `yaml:"store"`

	// Inbox reconciliation sweep settings
	Sweep SweepConfig `yaml:"sweep"`
}

// BackendConfig identifies the upstream messaging application and this bridge.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"` // e.g. https://voice.google.com
	ID      string `yaml:"id"`      // backend identifier used in inbox row keys
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// BrowserConfig configures the shared automation session.
type BrowserConfig struct {
	Bin         string   `yaml:"bin"`           // chrome binary; empty = rod's default lookup
	UserDataDir string   `yaml:"user_data_dir"` // persists the login between runs
	Headless    bool     `yaml:"headless"`
	Launch      []string `yaml:"launch"` // extra chrome flags, "--name" or "--name=value"

	// NavTimeout bounds every navigation readiness wait.
	NavTimeout string `yaml:"nav_timeout"`
	// ListSettle is the fixed delay after the inbox list container appears,
	// tolerating asynchronous entry population. Best-effort synchronization;
	// there is no observable completion signal to poll instead.
	ListSettle string `yaml:"list_settle"`
	// ComposerTimeout bounds the wait for the message input to appear.
	ComposerTimeout string `yaml:"composer_timeout"`
	// ComposeSettle is the fixed delay after typing, letting client-side
	// validation settle before submit.
	ComposeSettle string `yaml:"compose_settle"`
	// SendSettle is the fixed delay after submit before reporting success.
	SendSettle string `yaml:"send_settle"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SweepConfig configures the periodic inbox reconciliation.
type SweepConfig struct {
	Interval     string `yaml:"interval"`
	StartupDelay string `yaml:"startup_delay"`
	Accounts     int    `yaml:"accounts"` // account indices 0..Accounts-1
}

// DefaultConfig returns the default configuration. The browser launch flags
// mirror what the upstream application tolerates from an automated Chrome.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "https://voice.google.com",
			ID:      "voicebridge-0",
		},
		Server: ServerConfig{
			Addr: ":8090",
		},
		Browser: BrowserConfig{
			UserDataDir: "data/browser",
			Headless:    false,
			Launch: []string{
				"--start-maximized",
				"--no-sandbox",
				"--disable-setuid-sandbox",
				"--disable-infobars",
				"--disable-blink-features=AutomationControlled",
			},
			NavTimeout:      "7s",
			ListSettle:      "2s",
			ComposerTimeout: "5s",
			ComposeSettle:   "1s",
			SendSettle:      "2s",
		},
		Store: StoreConfig{
			Path: "data/voicebridge.db",
		},
		Sweep: SweepConfig{
			Interval:     "10m",
			StartupDelay: "10s",
			Accounts:     10,
		},
	}
}

// Load loads configuration from a YAML file. A missing file returns defaults;
// environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides lets deployment environments override file settings.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VOICEBRIDGE_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("VOICEBRIDGE_BACKEND_ID"); v != "" {
		c.Backend.ID = v
	}
	if v := os.Getenv("VOICEBRIDGE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("VOICEBRIDGE_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("VOICEBRIDGE_CHROME_BIN"); v != "" {
		c.Browser.Bin = v
	}
	if v := os.Getenv("VOICEBRIDGE_USER_DATA_DIR"); v != "" {
		c.Browser.UserDataDir = v
	}
}

// parseDuration parses a duration string, falling back to def on empty or
// malformed values so a bad config never zeroes out a wait.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// NavTimeoutDuration returns the navigation readiness timeout.
func (c BrowserConfig) NavTimeoutDuration() time.Duration {
	return parseDuration(c.NavTimeout, 7*time.Second)
}

// ListSettleDuration returns the post-navigation inbox settle delay.
func (c BrowserConfig) ListSettleDuration() time.Duration {
	return parseDuration(c.ListSettle, 2*time.Second)
}

// ComposerTimeoutDuration returns the composer readiness timeout.
func (c BrowserConfig) ComposerTimeoutDuration() time.Duration {
	return parseDuration(c.ComposerTimeout, 5*time.Second)
}

// ComposeSettleDuration returns the post-typing settle delay.
func (c BrowserConfig) ComposeSettleDuration() time.Duration {
	return parseDuration(c.ComposeSettle, time.Second)
}

// SendSettleDuration returns the post-submit settle delay.
func (c BrowserConfig) SendSettleDuration() time.Duration {
	return parseDuration(c.SendSettle, 2*time.Second)
}

// IntervalDuration returns the sweep period.
func (c SweepConfig) IntervalDuration() time.Duration {
	return parseDuration(c.Interval, 10*time.Minute)
}

// StartupDelayDuration returns the delay before the first sweep.
func (c SweepConfig) StartupDelayDuration() time.Duration {
	return parseDuration(c.StartupDelay, 10*time.Second)
}

// AccountCount returns the number of swept accounts, defaulting to 10.
func (c SweepConfig) AccountCount() int {
	if c.Accounts <= 0 {
		return 10
	}
	return c.Accounts
}
