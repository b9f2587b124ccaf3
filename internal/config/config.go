// Package config loads and saves the strikesense config.toml.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sadopc/strikesense/internal/session"
)

const appName = "strikesense"

// Config is the on-disk application configuration. Per-user runtime
// choices such as the last preset live in the database settings table.
type Config struct {
	TickInterval Duration   `toml:"tick_interval"`
	DBPath       string     `toml:"db_path"`
	LogFile      string     `toml:"log_file"`
	LogLevel     string     `toml:"log_level"`
	Listen       string     `toml:"listen"`
	DefaultMode  string     `toml:"default_mode"`
	Cues         CuesConfig `toml:"cues"`
}

type CuesConfig struct {
	Enabled  bool `toml:"enabled"`
	Bell     bool `toml:"bell"`
	Debounce bool `toml:"debounce"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		TickInterval: Duration{100 * time.Millisecond},
		LogLevel:     "info",
		DefaultMode:  "round",
		Cues: CuesConfig{
			Enabled:  true,
			Bell:     true,
			Debounce: true,
		},
	}
}

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/strikesense/config.toml
//  2. ~/.config/strikesense/config.toml
//
// If no file exists, returns DefaultConfig() with env overrides applied.
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path. A missing
// file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := DefaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader reads configuration from an io.Reader. Keys missing from
// the document keep their default values.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg as TOML, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var problems []string
	if c.TickInterval.Duration < 10*time.Millisecond || c.TickInterval.Duration > time.Second {
		problems = append(problems, fmt.Sprintf("tick_interval must be between 10ms and 1s, got %s", c.TickInterval.Duration))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := session.ParseMode(c.DefaultMode); err != nil {
		problems = append(problems, "default_mode: "+err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Mode returns the default session mode, falling back to round.
func (c *Config) Mode() session.Mode {
	m, err := session.ParseMode(c.DefaultMode)
	if err != nil {
		return session.ModeRound
	}
	return m
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
}

// DefaultPath returns the first config search path.
func DefaultPath() string {
	return configSearchPaths()[0]
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRIKESENSE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("STRIKESENSE_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("STRIKESENSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, appName, "config.toml"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, appName, "config.toml"))
	}
	return paths
}

func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}
