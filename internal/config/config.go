// Package config loads the TOML configuration shared by the CLI and the API
// server, with BINGO_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override, e.g. BINGO_SERVER_ADDR.
const EnvPrefix = "BINGO_"

// DirName is the per-user directory holding config, database and imports.
const DirName = ".spell-bingo"

// Config represents the application configuration.
type Config struct {
	Logging LoggingConfig `toml:"logging" envPrefix:"LOGGING_"`
	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	Server  ServerConfig  `toml:"server" envPrefix:"SERVER_"`
	Replay  ReplayConfig  `toml:"replay" envPrefix:"REPLAY_"`
	Channel ChannelConfig `toml:"channel" envPrefix:"CHANNEL_"`
	Import  ImportConfig  `toml:"import" envPrefix:"IMPORT_"`
	Export  ExportConfig  `toml:"export" envPrefix:"EXPORT_"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `toml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `toml:"format" env:"FORMAT"` // text or json
}

// StorageConfig contains game archive settings.
type StorageConfig struct {
	DBPath      string `toml:"db_path" env:"DB_PATH"` // empty = ~/.spell-bingo/bingo.db
	AutoMigrate bool   `toml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// ServerConfig contains API server settings.
type ServerConfig struct {
	Addr           string   `toml:"addr" env:"ADDR"`
	AllowedOrigins []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	ShutdownGrace  string   `toml:"shutdown_grace" env:"SHUTDOWN_GRACE"`
}

// ReplayConfig contains replayer settings.
type ReplayConfig struct {
	TickInterval string  `toml:"tick_interval" env:"TICK_INTERVAL"` // e.g. "10ms"
	DefaultSpeed float64 `toml:"default_speed" env:"DEFAULT_SPEED"`
}

// ChannelConfig contains session channel settings.
type ChannelConfig struct {
	URL              string  `toml:"url" env:"URL"`
	CommandRate      float64 `toml:"command_rate" env:"COMMAND_RATE"` // commands per second
	CommandBurst     int     `toml:"command_burst" env:"COMMAND_BURST"`
	HandshakeTimeout string  `toml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`
	ReconnectDelay   string  `toml:"reconnect_delay" env:"RECONNECT_DELAY"`
}

// ImportConfig contains report import settings.
type ImportConfig struct {
	Dir      string `toml:"dir" env:"DIR"` // empty = ~/.spell-bingo/import
	Watch    bool   `toml:"watch" env:"WATCH"`
	Debounce string `toml:"debounce" env:"DEBOUNCE"`
}

// ExportConfig contains report and export settings.
type ExportConfig struct {
	Dir      string `toml:"dir" env:"DIR"`             // empty = current directory
	TimeZone string `toml:"time_zone" env:"TIME_ZONE"` // IANA name used in reports

	// Passphrase seals exports when set. Environment only.
	Passphrase string `toml:"-" env:"PASSPHRASE"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			AutoMigrate: true,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:9380",
			AllowedOrigins: []string{"http://localhost:5173"},
			ShutdownGrace:  "10s",
		},
		Replay: ReplayConfig{
			TickInterval: "10ms",
			DefaultSpeed: 1,
		},
		Channel: ChannelConfig{
			CommandRate:      10,
			CommandBurst:     5,
			HandshakeTimeout: "10s",
			ReconnectDelay:   "3s",
		},
		Import: ImportConfig{
			Watch:    true,
			Debounce: "500ms",
		},
		Export: ExportConfig{
			TimeZone: "UTC",
		},
	}
}

// Dir returns the per-user config directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

// Path returns the path to the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default path and applies
// environment overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration at path over the defaults and applies
// environment overrides. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from BINGO_* environment variables. Unset
// variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}

	durations := map[string]string{
		"replay tick interval":      c.Replay.TickInterval,
		"channel handshake timeout": c.Channel.HandshakeTimeout,
		"channel reconnect delay":   c.Channel.ReconnectDelay,
		"import debounce":           c.Import.Debounce,
		"server shutdown grace":     c.Server.ShutdownGrace,
	}
	for name, v := range durations {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive: %s", name, v)
		}
	}

	if c.Replay.DefaultSpeed <= 0 {
		return fmt.Errorf("replay default speed must be positive: %v", c.Replay.DefaultSpeed)
	}
	if c.Channel.CommandRate <= 0 {
		return fmt.Errorf("channel command rate must be positive: %v", c.Channel.CommandRate)
	}
	if c.Channel.CommandBurst < 1 {
		return fmt.Errorf("channel command burst must be at least 1: %d", c.Channel.CommandBurst)
	}
	if _, err := time.LoadLocation(c.Export.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.Export.TimeZone, err)
	}
	return nil
}

// GetTickInterval returns the replay tick interval as a duration.
func (c *Config) GetTickInterval() (time.Duration, error) {
	return time.ParseDuration(c.Replay.TickInterval)
}

// GetHandshakeTimeout returns the channel handshake timeout.
func (c *Config) GetHandshakeTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Channel.HandshakeTimeout)
}

// GetReconnectDelay returns the delay between channel reconnects.
func (c *Config) GetReconnectDelay() (time.Duration, error) {
	return time.ParseDuration(c.Channel.ReconnectDelay)
}

// GetImportDebounce returns how long the import watcher waits for a file to
// settle.
func (c *Config) GetImportDebounce() (time.Duration, error) {
	return time.ParseDuration(c.Import.Debounce)
}

// GetShutdownGrace returns the API server's graceful shutdown window.
func (c *Config) GetShutdownGrace() (time.Duration, error) {
	return time.ParseDuration(c.Server.ShutdownGrace)
}

// Location returns the report time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Export.TimeZone)
}

// ResolveDBPath returns the configured database path or the default one
// under the config directory.
func (c *Config) ResolveDBPath() (string, error) {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bingo.db"), nil
}

// ResolveImportDir returns the configured import directory or the default
// one under the config directory.
func (c *Config) ResolveImportDir() (string, error) {
	if c.Import.Dir != "" {
		return c.Import.Dir, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "import"), nil
}
