package daemon

import (
	"fmt"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/config"
)

// Config holds configuration for the daemon service.
type Config struct {
	// Directory watched for downloaded reports.
	ImportDir string

	// Watch ImportDir with fsnotify; when false only the startup scan runs.
	WatchImports bool

	// Quiet period after the last write to a report before it is imported.
	ImportDebounce time.Duration

	// Replayer tick interval and the speed new replays start with.
	TickInterval time.Duration
	DefaultSpeed float64

	// Period of channel:status heartbeats while a live session is attached.
	StatusInterval time.Duration

	// Live session channel. Empty URL means no live session.
	Channel ChannelConfig
}

// ChannelConfig holds session channel settings.
type ChannelConfig struct {
	URL              string
	Players          []string
	CommandRate      float64
	CommandBurst     int
	HandshakeTimeout time.Duration
	ReconnectDelay   time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		WatchImports:   true,
		ImportDebounce: 500 * time.Millisecond,
		TickInterval:   10 * time.Millisecond,
		DefaultSpeed:   1,
		StatusInterval: 30 * time.Second,
		Channel: ChannelConfig{
			CommandRate:      10,
			CommandBurst:     5,
			HandshakeTimeout: 10 * time.Second,
			ReconnectDelay:   3 * time.Second,
		},
	}
}

// FromAppConfig derives the daemon configuration from the application
// configuration, resolving directories and durations.
func FromAppConfig(cfg *config.Config) (*Config, error) {
	out := DefaultConfig()

	dir, err := cfg.ResolveImportDir()
	if err != nil {
		return nil, fmt.Errorf("resolve import dir: %w", err)
	}
	out.ImportDir = dir
	out.WatchImports = cfg.Import.Watch

	if out.ImportDebounce, err = cfg.GetImportDebounce(); err != nil {
		return nil, err
	}
	if out.TickInterval, err = cfg.GetTickInterval(); err != nil {
		return nil, err
	}
	if cfg.Replay.DefaultSpeed > 0 {
		out.DefaultSpeed = cfg.Replay.DefaultSpeed
	}

	out.Channel.URL = cfg.Channel.URL
	out.Channel.CommandRate = cfg.Channel.CommandRate
	out.Channel.CommandBurst = cfg.Channel.CommandBurst
	if out.Channel.HandshakeTimeout, err = cfg.GetHandshakeTimeout(); err != nil {
		return nil, err
	}
	if out.Channel.ReconnectDelay, err = cfg.GetReconnectDelay(); err != nil {
		return nil, err
	}
	return out, nil
}
