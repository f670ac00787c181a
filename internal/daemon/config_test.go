package daemon

import (
	"testing"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	app := config.DefaultConfig()
	app.Import.Dir = t.TempDir()
	app.Import.Watch = false
	app.Import.Debounce = "250ms"
	app.Replay.TickInterval = "5ms"
	app.Replay.DefaultSpeed = 2
	app.Channel.URL = "ws://127.0.0.1:9000/ws"

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig failed: %v", err)
	}
	if cfg.ImportDir != app.Import.Dir || cfg.WatchImports {
		t.Errorf("Unexpected import settings: %+v", cfg)
	}
	if cfg.ImportDebounce != 250*time.Millisecond {
		t.Errorf("Expected 250ms debounce, got %v", cfg.ImportDebounce)
	}
	if cfg.TickInterval != 5*time.Millisecond || cfg.DefaultSpeed != 2 {
		t.Errorf("Unexpected replay settings: %v %v", cfg.TickInterval, cfg.DefaultSpeed)
	}
	if cfg.Channel.URL != app.Channel.URL || cfg.Channel.ReconnectDelay != 3*time.Second {
		t.Errorf("Unexpected channel settings: %+v", cfg.Channel)
	}
}

func TestFromAppConfig_InvalidDuration(t *testing.T) {
	app := config.DefaultConfig()
	app.Import.Dir = t.TempDir()
	app.Import.Debounce = "soon"

	if _, err := FromAppConfig(app); err == nil {
		t.Error("Expected an error for an unparsable debounce")
	}
}
