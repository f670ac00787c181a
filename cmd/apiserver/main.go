// Package main runs the spell bingo server: the REST API, the websocket
// event stream for viewers, the report import watcher and, when a session
// channel is configured, the live session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/api"
	"github.com/ramonehamilton/spell-bingo/internal/api/websocket"
	"github.com/ramonehamilton/spell-bingo/internal/config"
	"github.com/ramonehamilton/spell-bingo/internal/daemon"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
	"github.com/ramonehamilton/spell-bingo/internal/storage"
	"github.com/ramonehamilton/spell-bingo/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to config.toml (default: ~/.spell-bingo/config.toml)")
	addr       = flag.String("addr", "", "Listen address (overrides server.addr)")
	dbPath     = flag.String("db-path", "", "Database path (overrides storage.db_path)")
	channelURL = flag.String("channel", "", "Session channel URL (overrides channel.url)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg := loadConfig()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Storage.DBPath = *dbPath
	}
	if *channelURL != "" {
		cfg.Channel.URL = *channelURL
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	logger.Init(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	fmt.Printf("Spell Bingo server %s\n", version.GetVersion())
	fmt.Println("============================")
	fmt.Println()

	finalDBPath, err := cfg.ResolveDBPath()
	if err != nil {
		log.Fatalf("Failed to resolve database path: %v", err)
	}
	fmt.Printf("Database: %s\n", finalDBPath)

	dbConfig := storage.DefaultConfig(finalDBPath)
	dbConfig.AutoMigrate = cfg.Storage.AutoMigrate
	db, err := storage.Open(dbConfig)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	store := storage.NewService(db)
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	apiConfig, err := api.FromAppConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid server config: %v", err)
	}
	hub := websocket.NewHub(websocket.Options{AllowedOrigins: apiConfig.AllowedOrigins})

	daemonConfig, err := daemon.FromAppConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid daemon config: %v", err)
	}
	svc := daemon.New(daemonConfig, store, hub)

	server := api.NewServer(apiConfig, hub, api.Services{
		Games:   store,
		Replays: svc.Replays(),
		Health:  svc,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}
	if err := svc.Start(); err != nil {
		log.Fatalf("Failed to start daemon: %v", err)
	}

	fmt.Printf("Imports:  %s\n", daemonConfig.ImportDir)
	if daemonConfig.Channel.URL != "" {
		fmt.Printf("Session:  %s\n", daemonConfig.Channel.URL)
	}
	fmt.Println()
	fmt.Printf("API server running at http://%s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println()
	fmt.Println("Shutting down...")

	if err := svc.Stop(); err != nil {
		log.Printf("Error stopping daemon: %v", err)
	}

	grace, err := cfg.GetShutdownGrace()
	if err != nil {
		log.Printf("Invalid shutdown grace, using default: %v", err)
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	fmt.Println("Server stopped.")
}

func loadConfig() *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	return cfg
}
