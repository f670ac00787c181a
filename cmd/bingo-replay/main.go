// Command bingo-replay analyzes, replays and archives spell bingo games from
// the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/config"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
	"github.com/ramonehamilton/spell-bingo/internal/replay/codec"
	"github.com/ramonehamilton/spell-bingo/internal/storage"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
	"github.com/ramonehamilton/spell-bingo/internal/version"
)

var configPath = flag.String("config", "", "Path to config.toml (default: ~/.spell-bingo/config.toml)")

func main() {
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg := loadConfig()
	logger.Init(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	command, rest := args[0], args[1:]
	switch command {
	case "analyze":
		runAnalyzeCommand(cfg, rest)
	case "report":
		runReportCommand(cfg, rest)
	case "chart":
		runChartCommand(cfg, rest)
	case "replay":
		runReplayCommand(cfg, rest)
	case "import":
		runImportCommand(cfg, rest)
	case "list":
		runListCommand(cfg, rest)
	case "stats":
		runStatsCommand(cfg, rest)
	case "export":
		runExportCommand(cfg, rest)
	case "unseal":
		runUnsealCommand(cfg, rest)
	case "migrate":
		runMigrationCommand(cfg, rest)
	case "watch":
		runWatchCommand(cfg, rest)
	case "version":
		fmt.Printf("bingo-replay %s\n", version.GetVersion())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Spell Bingo Replay")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bingo-replay [-config path] <command> [flags] [args]")
	fmt.Println()
	fmt.Println("Game files (reports or bare replay codes):")
	fmt.Println("  analyze <file>          Print per-player timing statistics")
	fmt.Println("  report <file>           Write the plaintext report of a game")
	fmt.Println("  chart <file|id>         Write an HTML chart page of a game")
	fmt.Println("  replay <file>           Replay a game in the terminal")
	fmt.Println()
	fmt.Println("Archive:")
	fmt.Println("  import <file>...        Add games to the archive")
	fmt.Println("  list                    List archived games")
	fmt.Println("  stats <player>          Show a player's record and completion times")
	fmt.Println("  export                  Export games, player summaries or tasks")
	fmt.Println("  unseal <file>           Decrypt a sealed export")
	fmt.Println("  migrate up|down|status  Manage the archive schema")
	fmt.Println()
	fmt.Println("Server:")
	fmt.Println("  watch                   Stream events from a running server")
	fmt.Println()
	fmt.Println("  version                 Print the version")
	fmt.Println()
	fmt.Println("Run 'bingo-replay <command> -h' for command flags.")
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
		log.Fatalf("Error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	return cfg
}

// newFlagSet creates a command flag set whose usage names the command's
// positional arguments.
func newFlagSet(name, positional string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: bingo-replay %s [flags] %s\n", name, positional)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses args into fs and exits unless at least minArgs
// positional arguments remain.
func parseArgs(fs *flag.FlagSet, args []string, minArgs int) []string {
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if fs.NArg() < minArgs {
		fs.Usage()
		os.Exit(2)
	}
	return fs.Args()
}

// readGame decodes a report or a bare replay code from path. "-" reads
// standard input.
func readGame(path string) (*bingo.GameLogData, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	payload, err := codec.DecodeReport(string(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := payload.Data.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game in %s: %w", path, err)
	}
	return &payload.Data, nil
}

// loadGame resolves arg to a game: an existing file is decoded, anything else
// is looked up in the archive by id.
func loadGame(ctx context.Context, cfg *config.Config, arg string) (*bingo.GameLogData, string, error) {
	if _, err := os.Stat(arg); err == nil || arg == "-" {
		data, err := readGame(arg)
		return data, "", err
	}

	store := openStore(cfg)
	defer closeStore(store)

	_, data, err := store.Game(ctx, arg)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", fmt.Errorf("%s is neither a file nor an archived game", arg)
	}
	if err != nil {
		return nil, "", err
	}
	return data, arg, nil
}

func openStore(cfg *config.Config) *storage.Service {
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		log.Fatalf("Error resolving database path: %v", err)
	}
	dbConfig := storage.DefaultConfig(dbPath)
	dbConfig.AutoMigrate = true
	db, err := storage.Open(dbConfig)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	return storage.NewService(db)
}

func closeStore(store *storage.Service) {
	if err := store.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

func parseSource(s string) models.Source {
	src := models.Source(strings.ToLower(s))
	if !src.Valid() {
		log.Fatalf("Unknown source %q (want live, import or cli)", s)
	}
	return src
}
