package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/config"
	"github.com/ramonehamilton/spell-bingo/internal/export"
)

func runExportCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("export", "")
	exportType := fs.String("type", "games", "What to export: games, players or tasks")
	format := fs.String("format", "csv", "Output format: csv or json")
	output := fs.String("o", "", "Output file (default: export dir, generated name)")
	player := fs.String("player", "", "Only games played by this player")
	period := fs.String("period", "", "Only games in a period (today, yesterday, week, last-week, month, last-month)")
	pretty := fs.Bool("pretty", true, "Indent JSON output")
	overwrite := fs.Bool("overwrite", false, "Replace an existing output file")
	seal := fs.Bool("seal", false, "Encrypt the output with BINGO_EXPORT_PASSPHRASE")
	parseArgs(fs, args, 0)

	f, err := export.ParseFormat(*format)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	filter, err := buildFilter(cfg, *player, *period, "")
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	store := openStore(cfg)
	defer closeStore(store)

	ctx := context.Background()
	games, _, err := store.List(ctx, filter)
	if err != nil {
		log.Fatalf("Error listing games: %v", err)
	}

	var (
		rows  any
		count int
	)
	switch *exportType {
	case "games":
		gameRows := export.GameRows(games)
		rows, count = gameRows, len(gameRows)
	case "players":
		var playerRows []export.PlayerRow
		for _, g := range games {
			res, err := store.Analytics(ctx, g.ID)
			if err != nil {
				log.Printf("Warning: no analytics for %s: %v", g.ID, err)
				continue
			}
			playerRows = append(playerRows, export.PlayerRows(g.ID, res)...)
		}
		rows, count = playerRows, len(playerRows)
	case "tasks":
		var taskRows []export.TaskRow
		for _, g := range games {
			res, err := store.Analytics(ctx, g.ID)
			if err != nil {
				log.Printf("Warning: no analytics for %s: %v", g.ID, err)
				continue
			}
			taskRows = append(taskRows, export.TaskRows(g.ID, res)...)
		}
		rows, count = taskRows, len(taskRows)
	default:
		log.Fatalf("Unknown export type %q (want games, players or tasks)", *exportType)
	}
	if count == 0 {
		fmt.Println("Nothing to export.")
		return
	}

	opts := export.Options{
		Format:     f,
		FilePath:   *output,
		PrettyJSON: *pretty,
		Overwrite:  *overwrite,
	}
	if opts.FilePath == "" {
		opts.FilePath = filepath.Join(cfg.Export.Dir, export.GenerateFilename(*exportType, f, time.Now()))
	}
	if *seal {
		if cfg.Export.Passphrase == "" {
			log.Fatalf("Error: %v (set BINGO_EXPORT_PASSPHRASE)", export.ErrNoPassphrase)
		}
		opts.Passphrase = cfg.Export.Passphrase
		opts.FilePath += ".sealed"
	}

	if err := export.NewExporter(opts).Export(rows); err != nil {
		log.Fatalf("Error exporting: %v", err)
	}
	fmt.Printf("Exported %d %s to %s\n", count, *exportType, opts.FilePath)
}

func runUnsealCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("unseal", "<file>")
	output := fs.String("o", "-", "Output file (- for stdout)")
	rest := parseArgs(fs, args, 1)

	sealed, err := os.ReadFile(rest[0])
	if err != nil {
		log.Fatalf("Error reading %s: %v", rest[0], err)
	}
	if !export.IsSealed(sealed) {
		log.Fatalf("Error: %v", export.ErrNotSealed)
	}
	if cfg.Export.Passphrase == "" {
		log.Fatalf("Error: %v (set BINGO_EXPORT_PASSPHRASE)", export.ErrNoPassphrase)
	}

	plain, err := export.Open(sealed, export.DefaultSealConfig(cfg.Export.Passphrase))
	if err != nil {
		log.Fatalf("Error unsealing: %v", err)
	}
	if *output == "-" {
		if _, err := os.Stdout.Write(plain); err != nil {
			log.Fatalf("Error writing output: %v", err)
		}
		return
	}
	if err := writeFile(*output, plain); err != nil {
		log.Fatalf("Error writing output: %v", err)
	}
	fmt.Printf("Unsealed to %s\n", *output)
}
