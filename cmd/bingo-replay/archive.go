package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/config"
	"github.com/ramonehamilton/spell-bingo/internal/metrics"
	"github.com/ramonehamilton/spell-bingo/internal/stats"
	"github.com/ramonehamilton/spell-bingo/internal/storage"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

func runImportCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("import", "<file>...")
	source := fs.String("source", string(models.SourceCLI), "Source recorded for the games (live, import, cli)")
	files := parseArgs(fs, args, 1)
	src := parseSource(*source)

	store := openStore(cfg)
	defer closeStore(store)

	ctx := context.Background()
	var imported, duplicates, failed int
	for _, path := range files {
		data, err := readGame(path)
		if err != nil {
			log.Printf("Skipping %s: %v", path, err)
			failed++
			continue
		}

		game, err := store.Archive(ctx, data, src)
		switch {
		case errors.Is(err, storage.ErrDuplicateGame):
			fmt.Printf("  = %s already archived as %s\n", path, game.ID)
			duplicates++
		case err != nil:
			log.Printf("Failed to archive %s: %v", path, err)
			failed++
		default:
			fmt.Printf("  + %s -> %s (%s vs %s, %d:%d)\n",
				path, game.ID, game.PlayerA, game.PlayerB, game.ScoreA, game.ScoreB)
			imported++
		}
	}

	fmt.Println()
	fmt.Printf("Imported: %d, already archived: %d, failed: %d\n", imported, duplicates, failed)
	if failed > 0 && imported == 0 && duplicates == 0 {
		log.Fatal("No games imported")
	}
}

func runListCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("list", "")
	player := fs.String("player", "", "Only games played by this player")
	period := fs.String("period", "", "Only games in a period (today, yesterday, week, last-week, month, last-month)")
	source := fs.String("source", "", "Only games from this source")
	limit := fs.Int("limit", 20, "Maximum games to list (0 = all)")
	parseArgs(fs, args, 0)

	filter, err := buildFilter(cfg, *player, *period, *source)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	filter.Limit = *limit

	store := openStore(cfg)
	defer closeStore(store)

	games, total, err := store.List(context.Background(), filter)
	if err != nil {
		log.Fatalf("Error listing games: %v", err)
	}
	if len(games) == 0 {
		fmt.Println("No games found.")
		return
	}
	displayGames(cfg, games)
	fmt.Printf("\nShowing %d of %d games\n", len(games), total)
}

func displayGames(cfg *config.Config, games []*models.GameLog) {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.UTC
	}

	fmt.Printf("%-36s  %-16s  %-16s %-16s %7s %9s  %-6s\n",
		"ID", "Started", "Player A", "Player B", "Score", "Length", "Source")
	for _, g := range games {
		started := "-"
		if g.StartedAt != nil {
			started = g.StartedAt.In(loc).Format("2006-01-02 15:04")
		}
		fmt.Printf("%-36s  %-16s  %-16s %-16s %3d:%-3d %9s  %-6s\n",
			g.ID, started, g.PlayerA, g.PlayerB, g.ScoreA, g.ScoreB,
			formatMillis(g.TotalTimeMs), g.Source)
	}
}

func runStatsCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("stats", "<player>")
	period := fs.String("period", "", "Only games in a period (today, yesterday, week, last-week, month, last-month)")
	rest := parseArgs(fs, args, 1)
	player := rest[0]

	filter, err := buildFilter(cfg, player, *period, "")
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
	if len(games) == 0 {
		fmt.Printf("No games found for %s.\n", player)
		return
	}

	record := stats.CalculateRecord(games, player)
	fmt.Printf("%s\n", player)
	fmt.Println("Record")
	fmt.Println("------")
	fmt.Printf("Games: %d  Wins: %d  Losses: %d  Draws: %d  Win rate: %.1f%%\n",
		record.Games, record.Wins, record.Losses, record.Draws, record.WinRate())
	fmt.Printf("Current: %s\n", stats.FormatCurrentStreak(record.CurrentStreak))
	if record.LongestWinStreak > 0 {
		fmt.Printf("Longest win streak: %d\n", record.LongestWinStreak)
	}
	if record.LongestLossStreak > 0 {
		fmt.Printf("Longest loss streak: %d\n", record.LongestLossStreak)
	}
	fmt.Println()

	completions := metrics.NewCompletionStats()
	for _, g := range games {
		res, err := store.Analytics(ctx, g.ID)
		if err != nil {
			log.Printf("Warning: no analytics for %s: %v", g.ID, err)
			continue
		}
		completions.AddResult(res, player)
	}
	displayCompletions(completions.Summary())
}

func displayCompletions(sum metrics.CompletionSummary) {
	if sum.Overall.Count == 0 {
		return
	}
	fmt.Println("Completion times (s)")
	fmt.Println("--------------------")
	fmt.Printf("%-6s %6s %8s %8s %8s %8s\n", "", "Count", "Mean", "P50", "P90", "Max")
	row := func(label string, s metrics.Summary) {
		fmt.Printf("%-6s %6d %8.1f %8.1f %8.1f %8.1f\n",
			label, s.Count, s.Mean/1000, s.P50/1000, s.P90/1000, s.Max/1000)
	}
	row("All", sum.Overall)
	for i, s := range sum.ByStar {
		if s.Count > 0 {
			row(fmt.Sprintf("%d★", i+1), s)
		}
	}
}

// buildFilter turns command flags into an archive filter. Periods resolve in
// the configured report time zone.
func buildFilter(cfg *config.Config, player, period, source string) (models.GameFilter, error) {
	filter := models.GameFilter{Player: player}
	if source != "" {
		filter.Source = parseSource(source)
	}
	if period != "" {
		loc, err := cfg.Location()
		if err != nil {
			return filter, err
		}
		tr, err := stats.ParsePeriod(period, time.Now().In(loc))
		if err != nil {
			return filter, err
		}
		tr.Apply(&filter)
	}
	return filter, nil
}

func runMigrationCommand(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bingo-replay migrate <up|down|status>")
		return
	}

	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		log.Fatalf("Error resolving database path: %v", err)
	}
	if err := ensureDir(dbPath); err != nil {
		log.Fatalf("Error: %v", err)
	}
	mgr, err := storage.NewMigrationManager(dbPath)
	if err != nil {
		log.Fatalf("Error creating migration manager: %v", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Printf("Error closing migration manager: %v", err)
		}
	}()

	switch args[0] {
	case "up":
		fmt.Println("Applying all pending migrations...")
		if err := mgr.Up(); err != nil {
			log.Fatalf("Error applying migrations: %v", err)
		}
		printMigrationVersion(mgr)
		fmt.Println("All migrations applied successfully!")

	case "down":
		fmt.Println("Rolling back all migrations...")
		if err := mgr.Down(); err != nil {
			log.Fatalf("Error rolling back migration: %v", err)
		}
		printMigrationVersion(mgr)

	case "status":
		fmt.Printf("Database: %s\n", dbPath)
		printMigrationVersion(mgr)

	default:
		fmt.Printf("Unknown migrate command: %s\n", args[0])
		fmt.Println("Usage: bingo-replay migrate <up|down|status>")
	}
}

func printMigrationVersion(mgr *storage.MigrationManager) {
	version, dirty, err := mgr.Version()
	if err != nil {
		log.Fatalf("Error getting version: %v", err)
	}
	if dirty {
		fmt.Printf("Current version: %d (dirty)\n", version)
	} else {
		fmt.Printf("Current version: %d\n", version)
	}
}
