package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/analytics"
	"github.com/ramonehamilton/spell-bingo/internal/charts"
	"github.com/ramonehamilton/spell-bingo/internal/config"
	"github.com/ramonehamilton/spell-bingo/internal/report"
)

func runAnalyzeCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("analyze", "<file|id>")
	asJSON := fs.Bool("json", false, "Print the analysis as JSON")
	rest := parseArgs(fs, args, 1)

	data, _, err := loadGame(context.Background(), cfg, rest[0])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	res, err := analytics.Analyze(data)
	if err != nil {
		log.Fatalf("Error analyzing game: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatalf("Error encoding analysis: %v", err)
		}
		return
	}
	displayAnalysis(res)
}

func displayAnalysis(res *analytics.Result) {
	fmt.Println("Analysis")
	fmt.Println("--------")
	fmt.Printf("%-20s %6s %9s %8s %10s %10s %10s %10s\n",
		"Player", "Score", "Completed", "Stolen", "Time", "Lost", "Raw", "Weighted")
	for _, p := range res.Players {
		fmt.Printf("%-20s %6d %9d %8d %10s %10s %10s %10s\n",
			p.Player, p.Score, p.CompletedCount, p.StolenCount,
			formatMillis(p.TotalTime), formatMillis(p.StolenTime),
			formatPercent(p.RawEfficiency, p.HasRawEfficiency),
			formatPercent(p.WeightedEfficiency, p.HasWeightedEfficiency))
	}
	fmt.Println()

	fmt.Println("Stars")
	for _, p := range res.Players {
		fmt.Printf("  %-20s", p.Player)
		for star, n := range p.StarHistogram {
			fmt.Printf(" %d★:%-3d", star+1, n)
		}
		fmt.Println()
	}
	if !res.TimerMetrics {
		fmt.Println()
		fmt.Println("Efficiency is unavailable: the spell pool carries no reference times.")
	}
}

func runReportCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("report", "<file|id>")
	output := fs.String("o", "", "Output file (default: export dir, named after the game; - for stdout)")
	tz := fs.String("tz", cfg.Export.TimeZone, "Time zone for the report header")
	rest := parseArgs(fs, args, 1)

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatalf("Invalid time zone %q: %v", *tz, err)
	}
	data, _, err := loadGame(context.Background(), cfg, rest[0])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	opts := report.Options{Location: loc}
	text, err := report.Render(data, opts)
	if err != nil {
		log.Fatalf("Error rendering report: %v", err)
	}

	if *output == "-" {
		fmt.Println(text)
		return
	}
	path := *output
	if path == "" {
		path = filepath.Join(cfg.Export.Dir, report.FileName(data, opts))
	}
	if err := writeFile(path, []byte(text)); err != nil {
		log.Fatalf("Error writing report: %v", err)
	}
	fmt.Printf("Report written to %s\n", path)
}

func runChartCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("chart", "<file|id>")
	output := fs.String("o", "", "Output HTML file (default: export dir)")
	title := fs.String("title", "", "Page title")
	open := fs.Bool("open", false, "Open the page in the default browser")
	rest := parseArgs(fs, args, 1)

	data, id, err := loadGame(context.Background(), cfg, rest[0])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	res, err := analytics.Analyze(data)
	if err != nil {
		log.Fatalf("Error analyzing game: %v", err)
	}

	chartCfg := charts.DefaultChartConfig()
	chartCfg.Subtitle = fmt.Sprintf("%s vs %s", data.PlayerName(0), data.PlayerName(1))
	if *title != "" {
		chartCfg.Title = *title
	}

	path := *output
	if path == "" {
		name := id
		if name == "" {
			name = time.Now().Format("20060102_150405")
		}
		path = filepath.Join(cfg.Export.Dir, "chart_"+name+".html")
	}
	if err := ensureDir(path); err != nil {
		log.Fatalf("Error: %v", err)
	}
	if err := charts.RenderFile(res, chartCfg, path); err != nil {
		log.Fatalf("Error rendering chart: %v", err)
	}
	fmt.Printf("Chart written to %s\n", path)

	if *open {
		if err := charts.OpenInBrowser(path); err != nil {
			log.Printf("Warning: could not open browser: %v", err)
		}
	}
}

func writeFile(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func formatPercent(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", v)
}
