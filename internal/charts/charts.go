// Package charts renders game analytics as interactive HTML charts.
package charts

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/spell-bingo/internal/analytics"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title    string   // Page title
	Subtitle string   // Shown under each chart title
	Width    string   // Chart width (e.g., "900px")
	Height   string   // Chart height (e.g., "500px")
	Theme    string   // Chart theme
	Smooth   bool     // Smooth line (for line charts)
	Colors   []string // Series colors, one per player
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Title:  "Game analysis",
		Width:  "900px",
		Height: "500px",
		Theme:  "light",
		Smooth: true,
		Colors: []string{"#EE6666", "#5470C6", "#91CC75", "#FAC858"},
	}
}

func (c ChartConfig) globals(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  c.Width,
			Height: c.Height,
			Theme:  c.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: c.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
		charts.WithColorsOpts(opts.Colors(c.Colors)),
	}
}

// StarChart shows how many spells of each star rating every player claimed.
func StarChart(res *analytics.Result, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(config.globals("Spells claimed by star")...)
	bar.SetXAxis([]string{"1★", "2★", "3★", "4★", "5★"})

	for _, p := range res.Players {
		data := make([]opts.BarData, len(p.StarHistogram))
		for i, n := range p.StarHistogram {
			data[i] = opts.BarData{Value: n}
		}
		bar.AddSeries(p.Player, data)
	}
	return bar
}

// EfficiencyChart compares raw and weighted efficiency. Players without a
// measurable efficiency are plotted as zero.
func EfficiencyChart(res *analytics.Result, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(config.globals("Efficiency (%)")...)

	names := make([]string, len(res.Players))
	raw := make([]opts.BarData, len(res.Players))
	weighted := make([]opts.BarData, len(res.Players))
	for i, p := range res.Players {
		names[i] = p.Player
		raw[i] = opts.BarData{Value: round2(p.RawEfficiency, p.HasRawEfficiency)}
		weighted[i] = opts.BarData{Value: round2(p.WeightedEfficiency, p.HasWeightedEfficiency)}
	}

	bar.SetXAxis(names).
		AddSeries("Raw", raw).
		AddSeries("Weighted", weighted).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:     opts.Bool(true),
				Position: "top",
			}),
		)
	return bar
}

// PaceChart plots, for every player, the game time in seconds at which they
// claimed their n-th spell.
func PaceChart(res *analytics.Result, config ChartConfig) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(config.globals("Claim pace (s)")...)

	longest := 0
	for _, p := range res.Players {
		longest = max(longest, len(p.Completed))
	}
	labels := make([]string, longest)
	for i := range labels {
		labels[i] = fmt.Sprintf("#%d", i+1)
	}
	line.SetXAxis(labels)

	for _, p := range res.Players {
		data := make([]opts.LineData, len(p.Completed))
		for i, t := range p.Completed {
			data[i] = opts.LineData{Value: float64(t.FinishedAt) / 1000}
		}
		line.AddSeries(p.Player, data)
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{
			Smooth: opts.Bool(config.Smooth),
		}),
		charts.WithLabelOpts(opts.Label{
			Show: opts.Bool(false),
		}),
	)
	return line
}

// Render writes a page holding every chart for one game.
func Render(w io.Writer, res *analytics.Result, config ChartConfig) error {
	if res == nil {
		return analytics.ErrNoGame
	}

	page := components.NewPage()
	page.PageTitle = config.Title
	page.AddCharts(
		StarChart(res, config),
		PaceChart(res, config),
		EfficiencyChart(res, config),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderFile renders the chart page into outputPath.
func RenderFile(res *analytics.Result, config ChartConfig, outputPath string) error {
	var buf bytes.Buffer
	if err := Render(&buf, res, config); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	return nil
}

// OpenInBrowser opens the given file path in the default web browser.
func OpenInBrowser(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", absPath)
	case "linux":
		cmd = exec.Command("xdg-open", absPath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

func round2(v float64, ok bool) float64 {
	if !ok {
		return 0
	}
	return float64(int64(v*100+0.5)) / 100
}
