package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/config"
	"github.com/ramonehamilton/spell-bingo/internal/replay"
)

func runReplayCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("replay", "<file|id>")
	speed := fs.Float64("speed", cfg.Replay.DefaultSpeed, "Playback speed multiplier")
	from := fs.Int64("from", 0, "Start at this game time in milliseconds")
	rest := parseArgs(fs, args, 1)

	data, _, err := loadGame(context.Background(), cfg, rest[0])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	tick, err := cfg.GetTickInterval()
	if err != nil {
		log.Fatalf("Invalid tick interval: %v", err)
	}

	r := replay.New(replay.Options{TickInterval: tick})
	done := make(chan struct{})
	var once sync.Once
	r.OnEvent(func(ev replay.Event) {
		displayReplayEvent(data, ev)
		if ev.Type == replay.EventCompleted {
			once.Do(func() { close(done) })
		}
	})

	fmt.Printf("Replaying %s vs %s (%d actions, %s)\n",
		data.PlayerName(bingo.SideA), data.PlayerName(bingo.SideB),
		len(data.Actions), formatMillis(data.TotalTime()))
	fmt.Println()

	if err := r.Start(data); err != nil {
		log.Fatalf("Error starting replay: %v", err)
	}
	if err := r.SetSpeed(*speed); err != nil {
		log.Fatalf("Error setting speed: %v", err)
	}
	if *from > 0 {
		if err := r.Seek(*from); err != nil {
			log.Fatalf("Error seeking: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-done:
	case <-sigChan:
		fmt.Println("\nStopping replay...")
	}

	if err := r.End(); err != nil {
		log.Printf("Error ending replay: %v", err)
	}
}

func displayReplayEvent(data *bingo.GameLogData, ev replay.Event) {
	for _, a := range ev.Applied {
		score := ""
		if len(a.ScoreNow) == 2 {
			score = fmt.Sprintf("  [%d:%d]", a.ScoreNow[0], a.ScoreNow[1])
		}
		spell := a.SpellName
		if spell == "" && bingo.ValidIndex(a.SpellIndex) && len(data.Spells) == bingo.BoardSize {
			spell = data.Spells[a.SpellIndex].Name
		}
		fmt.Printf("%8s  %-16s %-12s %s%s\n", clockMillis(a.Timestamp), a.PlayerName, a.ActionType, spell, score)
	}

	switch ev.Type {
	case replay.EventSeeked:
		fmt.Printf("-- seeked to %s (%d/%d actions)\n",
			clockMillis(ev.Status.CurrentTime), ev.Status.Cursor, ev.Status.TotalActions)
	case replay.EventCompleted:
		fmt.Println()
		fmt.Printf("Replay complete at %s\n", clockMillis(ev.Status.TotalTime))
	}
}

func clockMillis(ms int64) string {
	s := ms / 1000
	return fmt.Sprintf("%02d:%02d.%d", s/60, s%60, (ms%1000)/100)
}
