package metrics

import (
	"github.com/ramonehamilton/spell-bingo/internal/analytics"
)

// CompletionStats aggregates completion durations overall and by star.
type CompletionStats struct {
	Overall *Histogram
	ByStar  [5]*Histogram
}

// NewCompletionStats creates empty completion statistics.
func NewCompletionStats() *CompletionStats {
	c := &CompletionStats{Overall: NewHistogram(0)}
	for i := range c.ByStar {
		c.ByStar[i] = NewHistogram(0)
	}
	return c
}

// Add records every task. Stars outside 1..5 only count overall.
func (c *CompletionStats) Add(tasks []analytics.Task) {
	for _, t := range tasks {
		ms := float64(t.Duration)
		c.Overall.RecordMillis(ms)
		if t.Star >= 1 && t.Star <= len(c.ByStar) {
			c.ByStar[t.Star-1].RecordMillis(ms)
		}
	}
}

// AddResult records the completed spells of player, or of both sides when
// player is empty.
func (c *CompletionStats) AddResult(res *analytics.Result, player string) {
	for _, p := range res.Players {
		if player == "" || p.Player == player {
			c.Add(p.Completed)
		}
	}
}

// CompletionSummary is the JSON view of CompletionStats.
type CompletionSummary struct {
	Overall Summary    `json:"overall"`
	ByStar  [5]Summary `json:"byStar"`
}

// Summary snapshots every histogram.
func (c *CompletionStats) Summary() CompletionSummary {
	out := CompletionSummary{Overall: c.Overall.Summary()}
	for i, h := range c.ByStar {
		out.ByStar[i] = h.Summary()
	}
	return out
}
