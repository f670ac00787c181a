// Package stats summarizes a player's archived games: win/loss record,
// streaks and period filters for listing.
package stats

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

// Outcome of one game from a player's point of view.
type Outcome int

const (
	Draw Outcome = iota
	Win
	Loss
)

// PlayerRecord is a player's record over a set of games.
type PlayerRecord struct {
	Player            string `json:"player"`
	Games             int    `json:"games"`
	Wins              int    `json:"wins"`
	Losses            int    `json:"losses"`
	Draws             int    `json:"draws"`
	CurrentStreak     int    `json:"currentStreak"` // positive wins, negative losses
	LongestWinStreak  int    `json:"longestWinStreak"`
	LongestLossStreak int    `json:"longestLossStreak"`
}

// WinRate returns the share of decided games won, in percent.
func (r PlayerRecord) WinRate() float64 {
	decided := r.Wins + r.Losses
	if decided == 0 {
		return 0
	}
	return float64(r.Wins) / float64(decided) * 100
}

// OutcomeFor decides a game for player by final score. ok is false when
// player did not take part. Names compare case-insensitively.
func OutcomeFor(g *models.GameLog, player string) (Outcome, bool) {
	var mine, theirs int
	switch {
	case strings.EqualFold(g.PlayerA, player):
		mine, theirs = g.ScoreA, g.ScoreB
	case strings.EqualFold(g.PlayerB, player):
		mine, theirs = g.ScoreB, g.ScoreA
	default:
		return Draw, false
	}
	switch {
	case mine > theirs:
		return Win, true
	case mine < theirs:
		return Loss, true
	}
	return Draw, true
}

// CalculateRecord computes player's record. Games are ordered by start time
// (creation time when unknown) so the current streak is the latest one; games
// player did not play are ignored. A draw breaks any streak.
func CalculateRecord(games []*models.GameLog, player string) PlayerRecord {
	ordered := slices.Clone(games)
	slices.SortStableFunc(ordered, func(a, b *models.GameLog) int {
		return playedAt(a).Compare(playedAt(b))
	})

	rec := PlayerRecord{Player: player}
	wins, losses := 0, 0
	for _, g := range ordered {
		outcome, ok := OutcomeFor(g, player)
		if !ok {
			continue
		}
		rec.Games++

		switch outcome {
		case Win:
			rec.Wins++
			wins++
			losses = 0
			rec.LongestWinStreak = max(rec.LongestWinStreak, wins)
		case Loss:
			rec.Losses++
			losses++
			wins = 0
			rec.LongestLossStreak = max(rec.LongestLossStreak, losses)
		default:
			rec.Draws++
			wins, losses = 0, 0
		}
	}

	if wins > 0 {
		rec.CurrentStreak = wins
	} else if losses > 0 {
		rec.CurrentStreak = -losses
	}
	return rec
}

// FormatCurrentStreak returns a human-readable string for the current streak.
func FormatCurrentStreak(streak int) string {
	switch {
	case streak == 0:
		return "No active streak"
	case streak == 1:
		return "1 win streak"
	case streak > 1:
		return fmt.Sprintf("%d win streak", streak)
	case streak == -1:
		return "1 loss streak"
	}
	return fmt.Sprintf("%d loss streak", -streak)
}

func playedAt(g *models.GameLog) time.Time {
	if g.StartedAt != nil {
		return *g.StartedAt
	}
	return g.CreatedAt
}
