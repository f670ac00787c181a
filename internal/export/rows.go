package export

import (
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/analytics"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

// GameRow is one archived game.
type GameRow struct {
	ID          string    `json:"id" csv:"id"`
	RoomID      string    `json:"roomId" csv:"room_id"`
	PlayerA     string    `json:"playerA" csv:"player_a"`
	PlayerB     string    `json:"playerB" csv:"player_b"`
	ScoreA      int       `json:"scoreA" csv:"score_a"`
	ScoreB      int       `json:"scoreB" csv:"score_b"`
	GameType    int       `json:"gameType" csv:"game_type"`
	DualBoard   bool      `json:"dualBoard" csv:"dual_board"`
	StartedAt   time.Time `json:"startedAt" csv:"started_at"`
	TotalTimeS  float64   `json:"totalTimeSeconds" csv:"total_time_s"`
	ActionCount int       `json:"actionCount" csv:"action_count"`
	Source      string    `json:"source" csv:"source"`
}

// PlayerRow is one side's analytics summary for a game.
type PlayerRow struct {
	GameID             string   `json:"gameId" csv:"game_id"`
	Player             string   `json:"player" csv:"player"`
	Side               string   `json:"side" csv:"side"`
	Score              int      `json:"score" csv:"score"`
	Completed          int      `json:"completed" csv:"completed"`
	Stolen             int      `json:"stolen" csv:"stolen"`
	TotalTimeS         float64  `json:"totalTimeSeconds" csv:"total_time_s"`
	StolenTimeS        float64  `json:"stolenTimeSeconds" csv:"stolen_time_s"`
	AvailableTimeS     float64  `json:"availableTimeSeconds" csv:"available_time_s"`
	RawEfficiency      *float64 `json:"rawEfficiency,omitempty" csv:"raw_efficiency"`
	WeightedEfficiency *float64 `json:"weightedEfficiency,omitempty" csv:"weighted_efficiency"`
	Stars1             int      `json:"stars1" csv:"stars_1"`
	Stars2             int      `json:"stars2" csv:"stars_2"`
	Stars3             int      `json:"stars3" csv:"stars_3"`
	Stars4             int      `json:"stars4" csv:"stars_4"`
	Stars5             int      `json:"stars5" csv:"stars_5"`
}

// TaskRow is one completed or stolen spell.
type TaskRow struct {
	GameID      string  `json:"gameId" csv:"game_id"`
	Player      string  `json:"player" csv:"player"`
	Outcome     string  `json:"outcome" csv:"outcome"` // completed or stolen
	SpellIndex  int     `json:"spellIndex" csv:"spell_index"`
	SpellName   string  `json:"spellName" csv:"spell_name"`
	Star        int     `json:"star" csv:"star"`
	Board       int     `json:"board" csv:"board"`
	DurationS   float64 `json:"durationSeconds" csv:"duration_s"`
	FinishedAtS float64 `json:"finishedAtSeconds" csv:"finished_at_s"`
}

// GameRows converts archive records.
func GameRows(games []*models.GameLog) []GameRow {
	rows := make([]GameRow, 0, len(games))
	for _, g := range games {
		row := GameRow{
			ID:          g.ID,
			RoomID:      g.RoomID,
			PlayerA:     g.PlayerA,
			PlayerB:     g.PlayerB,
			ScoreA:      g.ScoreA,
			ScoreB:      g.ScoreB,
			GameType:    g.GameType,
			DualBoard:   g.DualBoard,
			TotalTimeS:  seconds(g.TotalTimeMs),
			ActionCount: g.ActionCount,
			Source:      string(g.Source),
		}
		if g.StartedAt != nil {
			row.StartedAt = *g.StartedAt
		}
		rows = append(rows, row)
	}
	return rows
}

// PlayerRows converts both sides of an analysis.
func PlayerRows(gameID string, res *analytics.Result) []PlayerRow {
	rows := make([]PlayerRow, 0, len(res.Players))
	for _, p := range res.Players {
		row := PlayerRow{
			GameID:         gameID,
			Player:         p.Player,
			Side:           p.Side.String(),
			Score:          p.Score,
			Completed:      p.CompletedCount,
			Stolen:         p.StolenCount,
			TotalTimeS:     seconds(p.TotalTime),
			StolenTimeS:    seconds(p.StolenTime),
			AvailableTimeS: seconds(p.AvailableTime),
			Stars1:         p.StarHistogram[0],
			Stars2:         p.StarHistogram[1],
			Stars3:         p.StarHistogram[2],
			Stars4:         p.StarHistogram[3],
			Stars5:         p.StarHistogram[4],
		}
		if p.HasRawEfficiency {
			v := p.RawEfficiency
			row.RawEfficiency = &v
		}
		if p.HasWeightedEfficiency {
			v := p.WeightedEfficiency
			row.WeightedEfficiency = &v
		}
		rows = append(rows, row)
	}
	return rows
}

// TaskRows lists every completed and stolen spell of an analysis in side
// order.
func TaskRows(gameID string, res *analytics.Result) []TaskRow {
	var rows []TaskRow
	for _, p := range res.Players {
		for _, t := range p.Completed {
			rows = append(rows, taskRow(gameID, p.Player, "completed", t))
		}
		for _, t := range p.Stolen {
			rows = append(rows, taskRow(gameID, p.Player, "stolen", t))
		}
	}
	return rows
}

func taskRow(gameID, player, outcome string, t analytics.Task) TaskRow {
	return TaskRow{
		GameID:      gameID,
		Player:      player,
		Outcome:     outcome,
		SpellIndex:  t.SpellIndex,
		SpellName:   t.SpellName,
		Star:        t.Star,
		Board:       t.Board,
		DurationS:   seconds(t.Duration),
		FinishedAtS: seconds(t.FinishedAt),
	}
}

func seconds(ms int64) float64 {
	return float64(ms) / 1000
}
