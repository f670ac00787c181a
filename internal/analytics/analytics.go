// Package analytics derives per-player timing statistics from a recorded game:
// how long each claimed spell took, how much selection time was lost to
// steals, and efficiency against the spells' reference times.
package analytics

import (
	"errors"
	"fmt"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/bingo/actionlog"
	"github.com/ramonehamilton/spell-bingo/internal/session"
)

// Constants of the difficulty-weighted reference time:
// fastest + weightBase + (1/fix - 1) * (miss_time + weightMissBase).
const (
	weightBase     = 3.5
	weightMissBase = 1.5
)

// maxPenalizedClaims caps how many claim cooldowns are taken off a player's
// available time.
const maxPenalizedClaims = 11

// ErrNoGame is returned when there is nothing to analyze.
var ErrNoGame = errors.New("no game log to analyze")

// Task is one completed or stolen spell.
type Task struct {
	SpellIndex int    `json:"spellIndex"`
	SpellName  string `json:"spellName"`
	Star       int    `json:"star"`
	Board      int    `json:"board"`    // 0 board A, 1 board B
	Duration   int64  `json:"duration"` // effective ms
	FinishedAt int64  `json:"finishedAt"`
}

// PlayerStats is the analysis of one side.
type PlayerStats struct {
	Player            string     `json:"player"`
	Side              bingo.Side `json:"side"`
	Score             int        `json:"score"`
	CompletedCount    int        `json:"completedCount"`
	StarHistogram     [5]int     `json:"starHistogram"`
	TotalTime         int64      `json:"totalTime"`  // ms spent on claimed spells
	StolenTime        int64      `json:"stolenTime"` // ms spent on spells the opponent stole
	StolenCount       int        `json:"stolenCount"`
	UntrackedFinishes int        `json:"untrackedFinishes"`
	TotalFastest      float64    `json:"totalFastest"`    // seconds
	WeightedFastest   float64    `json:"weightedFastest"` // seconds
	AvailableTime     int64      `json:"availableTime"`   // ms
	CDPenalty         int64      `json:"cdPenalty"`       // ms

	// Efficiencies are percentages. The Has flags are false when the
	// denominator is zero or the game carries no reference times.
	RawEfficiency         float64 `json:"rawEfficiency"`
	HasRawEfficiency      bool    `json:"hasRawEfficiency"`
	WeightedEfficiency    float64 `json:"weightedEfficiency"`
	HasWeightedEfficiency bool    `json:"hasWeightedEfficiency"`

	Completed []Task `json:"completed"`
	Stolen    []Task `json:"stolen"`
}

// Result holds both players' statistics.
type Result struct {
	// TimerMetrics is true when the spell pool carries reference times, so
	// efficiencies are meaningful.
	TimerMetrics bool           `json:"timerMetrics"`
	Players      [2]PlayerStats `json:"players"`
}

// Analyze walks the action log once and returns both players' statistics.
// Inconsistent entries, such as a finish without a matching selection, are
// counted as untracked and never abort the analysis.
func Analyze(data *bingo.GameLogData) (*Result, error) {
	if data == nil {
		return nil, ErrNoGame
	}
	if len(data.Players) < 2 {
		return nil, fmt.Errorf("game log has %d players, expected 2", len(data.Players))
	}

	w := newWalker(data)
	for i, a := range data.Actions {
		w.step(i, a)
	}

	res := &Result{
		TimerMetrics: data.RoomConfig.SpellVersion == bingo.SpellVersionWithTimer && !data.IsCustomGame,
	}
	for side := bingo.SideA; side <= bingo.SideB; side++ {
		res.Players[side] = w.finalize(side, res.TimerMetrics)
	}
	return res, nil
}

// AvailableTime returns how long side could act in a game: the game length,
// capped by the configured game time, minus one cooldown per claim after the
// first (at most maxPenalizedClaims).
func AvailableTime(data *bingo.GameLogData, side bingo.Side) (available, penalty int64) {
	cfg := data.RoomConfig
	base := min(data.TotalTime()-cfg.CountdownMs(), cfg.GameTimeMs())
	claims := min(maxPenalizedClaims, max(0, data.FinalScore(side)-1))
	penalty = int64(cfg.PlayerCD(side)) * 1000 * int64(claims)
	return max(0, base-penalty), penalty
}

// ClaimDurations returns the effective duration of every finish and contest
// win that matched a selection, keyed by the claim's position in
// data.Actions. Claims without a matching selection are absent.
func ClaimDurations(data *bingo.GameLogData) map[int]int64 {
	if data == nil || len(data.Players) < 2 {
		return map[int]int64{}
	}
	w := newWalker(data)
	for i, a := range data.Actions {
		w.step(i, a)
	}
	return w.claims
}

// WeightedFastest returns the difficulty-weighted reference time of a spell in
// seconds. A spell with no capture rate is weighted as certain.
func WeightedFastest(s bingo.Spell) float64 {
	fix := bingo.DifficultyFix(s)
	if fix <= 0 {
		fix = 1
	}
	return s.Fastest + weightBase + (1/fix-1)*(s.MissTime+weightMissBase)
}

type player struct {
	stats   PlayerStats
	pending []bingo.PlayerAction // LIFO of selections awaiting a claim
	board   int                  // current board in dual-board games
}

// take removes and returns the most recent pending selection of index.
func (p *player) take(index int) (bingo.PlayerAction, bool) {
	for i := len(p.pending) - 1; i >= 0; i-- {
		if p.pending[i].SpellIndex == index {
			a := p.pending[i]
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return a, true
		}
	}
	return bingo.PlayerAction{}, false
}

// peek returns the most recent pending selection of index.
func (p *player) peek(index int) (bingo.PlayerAction, bool) {
	for i := len(p.pending) - 1; i >= 0; i-- {
		if p.pending[i].SpellIndex == index {
			return p.pending[i], true
		}
	}
	return bingo.PlayerAction{}, false
}

type walker struct {
	data      *bingo.GameLogData
	countdown int64
	dual      bool
	players   [2]*player
	claims    map[int]int64 // action position -> claim duration
}

func newWalker(data *bingo.GameLogData) *walker {
	w := &walker{
		data:      data,
		countdown: data.RoomConfig.CountdownMs(),
		claims:    make(map[int]int64),
		dual:      data.RoomConfig.IsDualBoard() && data.NormalData != nil && len(data.Spells2) == bingo.BoardSize,
	}
	for side := bingo.SideA; side <= bingo.SideB; side++ {
		w.players[side] = &player{stats: PlayerStats{
			Player: data.PlayerName(side),
			Side:   side,
			Score:  data.FinalScore(side),
		}}
	}
	return w
}

func (w *walker) step(i int, a bingo.PlayerAction) {
	kind, status, ok := bingo.ParseActionType(a.ActionType)
	if !ok {
		return
	}
	idx := w.data.PlayerIndex(a.PlayerName)

	switch kind {
	case bingo.ActionSelect:
		if idx < 0 {
			return
		}
		w.players[idx].pending = append(w.players[idx].pending, a)

	case bingo.ActionFinish, bingo.ActionContestWin:
		if idx < 0 {
			return
		}
		side := bingo.Side(idx)
		p := w.players[side]
		if sel, ok := p.take(a.SpellIndex); ok {
			if kind == bingo.ActionContestWin {
				sel.Timestamp = w.contestStart(side, sel)
			}
			w.claims[i] = w.complete(side, sel, a)
		} else {
			p.stats.UntrackedFinishes++
		}
		if kind == bingo.ActionContestWin {
			w.steal(side, a)
		}
		w.followPortal(side, a.SpellIndex)

	case bingo.ActionSetPrefix:
		w.set(idx, status, a)
	}
}

// set handles a direct status assignment. A player setting their own
// attained status over the opponent's pending selection steals it; a
// selected status counts as a selection for the side it names; a player's
// own attained status completes their matching selection. A status that no
// longer includes a side's selection, such as an unselect, drops that side's
// pending selection of the cell.
func (w *walker) set(idx int, status bingo.CellStatus, a bingo.PlayerAction) {
	for side := bingo.SideA; side <= bingo.SideB; side++ {
		if idx >= 0 && bingo.Side(idx) != side {
			continue
		}
		if status == bingo.StatusNone || status == bingo.SelectedStatus(side.Opponent()) {
			w.players[side].take(a.SpellIndex)
		}
	}

	if idx >= 0 {
		side := bingo.Side(idx)
		if status == bingo.AttainedStatus(side) {
			w.steal(side, a)
		}
	}

	for side := bingo.SideA; side <= bingo.SideB; side++ {
		if idx >= 0 && bingo.Side(idx) != side {
			continue
		}
		if status == bingo.SelectedStatus(side) || status == bingo.StatusBothSelected {
			w.players[side].pending = append(w.players[side].pending, a)
		}
	}

	if idx < 0 {
		return
	}
	side := bingo.Side(idx)
	if status != bingo.AttainedStatus(side) {
		return
	}
	p := w.players[side]
	if sel, ok := p.take(a.SpellIndex); ok {
		w.complete(side, sel, a)
	} else {
		p.stats.UntrackedFinishes++
	}
	w.followPortal(side, a.SpellIndex)
}

// steal removes the opponent's pending selection of the claimed cell.
func (w *walker) steal(claimer bingo.Side, a bingo.PlayerAction) {
	victim := w.players[claimer.Opponent()]
	sel, ok := victim.take(a.SpellIndex)
	if !ok {
		return
	}
	victim.stats.StolenCount++

	spell, board, ok := w.spellFor(claimer, a.SpellIndex)
	if !ok {
		return
	}
	d := w.duration(sel.Timestamp, a.Timestamp)
	if d <= 0 {
		return
	}
	victim.stats.StolenTime += d
	victim.stats.Stolen = append(victim.stats.Stolen, task(spell, a, board, d))
}

// contestStart returns when a contested cell's clock started: the earlier of
// the winner's selection and the opponent's pending selection of the cell.
func (w *walker) contestStart(winner bingo.Side, sel bingo.PlayerAction) int64 {
	if other, ok := w.players[winner.Opponent()].peek(sel.SpellIndex); ok {
		return min(sel.Timestamp, other.Timestamp)
	}
	return sel.Timestamp
}

// complete records a matched claim and returns its duration. Claims of
// zero or negative duration are not counted.
func (w *walker) complete(side bingo.Side, sel, a bingo.PlayerAction) int64 {
	d := w.duration(sel.Timestamp, a.Timestamp)
	if d <= 0 {
		return d
	}
	spell, board, ok := w.spellFor(side, a.SpellIndex)
	if !ok {
		return d
	}
	st := &w.players[side].stats
	st.TotalTime += d
	st.TotalFastest += spell.Fastest
	if spell.Star >= 1 && spell.Star <= len(st.StarHistogram) {
		st.StarHistogram[spell.Star-1]++
	}
	st.WeightedFastest += WeightedFastest(spell)
	st.Completed = append(st.Completed, task(spell, a, board, d))
	return d
}

// duration is the effective time from a selection to a claim. Time before
// the countdown ends does not count.
func (w *walker) duration(selectedAt, claimedAt int64) int64 {
	return actionlog.EffectiveDuration(w.data.Actions, max(selectedAt, w.countdown), claimedAt)
}

// spellFor resolves the spell side acted on at index. In dual-board games the
// capture bitmask decides the board; without capture information the side's
// current board is used.
func (w *walker) spellFor(side bingo.Side, index int) (bingo.Spell, int, bool) {
	if !bingo.ValidIndex(index) || len(w.data.Spells) != bingo.BoardSize {
		return bingo.Spell{}, 0, false
	}
	if !w.dual {
		return w.data.Spells[index], 0, true
	}

	board := w.players[side].board
	if g := w.data.NormalData.GetOnWhichBoard; index < len(g) {
		if b := session.CaptureBoard(g[index], side); b >= 0 {
			board = b
		}
	}
	if board == 1 {
		return w.data.Spells2[index], 1, true
	}
	return w.data.Spells[index], 0, true
}

// followPortal flips side's current board after a claim on a portal cell.
func (w *walker) followPortal(side bingo.Side, index int) {
	if !w.dual || !bingo.ValidIndex(index) {
		return
	}
	p := w.players[side]
	portals := w.data.NormalData.IsPortalA
	if p.board == 1 {
		portals = w.data.NormalData.IsPortalB
	}
	if index < len(portals) && portals[index] == 1 {
		p.board = 1 - p.board
	}
}

func (w *walker) finalize(side bingo.Side, timerMetrics bool) PlayerStats {
	st := w.players[side].stats
	st.CompletedCount = len(st.Completed)
	st.AvailableTime, st.CDPenalty = AvailableTime(w.data, side)

	if !timerMetrics {
		return st
	}
	if st.TotalTime > 0 {
		st.RawEfficiency = st.TotalFastest * 1000 / float64(st.TotalTime) * 100
		st.HasRawEfficiency = true
	}
	if st.AvailableTime > 0 {
		st.WeightedEfficiency = st.WeightedFastest * 1000 / float64(st.AvailableTime) * 100
		st.HasWeightedEfficiency = true
	}
	return st
}

func task(s bingo.Spell, a bingo.PlayerAction, board int, d int64) Task {
	return Task{
		SpellIndex: a.SpellIndex,
		SpellName:  s.Name,
		Star:       s.Star,
		Board:      board,
		Duration:   d,
		FinishedAt: a.Timestamp,
	}
}
