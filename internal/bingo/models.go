package bingo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNonMonotonic is returned when an action is older than the one before it.
var ErrNonMonotonic = errors.New("action timestamp precedes the last logged action")

// BoardSize is the number of cells on one board.
const BoardSize = 25

// BoardWidth is the number of cells per row.
const BoardWidth = 5

// Spell is the payload of one board cell.
type Spell struct {
	Index       int     `json:"index"`
	Game        string  `json:"game"` // source-title code, e.g. "6"
	Name        string  `json:"name"`
	Rank        string  `json:"rank"` // L, EX, PH
	Star        int     `json:"star"` // 1-5
	Desc        string  `json:"desc"`
	ID          int     `json:"id"`
	Fastest     float64 `json:"fastest"`   // reference completion seconds
	MissTime    float64 `json:"miss_time"` // expected failure cost seconds
	PowerWeight float64 `json:"power_weight"`
	Difficulty  float64 `json:"difficulty"`
	ChangeRate  float64 `json:"change_rate"`
	MaxCapRate  float64 `json:"max_cap_rate"` // capture probability ceiling, 0-1
}

// Board is a row-major sequence of exactly BoardSize spells, or empty.
type Board []Spell

// Validate checks the board is either empty or fully populated.
func (b Board) Validate() error {
	if len(b) != 0 && len(b) != BoardSize {
		return fmt.Errorf("board has %d cells, expected 0 or %d", len(b), BoardSize)
	}
	return nil
}

// Clone returns a copy that shares no backing array with b.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	copy(out, b)
	return out
}

// Row returns the zero-based row of a cell index.
func Row(index int) int { return index / BoardWidth }

// Col returns the zero-based column of a cell index.
func Col(index int) int { return index % BoardWidth }

// ValidIndex reports whether index addresses a board cell.
func ValidIndex(index int) bool { return index >= 0 && index < BoardSize }

// Side identifies one of the two players. It doubles as the index into
// per-player arrays.
type Side int

const (
	SideA Side = 0
	SideB Side = 1
)

// Opponent returns the other side.
func (s Side) Opponent() Side { return 1 - s }

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Actor is whoever requested a cell transition.
type Actor int

const (
	ActorA Actor = iota
	ActorB
	ActorHost
)

// ActorFor returns the actor playing side s.
func ActorFor(s Side) Actor {
	if s == SideA {
		return ActorA
	}
	return ActorB
}

// Side returns the actor's side. ok is false for the host.
func (a Actor) Side() (Side, bool) {
	switch a {
	case ActorA:
		return SideA, true
	case ActorB:
		return SideB, true
	default:
		return 0, false
	}
}

func (a Actor) String() string {
	switch a {
	case ActorA:
		return "A"
	case ActorB:
		return "B"
	default:
		return "host"
	}
}

// GameStatus is the lifecycle of a game.
type GameStatus int

const (
	GameNotStarted GameStatus = iota
	GameStarted
	GamePaused
	GameEnded
)

func (g GameStatus) String() string {
	switch g {
	case GameStarted:
		return "started"
	case GamePaused:
		return "paused"
	case GameEnded:
		return "ended"
	default:
		return "not_started"
	}
}

// Action types recorded in the log.
const (
	ActionSelect     = "select"
	ActionFinish     = "finish"
	ActionContestWin = "contest_win"
	ActionPause      = "pause"
	ActionResume     = "resume"
	ActionSetPrefix  = "set"
)

// SetAction returns the action type for a direct status assignment.
func SetAction(status CellStatus) string {
	return ActionSetPrefix + "-" + strconv.Itoa(int(status))
}

// ParseActionType splits an action type on "-". For "set-N" it also returns
// the parsed status; ok is false when the suffix is not a number.
func ParseActionType(actionType string) (kind string, status CellStatus, ok bool) {
	parts := strings.SplitN(actionType, "-", 2)
	kind = parts[0]
	if kind != ActionSetPrefix {
		return kind, 0, true
	}
	if len(parts) < 2 {
		return kind, 0, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return kind, 0, false
	}
	return kind, CellStatus(n), true
}

// PlayerAction is one entry of the action log. Timestamp is milliseconds since
// game start.
type PlayerAction struct {
	PlayerName string `json:"playerName"`
	ActionType string `json:"actionType"`
	SpellIndex int    `json:"spellIndex"`
	SpellName  string `json:"spellName"`
	Timestamp  int64  `json:"timestamp"`
	ScoreNow   []int  `json:"scoreNow"`
}

// Score returns the score of side s at the time of the action.
func (a PlayerAction) Score(s Side) int {
	if int(s) < len(a.ScoreNow) {
		return a.ScoreNow[s]
	}
	return 0
}

// RoomConfig is the configuration snapshot a game was played under.
type RoomConfig struct {
	RID              string             `json:"rid"`
	Type             int                `json:"type"`      // 1 standard, 2 BP, 3 link
	GameTime         int                `json:"game_time"` // minutes, countdown excluded
	Countdown        int                `json:"countdown"` // seconds
	Games            []string           `json:"games"`
	Ranks            []string           `json:"ranks"`
	NeedWin          int                `json:"need_win"`
	Difficulty       int                `json:"difficulty"`
	CDTime           int                `json:"cd_time"` // seconds
	CDModifierA      int                `json:"cd_modifier_a"`
	CDModifierB      int                `json:"cd_modifier_b"`
	ReservedType     int                `json:"reserved_type,omitempty"`
	BlindSetting     int                `json:"blind_setting"`
	SpellVersion     int                `json:"spell_version"`
	DualBoard        int                `json:"dual_board"`
	PortalCount      int                `json:"portal_count"`
	BlindRevealLevel int                `json:"blind_reveal_level"`
	DiffLevel        int                `json:"diff_level"`
	UseAI            bool               `json:"use_ai"`
	AIStrategyLevel  int                `json:"ai_strategy_level"`
	AIStyle          int                `json:"ai_style,omitempty"`
	AIBasePower      int                `json:"ai_base_power"`
	AIExperience     int                `json:"ai_experience"`
	AITemperature    float64            `json:"ai_temperature"`
	GameWeight       map[string]float64 `json:"game_weight,omitempty"`
	AIPreference     map[string]float64 `json:"ai_preference,omitempty"`
	CustomLevelCount []int              `json:"custom_level_count,omitempty"`
}

// CountdownMs returns the pre-game countdown in milliseconds.
func (c RoomConfig) CountdownMs() int64 { return int64(c.Countdown) * 1000 }

// GameTimeMs returns the configured game length in milliseconds.
func (c RoomConfig) GameTimeMs() int64 { return int64(c.GameTime) * 60 * 1000 }

// IsDualBoard reports whether the second board is in play.
func (c RoomConfig) IsDualBoard() bool { return c.DualBoard > 0 }

// PlayerCD returns side s's claim cooldown in seconds, after its modifier,
// clamped to [1, 3*cd_time].
func (c RoomConfig) PlayerCD(s Side) int {
	mod := c.CDModifierA
	if s == SideB {
		mod = c.CDModifierB
	}
	cd := c.CDTime + mod
	if cd > c.CDTime*3 {
		cd = c.CDTime * 3
	}
	if cd < 1 {
		cd = 1
	}
	return cd
}

// NormalData carries the dual-board bookkeeping of a game.
type NormalData struct {
	WhichBoardA     int   `json:"which_board_a"`
	WhichBoardB     int   `json:"which_board_b"`
	IsPortalA       []int `json:"is_portal_a"`
	IsPortalB       []int `json:"is_portal_b"`
	GetOnWhichBoard []int `json:"get_on_which_board"`
}

// GameLogData is the frozen record of one game.
type GameLogData struct {
	RoomConfig         RoomConfig     `json:"roomConfig"`
	Players            []string       `json:"players"`
	Spells             Board          `json:"spells"`
	Spells2            Board          `json:"spells2"`
	NormalData         *NormalData    `json:"normalData"`
	Actions            []PlayerAction `json:"actions"`
	GameStartTimestamp int64          `json:"gameStartTimestamp"` // unix ms
	Score              []int          `json:"score"`
	InitStatus         []CellStatus   `json:"initStatus"`
	IsCustomGame       bool           `json:"isCustomGame"`
}

// PlayerIndex returns the side a player name plays, or -1 for anyone else
// (the host).
func (g *GameLogData) PlayerIndex(name string) int {
	for i, p := range g.Players {
		if i > 1 {
			break
		}
		if p == name {
			return i
		}
	}
	return -1
}

// PlayerName returns the name of side s, or "" when unknown.
func (g *GameLogData) PlayerName(s Side) string {
	if int(s) < len(g.Players) {
		return g.Players[s]
	}
	return ""
}

// FinalScore returns side s's final score.
func (g *GameLogData) FinalScore(s Side) int {
	if int(s) < len(g.Score) {
		return g.Score[s]
	}
	return 0
}

// TotalTime is the latest action timestamp, or 0 for an empty log.
func (g *GameLogData) TotalTime() int64 {
	var last int64
	for _, a := range g.Actions {
		last = max(last, a.Timestamp)
	}
	return last
}

// Validate checks the structural invariants of a game record.
func (g *GameLogData) Validate() error {
	if len(g.Players) < 2 {
		return fmt.Errorf("game log has %d players, expected 2", len(g.Players))
	}
	if err := g.Spells.Validate(); err != nil {
		return fmt.Errorf("board A: %w", err)
	}
	if err := g.Spells2.Validate(); err != nil {
		return fmt.Errorf("board B: %w", err)
	}
	if len(g.InitStatus) != 0 && len(g.InitStatus) != BoardSize {
		return fmt.Errorf("initial status has %d cells, expected %d", len(g.InitStatus), BoardSize)
	}
	for i := 1; i < len(g.Actions); i++ {
		if prev, cur := g.Actions[i-1].Timestamp, g.Actions[i].Timestamp; cur < prev {
			return fmt.Errorf("action %d: %w: %d < %d", i, ErrNonMonotonic, cur, prev)
		}
	}
	return nil
}

// ReplayPayload is the unit of replay exchange.
type ReplayPayload struct {
	Version string      `json:"version"`
	Data    GameLogData `json:"data"`
}
