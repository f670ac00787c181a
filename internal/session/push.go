package session

import "github.com/ramonehamilton/spell-bingo/internal/bingo"

// Push kinds as named on the session channel.
const (
	KindUpdateSpellStatus = "push_update_spell_status"
	KindUpdateOneSpell    = "push_update_one_spell"
	KindStartGame         = "push_start_game"
	KindStopGame          = "push_stop_game"
	KindPause             = "push_pause"
	KindSync              = "sync_all_spells"
)

// Push is an authoritative state change delivered by the session channel.
type Push interface {
	Kind() string
}

// SpellStatusUpdate reports a cell's new status and who caused it. Optional
// fields are only present when the server sends them.
type SpellStatusUpdate struct {
	Index             int              `json:"index"`
	Status            bingo.CellStatus `json:"status"`
	Causer            string           `json:"causer"`
	SpellFailedCountA *int             `json:"spell_failed_count_a,omitempty"`
	SpellFailedCountB *int             `json:"spell_failed_count_b,omitempty"`
	WhichBoardA       *int             `json:"which_board_a,omitempty"`
	WhichBoardB       *int             `json:"which_board_b,omitempty"`
	GetOnWhichBoard   *int             `json:"get_on_which_board,omitempty"`
}

func (SpellStatusUpdate) Kind() string { return KindUpdateSpellStatus }

// OneSpellUpdate replaces one cell's spell payload.
type OneSpellUpdate struct {
	BoardIdx   int         `json:"board_idx"`
	SpellIdx   int         `json:"spell_idx"`
	Spell      bingo.Spell `json:"spell"`
	PlayerName string      `json:"player_name"`
}

func (OneSpellUpdate) Kind() string { return KindUpdateOneSpell }

// StartGame begins a game under the given room configuration.
type StartGame struct {
	Room         bingo.RoomConfig `json:"room"`
	Players      []string         `json:"players"`
	IsCustomGame bool             `json:"is_custom_game"`
}

func (StartGame) Kind() string { return KindStartGame }

// StopGame ends the game. Winner is 0, 1 or -1 for no winner.
type StopGame struct {
	Winner int `json:"winner"`
}

func (StopGame) Kind() string { return KindStopGame }

// PauseUpdate pauses or resumes the game.
type PauseUpdate struct {
	Pause  bool   `json:"pause"`
	Causer string `json:"causer,omitempty"`
}

func (PauseUpdate) Kind() string { return KindPause }

// Sync carries a full board snapshot, as answered by getAllSpells.
type Sync struct {
	Spells     bingo.Board        `json:"spells"`
	Spells2    bingo.Board        `json:"spells2"`
	Statuses   []bingo.CellStatus `json:"spell_status"`
	NormalData *bingo.NormalData  `json:"normal_data"`
}

func (Sync) Kind() string { return KindSync }
