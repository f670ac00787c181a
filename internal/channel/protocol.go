// Package channel is the websocket client of the room server's session
// channel. It sends player and host commands and forwards the server's
// authoritative pushes to a session.
package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/session"
)

// Command actions.
const (
	ActionGetAllSpells      = "get_all_spells"
	ActionSelectSpell       = "select_spell"
	ActionFinishSpell       = "finish_spell"
	ActionUpdateSpellStatus = "update_spell_status"
	ActionRefreshSpell      = "refresh_spell"
	ActionStartGame         = "start_game"
	ActionStopGame          = "stop_game"
	ActionPause             = "pause"
)

// ErrUnknownPush is returned by DecodePush for an action it does not know.
var ErrUnknownPush = errors.New("unknown push action")

// Message is the envelope of every frame. Requests carry a non-zero Echo that
// the reply repeats; pushes carry none.
type Message struct {
	Action string          `json:"action"`
	Echo   int64           `json:"echo,omitempty"`
	Code   int             `json:"code,omitempty"`
	Msg    string          `json:"msg,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ServerError is a non-zero reply code.
type ServerError struct {
	Action string
	Code   int
	Msg    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s failed with code %d: %s", e.Action, e.Code, e.Msg)
}

// GameData is the reply to get_all_spells.
type GameData struct {
	Spells     bingo.Board        `json:"spells"`
	Spells2    bingo.Board        `json:"spells2"`
	Statuses   []bingo.CellStatus `json:"spell_status"`
	LeftTime   int64              `json:"left_time"`
	Status     bingo.GameStatus   `json:"status"`
	LeftCDTime int64              `json:"left_cd_time"`
	NormalData *bingo.NormalData  `json:"normal_data"`
}

// Sync converts the reply into the session push that installs it.
func (g GameData) Sync() session.Sync {
	return session.Sync{
		Spells:     g.Spells,
		Spells2:    g.Spells2,
		Statuses:   g.Statuses,
		NormalData: g.NormalData,
	}
}

// startGameData is push_start_game: the room config, optionally with the
// seated player names.
type startGameData struct {
	bingo.RoomConfig
	Names        []string `json:"names,omitempty"`
	IsCustomGame bool     `json:"is_custom_game,omitempty"`
}

// DecodePush turns a push frame into a session push. Players fills in the
// seat names when push_start_game does not carry them.
func DecodePush(m Message, players []string) (session.Push, error) {
	switch m.Action {
	case session.KindUpdateSpellStatus:
		var p session.SpellStatusUpdate
		return decodeInto(m, &p, func() session.Push { return p })
	case session.KindUpdateOneSpell:
		var p session.OneSpellUpdate
		return decodeInto(m, &p, func() session.Push { return p })
	case session.KindStopGame:
		var p session.StopGame
		return decodeInto(m, &p, func() session.Push { return p })
	case session.KindPause:
		var p session.PauseUpdate
		return decodeInto(m, &p, func() session.Push { return p })
	case session.KindStartGame:
		var d startGameData
		return decodeInto(m, &d, func() session.Push {
			names := d.Names
			if len(names) < 2 {
				names = players
			}
			return session.StartGame{Room: d.RoomConfig, Players: names, IsCustomGame: d.IsCustomGame}
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPush, m.Action)
	}
}

func decodeInto(m Message, dst any, build func() session.Push) (session.Push, error) {
	if len(m.Data) > 0 {
		if err := json.Unmarshal(m.Data, dst); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", m.Action, err)
		}
	}
	return build(), nil
}
