package events

import (
	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/replay"
	"github.com/ramonehamilton/spell-bingo/internal/session"
)

// Event types.
const (
	TypeCellChanged    = "cell:changed"
	TypeGameStarted    = "game:started"
	TypeGameEnded      = "game:ended"
	TypeGameArchived   = "game:archived"
	TypeImportFailed   = "import:failed"
	TypeChannelStatus  = "channel:status"
	TypeDaemonStatus   = "daemon:status"
	TypeReplayStarted  = "replay:started"
	TypeReplayProgress = "replay:progress"
	TypeReplayPaused   = "replay:paused"
	TypeReplayResumed  = "replay:resumed"
	TypeReplaySeeked   = "replay:seeked"
	TypeReplayComplete = "replay:completed"
	TypeReplayEnded    = "replay:ended"
)

// CellChangedEvent is the payload of cell:changed, sent for every committed
// change of a live or replayed state.
type CellChangedEvent struct {
	Index        int              `json:"index"`
	Board        int              `json:"board"`
	From         bingo.CellStatus `json:"from"`
	To           bingo.CellStatus `json:"to"`
	Actor        string           `json:"actor"`
	Event        bingo.Event      `json:"event"`
	BoardFlipped bool             `json:"boardFlipped,omitempty"`
	At           int64            `json:"at"`
	Replay       bool             `json:"replay,omitempty"`
}

// NewCellChangedEvent converts a session change.
func NewCellChangedEvent(ch session.Change, replay bool) CellChangedEvent {
	return CellChangedEvent{
		Index:        ch.Index,
		Board:        ch.Board,
		From:         ch.From,
		To:           ch.To,
		Actor:        ch.Actor.String(),
		Event:        ch.Event,
		BoardFlipped: ch.BoardFlipped,
		At:           ch.At,
		Replay:       replay,
	}
}

// GameStartedEvent is the payload of game:started.
type GameStartedEvent struct {
	RoomID  string   `json:"roomId"`
	Players []string `json:"players"`
}

// GameEndedEvent is the payload of game:ended.
type GameEndedEvent struct {
	RoomID  string   `json:"roomId"`
	Players []string `json:"players"`
	Score   []int    `json:"score"`
	Actions int      `json:"actions"`
}

// GameArchivedEvent is the payload of game:archived.
type GameArchivedEvent struct {
	ID      string   `json:"id"`
	Players []string `json:"players"`
	Source  string   `json:"source"`
}

// ImportFailedEvent is the payload of import:failed.
type ImportFailedEvent struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ChannelStatusEvent is the payload of channel:status.
type ChannelStatusEvent struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url"`
	Error     string `json:"error,omitempty"`
}

// DaemonStatusEvent is the payload of the periodic daemon:status heartbeat.
type DaemonStatusEvent struct {
	Status   string  `json:"status"`
	Uptime   float64 `json:"uptime"`
	Clients  int     `json:"clients"`
	Archived int64   `json:"archived"`
	Live     bool    `json:"live"`
}

// ReplayEvent is the payload of every replay:* event.
type ReplayEvent struct {
	GameID      string               `json:"gameId,omitempty"`
	Phase       string               `json:"phase"`
	CurrentTime int64                `json:"currentTime"`
	TotalTime   int64                `json:"totalTime"`
	Cursor      int                  `json:"cursor"`
	Total       int                  `json:"totalActions"`
	Speed       float64              `json:"speed"`
	Percentage  float64              `json:"percentage"`
	Applied     []bingo.PlayerAction `json:"applied,omitempty"`
}

// NewReplayEvent converts a replayer event. Replay event types are shared
// with the replayer, so ev.Type is kept as is.
func NewReplayEvent(gameID string, ev replay.Event) ReplayEvent {
	out := ReplayEvent{
		GameID:      gameID,
		Phase:       ev.Status.PhaseName,
		CurrentTime: ev.Status.CurrentTime,
		TotalTime:   ev.Status.TotalTime,
		Cursor:      ev.Status.Cursor,
		Total:       ev.Status.TotalActions,
		Speed:       ev.Status.Speed,
		Applied:     ev.Applied,
	}
	if out.TotalTime > 0 {
		out.Percentage = float64(min(out.CurrentTime, out.TotalTime)) / float64(out.TotalTime) * 100
	}
	return out
}
