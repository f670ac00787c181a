package daemon

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/events"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
	"github.com/ramonehamilton/spell-bingo/internal/replay"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

// GameLoader loads archived games. *storage.Service satisfies it.
type GameLoader interface {
	Game(ctx context.Context, id string) (*models.GameLog, *bingo.GameLogData, error)
}

// ContextSource supplies what the replayer shows while idle, usually the
// live session.
type ContextSource func(ctx context.Context) (replay.Context, error)

// ReplayStatus is the replay clock plus the game being replayed.
type ReplayStatus struct {
	GameID string `json:"gameId,omitempty"`
	replay.Status
}

// ReplayView is the board currently shown by the replayer.
type ReplayView struct {
	GameID   string             `json:"gameId,omitempty"`
	Room     bingo.RoomConfig   `json:"room"`
	Players  []string           `json:"players"`
	Spells   bingo.Board        `json:"spells"`
	Spells2  bingo.Board        `json:"spells2,omitempty"`
	Statuses []bingo.CellStatus `json:"statuses"`
	Score    []int              `json:"score"`
}

// ReplayController replays archived games and forwards replay events to the
// dispatcher.
type ReplayController struct {
	games        GameLoader
	replayer     *replay.Replayer
	dispatcher   *events.EventDispatcher
	defaultSpeed float64
	source       ContextSource
	log          *logrus.Entry

	// opMu serializes control operations; idMu guards gameID, which the
	// event listener reads while an operation is in flight.
	opMu   sync.Mutex
	idMu   sync.RWMutex
	gameID string
}

// NewReplayController creates a controller driving replayer. dispatcher may
// be nil.
func NewReplayController(games GameLoader, replayer *replay.Replayer, dispatcher *events.EventDispatcher, defaultSpeed float64) *ReplayController {
	if defaultSpeed <= 0 {
		defaultSpeed = 1
	}
	rc := &ReplayController{
		games:        games,
		replayer:     replayer,
		dispatcher:   dispatcher,
		defaultSpeed: defaultSpeed,
		log:          logger.Component("replays"),
	}
	replayer.OnEvent(rc.forward)
	return rc
}

// SetContextSource installs the source consulted before each replay starts.
func (rc *ReplayController) SetContextSource(src ContextSource) {
	rc.opMu.Lock()
	defer rc.opMu.Unlock()
	rc.source = src
}

// Start loads game id from the archive and starts replaying it. A replay
// already running must be ended first.
func (rc *ReplayController) Start(ctx context.Context, id string) (ReplayStatus, error) {
	rc.opMu.Lock()
	defer rc.opMu.Unlock()

	_, data, err := rc.games.Game(ctx, id)
	if err != nil {
		return ReplayStatus{}, err
	}

	if phase := rc.replayer.Status().Phase; phase == replay.Playing || phase == replay.Paused {
		return ReplayStatus{}, replay.ErrAlreadyActive
	}
	if rc.source != nil && rc.replayer.Status().Phase == replay.Idle {
		if shown, err := rc.source(ctx); err != nil {
			rc.log.WithError(err).Debug("no live context to restore after replay")
		} else if err := rc.replayer.SetContext(shown); err != nil {
			return ReplayStatus{}, err
		}
	}

	prev := rc.setGameID(id)
	if err := rc.replayer.Start(data); err != nil {
		rc.setGameID(prev)
		return ReplayStatus{}, err
	}
	if rc.defaultSpeed != 1 {
		if err := rc.replayer.SetSpeed(rc.defaultSpeed); err != nil {
			rc.log.WithError(err).Warn("failed to apply default replay speed")
		}
	}
	rc.log.WithField("game", id).Info("replaying archived game")
	return rc.Status(), nil
}

// Pause pauses the running replay.
func (rc *ReplayController) Pause() (ReplayStatus, error) {
	return rc.do(rc.replayer.Pause)
}

// Resume resumes a paused replay.
func (rc *ReplayController) Resume() (ReplayStatus, error) {
	return rc.do(rc.replayer.Resume)
}

// Seek moves the replay to timestamp ms of game time.
func (rc *ReplayController) Seek(timestamp int64) (ReplayStatus, error) {
	return rc.do(func() error { return rc.replayer.Seek(timestamp) })
}

// SetSpeed changes the replay speed multiplier.
func (rc *ReplayController) SetSpeed(speed float64) (ReplayStatus, error) {
	return rc.do(func() error { return rc.replayer.SetSpeed(speed) })
}

// End stops the replay and restores what was shown before it.
func (rc *ReplayController) End() (ReplayStatus, error) {
	rc.opMu.Lock()
	defer rc.opMu.Unlock()
	if err := rc.replayer.End(); err != nil {
		return ReplayStatus{}, err
	}
	rc.setGameID("")
	return rc.Status(), nil
}

// Status returns the replay clock.
func (rc *ReplayController) Status() ReplayStatus {
	return ReplayStatus{GameID: rc.currentID(), Status: rc.replayer.Status()}
}

// View returns the board currently shown.
func (rc *ReplayController) View() ReplayView {
	shown := rc.replayer.Snapshot()
	view := ReplayView{
		GameID:   rc.currentID(),
		Room:     shown.Room,
		Players:  shown.Players,
		Spells:   shown.State.Spells,
		Statuses: shown.State.Statuses,
		Score:    shown.State.Scores(),
	}
	if shown.State.DualBoard {
		view.Spells2 = shown.State.Spells2
	}
	return view
}

func (rc *ReplayController) do(op func() error) (ReplayStatus, error) {
	rc.opMu.Lock()
	defer rc.opMu.Unlock()
	if err := op(); err != nil {
		return ReplayStatus{}, err
	}
	return rc.Status(), nil
}

func (rc *ReplayController) setGameID(id string) string {
	rc.idMu.Lock()
	defer rc.idMu.Unlock()
	prev := rc.gameID
	rc.gameID = id
	return prev
}

func (rc *ReplayController) currentID() string {
	rc.idMu.RLock()
	defer rc.idMu.RUnlock()
	return rc.gameID
}

func (rc *ReplayController) forward(ev replay.Event) {
	if rc.dispatcher == nil {
		return
	}
	rc.dispatcher.Dispatch(events.NewEvent(context.Background(), ev.Type, events.NewReplayEvent(rc.currentID(), ev)))
}
