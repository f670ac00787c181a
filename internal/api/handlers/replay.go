package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/spell-bingo/internal/api/response"
	"github.com/ramonehamilton/spell-bingo/internal/daemon"
	"github.com/ramonehamilton/spell-bingo/internal/replay"
	"github.com/ramonehamilton/spell-bingo/internal/storage"
)

// ReplayControl drives the replayer. *daemon.ReplayController satisfies it.
type ReplayControl interface {
	Start(ctx context.Context, id string) (daemon.ReplayStatus, error)
	Pause() (daemon.ReplayStatus, error)
	Resume() (daemon.ReplayStatus, error)
	Seek(timestamp int64) (daemon.ReplayStatus, error)
	SetSpeed(speed float64) (daemon.ReplayStatus, error)
	End() (daemon.ReplayStatus, error)
	Status() daemon.ReplayStatus
	View() daemon.ReplayView
}

// ReplayHandler handles replay control requests.
type ReplayHandler struct {
	control ReplayControl
}

// NewReplayHandler creates a new ReplayHandler.
func NewReplayHandler(control ReplayControl) *ReplayHandler {
	return &ReplayHandler{control: control}
}

// SeekRequest moves the replay to Timestamp ms of game time.
type SeekRequest struct {
	Timestamp *int64 `json:"timestamp"`
}

// SpeedRequest sets the replay speed multiplier.
type SpeedRequest struct {
	Speed *float64 `json:"speed"`
}

// Start starts replaying an archived game.
func (h *ReplayHandler) Start(w http.ResponseWriter, r *http.Request) {
	status, err := h.control.Start(r.Context(), chi.URLParam(r, "gameID"))
	h.write(w, status, err)
}

// Pause pauses the running replay.
func (h *ReplayHandler) Pause(w http.ResponseWriter, _ *http.Request) {
	status, err := h.control.Pause()
	h.write(w, status, err)
}

// Resume resumes a paused replay.
func (h *ReplayHandler) Resume(w http.ResponseWriter, _ *http.Request) {
	status, err := h.control.Resume()
	h.write(w, status, err)
}

// Seek moves the replay clock.
func (h *ReplayHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Timestamp == nil {
		response.BadRequest(w, errors.New("timestamp is required"))
		return
	}
	status, err := h.control.Seek(*req.Timestamp)
	h.write(w, status, err)
}

// SetSpeed changes the replay speed.
func (h *ReplayHandler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req SpeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Speed == nil {
		response.BadRequest(w, errors.New("speed is required"))
		return
	}
	status, err := h.control.SetSpeed(*req.Speed)
	h.write(w, status, err)
}

// End stops the replay.
func (h *ReplayHandler) End(w http.ResponseWriter, _ *http.Request) {
	status, err := h.control.End()
	h.write(w, status, err)
}

// GetStatus returns the replay clock.
func (h *ReplayHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, h.control.Status())
}

// GetView returns the board the replayer currently shows.
func (h *ReplayHandler) GetView(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, h.control.View())
}

func (h *ReplayHandler) write(w http.ResponseWriter, status daemon.ReplayStatus, err error) {
	switch {
	case err == nil:
		response.Success(w, status)
	case errors.Is(err, storage.ErrNotFound):
		response.NotFound(w, err)
	case errors.Is(err, replay.ErrInvalidSpeed), errors.Is(err, replay.ErrInvalidGameLog):
		response.BadRequest(w, err)
	case errors.Is(err, replay.ErrNotLoaded),
		errors.Is(err, replay.ErrAlreadyActive),
		errors.Is(err, replay.ErrNotActive),
		errors.Is(err, replay.ErrAlreadyPaused),
		errors.Is(err, replay.ErrNotPaused),
		errors.Is(err, replay.ErrFinished):
		response.Conflict(w, err)
	default:
		response.InternalError(w, err)
	}
}
