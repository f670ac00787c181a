package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/api/response"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
	"github.com/ramonehamilton/spell-bingo/internal/metrics"
	"github.com/ramonehamilton/spell-bingo/internal/stats"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

// PlayerHandler aggregates a player's archived games.
type PlayerHandler struct {
	games *GameHandler
	log   *logrus.Entry
}

// NewPlayerHandler creates a PlayerHandler sharing the archive and filter
// parsing of games.
func NewPlayerHandler(games *GameHandler) *PlayerHandler {
	return &PlayerHandler{games: games, log: logger.Component("api")}
}

// PlayerRecordResponse is a player's record with derived figures.
type PlayerRecordResponse struct {
	stats.PlayerRecord
	WinRate float64 `json:"winRate"`
	Streak  string  `json:"streak"`
}

// GetRecord returns the win/loss record and streaks of a player. The period,
// since, until and source filters of ListGames apply.
func (h *PlayerHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	name, games, ok := h.playerGames(w, r)
	if !ok {
		return
	}

	rec := stats.CalculateRecord(games, name)
	response.Success(w, PlayerRecordResponse{
		PlayerRecord: rec,
		WinRate:      rec.WinRate(),
		Streak:       stats.FormatCurrentStreak(rec.CurrentStreak),
	})
}

// GetCompletions returns the distribution of a player's spell completion
// times. Games whose analytics fail to load are skipped.
func (h *PlayerHandler) GetCompletions(w http.ResponseWriter, r *http.Request) {
	name, games, ok := h.playerGames(w, r)
	if !ok {
		return
	}

	completions := metrics.NewCompletionStats()
	for _, g := range games {
		res, err := h.games.store.Analytics(r.Context(), g.ID)
		if err != nil {
			h.log.WithError(err).WithField("game", g.ID).Warn("skipping game without analytics")
			continue
		}
		completions.AddResult(res, name)
	}
	response.Success(w, completions.Summary())
}

// playerGames loads every game of the player named in the URL.
func (h *PlayerHandler) playerGames(w http.ResponseWriter, r *http.Request) (string, []*models.GameLog, bool) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		response.BadRequest(w, errors.New("player name is required"))
		return "", nil, false
	}

	filter, _, err := h.games.parseFilter(r)
	if err != nil {
		response.BadRequest(w, err)
		return "", nil, false
	}
	filter.Player = name
	filter.Limit, filter.Offset = 0, 0

	games, _, err := h.games.store.List(r.Context(), filter)
	if err != nil {
		response.InternalError(w, err)
		return "", nil, false
	}
	return name, games, true
}
