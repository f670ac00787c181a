// Package handlers implements the REST endpoints of the game archive,
// replay control and server health.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/spell-bingo/internal/analytics"
	"github.com/ramonehamilton/spell-bingo/internal/api/response"
	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/charts"
	"github.com/ramonehamilton/spell-bingo/internal/replay/codec"
	"github.com/ramonehamilton/spell-bingo/internal/report"
	"github.com/ramonehamilton/spell-bingo/internal/stats"
	"github.com/ramonehamilton/spell-bingo/internal/storage"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500

	// maxUploadBytes bounds a posted report or replay code.
	maxUploadBytes = 8 << 20
)

// GameStore is the archive used by the game handlers. *storage.Service
// satisfies it.
type GameStore interface {
	Archive(ctx context.Context, data *bingo.GameLogData, source models.Source) (*models.GameLog, error)
	Game(ctx context.Context, id string) (*models.GameLog, *bingo.GameLogData, error)
	Analytics(ctx context.Context, id string) (*analytics.Result, error)
	List(ctx context.Context, filter models.GameFilter) ([]*models.GameLog, int, error)
	Delete(ctx context.Context, id string) error
}

// GameHandler handles archived game requests.
type GameHandler struct {
	store    GameStore
	location *time.Location
	chart    charts.ChartConfig
	now      func() time.Time
}

// NewGameHandler creates a new GameHandler. Reports and date filters use
// loc; nil means UTC.
func NewGameHandler(store GameStore, loc *time.Location) *GameHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &GameHandler{
		store:    store,
		location: loc,
		chart:    charts.DefaultChartConfig(),
		now:      time.Now,
	}
}

// CreateGameRequest carries a downloaded report or a bare replay code.
// Report wins when both are set.
type CreateGameRequest struct {
	Report string `json:"report,omitempty"`
	Code   string `json:"code,omitempty"`
}

// CreateGameResponse is the archived record. Duplicate is true when the game
// was already stored.
type CreateGameResponse struct {
	Game      *models.GameLog `json:"game"`
	Duplicate bool            `json:"duplicate"`
}

// GameDetail is an archived record with its full game log.
type GameDetail struct {
	Game *models.GameLog    `json:"game"`
	Data *bingo.GameLogData `json:"data"`
}

// ListGames returns one page of archived games. Query parameters: player,
// source, period (see stats.Periods), since, until, page, page_size.
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	filter, page, err := h.parseFilter(r)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	games, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	if games == nil {
		games = []*models.GameLog{}
	}
	response.Paginated(w, games, page, filter.Limit, total)
}

// CreateGame decodes a posted report or replay code and archives it.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}

	text := req.Report
	if strings.TrimSpace(text) == "" {
		text = req.Code
	}
	if strings.TrimSpace(text) == "" {
		response.BadRequest(w, errors.New("report or code is required"))
		return
	}

	payload, err := codec.DecodeReport(text)
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	if err := payload.Data.Validate(); err != nil {
		response.BadRequest(w, fmt.Errorf("invalid game log: %w", err))
		return
	}

	game, err := h.store.Archive(r.Context(), &payload.Data, models.SourceImport)
	switch {
	case errors.Is(err, storage.ErrDuplicateGame) && game != nil:
		response.Success(w, CreateGameResponse{Game: game, Duplicate: true})
	case err != nil:
		writeStoreError(w, err)
	default:
		response.Created(w, CreateGameResponse{Game: game})
	}
}

// GetGame returns an archived game and its game log.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, data, err := h.store.Game(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, GameDetail{Game: game, Data: data})
}

// GetAnalytics returns a game's per-player statistics.
func (h *GameHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.Analytics(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, res)
}

// GetReport downloads the plaintext report of a game.
func (h *GameHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	_, data, err := h.store.Game(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	opts := report.Options{Location: h.location}
	text, err := report.Render(data, opts)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.Attachment(w, "text/plain; charset=utf-8", report.FileName(data, opts), []byte(text))
}

// GetChart returns the HTML chart page of a game.
func (h *GameHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	res, err := h.store.Analytics(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	config := h.chart
	config.Subtitle = id
	var buf bytes.Buffer
	if err := charts.Render(&buf, res, config); err != nil {
		response.InternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// DeleteGame removes a game from the archive.
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "gameID")); err != nil {
		writeStoreError(w, err)
		return
	}
	response.NoContent(w)
}

func (h *GameHandler) parseFilter(r *http.Request) (models.GameFilter, int, error) {
	q := r.URL.Query()
	filter := models.GameFilter{Player: strings.TrimSpace(q.Get("player"))}

	if src := q.Get("source"); src != "" {
		filter.Source = models.Source(src)
		if !filter.Source.Valid() {
			return filter, 0, fmt.Errorf("unknown source %q", src)
		}
	}
	if name := q.Get("period"); name != "" {
		tr, err := stats.ParsePeriod(name, h.now().In(h.location))
		if err != nil {
			return filter, 0, err
		}
		tr.Apply(&filter)
	}
	for key, dst := range map[string]**time.Time{"since": &filter.Since, "until": &filter.Until} {
		if v := q.Get(key); v != "" {
			t, err := h.parseTime(v)
			if err != nil {
				return filter, 0, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = &t
		}
	}

	page, err := intParam(q.Get("page"), 1)
	if err != nil || page < 1 {
		return filter, 0, errors.New("page must be a positive integer")
	}
	size, err := intParam(q.Get("page_size"), defaultPageSize)
	if err != nil || size < 1 {
		return filter, 0, errors.New("page_size must be a positive integer")
	}
	filter.Limit = min(size, maxPageSize)
	filter.Offset = (page - 1) * filter.Limit
	return filter, page, nil
}

// parseTime accepts RFC 3339 or a bare date in the handler's location.
func (h *GameHandler) parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", v, h.location)
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.NotFound(w, err)
		return
	}
	response.InternalError(w, err)
}
