package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/spell-bingo/internal/analytics"
	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/daemon"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Archive(ctx context.Context, data *bingo.GameLogData, source models.Source) (*models.GameLog, error) {
	args := m.Called(ctx, data, source)
	game, _ := args.Get(0).(*models.GameLog)
	return game, args.Error(1)
}

func (m *mockStore) Game(ctx context.Context, id string) (*models.GameLog, *bingo.GameLogData, error) {
	args := m.Called(ctx, id)
	game, _ := args.Get(0).(*models.GameLog)
	data, _ := args.Get(1).(*bingo.GameLogData)
	return game, data, args.Error(2)
}

func (m *mockStore) Analytics(ctx context.Context, id string) (*analytics.Result, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*analytics.Result)
	return res, args.Error(1)
}

func (m *mockStore) List(ctx context.Context, filter models.GameFilter) ([]*models.GameLog, int, error) {
	args := m.Called(ctx, filter)
	games, _ := args.Get(0).([]*models.GameLog)
	return games, args.Int(1), args.Error(2)
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockReplays struct {
	mock.Mock
}

func (m *mockReplays) status(args mock.Arguments) (daemon.ReplayStatus, error) {
	st, _ := args.Get(0).(daemon.ReplayStatus)
	return st, args.Error(1)
}

func (m *mockReplays) Start(ctx context.Context, id string) (daemon.ReplayStatus, error) {
	return m.status(m.Called(ctx, id))
}

func (m *mockReplays) Pause() (daemon.ReplayStatus, error) { return m.status(m.Called()) }

func (m *mockReplays) Resume() (daemon.ReplayStatus, error) { return m.status(m.Called()) }

func (m *mockReplays) Seek(timestamp int64) (daemon.ReplayStatus, error) {
	return m.status(m.Called(timestamp))
}

func (m *mockReplays) SetSpeed(speed float64) (daemon.ReplayStatus, error) {
	return m.status(m.Called(speed))
}

func (m *mockReplays) End() (daemon.ReplayStatus, error) { return m.status(m.Called()) }

func (m *mockReplays) Status() daemon.ReplayStatus {
	return m.Called().Get(0).(daemon.ReplayStatus)
}

func (m *mockReplays) View() daemon.ReplayView {
	return m.Called().Get(0).(daemon.ReplayView)
}

// serve routes a single request through a chi router holding one route.
func serve(t *testing.T, method, pattern, target string, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	r := chi.NewRouter()
	r.Method(method, pattern, h)
	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps a SuccessResponse into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func testBoard(prefix string) bingo.Board {
	b := make(bingo.Board, bingo.BoardSize)
	for i := range b {
		b[i] = bingo.Spell{Index: i, Name: prefix + string(rune('a'+i)), Star: 1 + i%5, Fastest: 2}
	}
	return b
}

func sampleGame() *bingo.GameLogData {
	return &bingo.GameLogData{
		RoomConfig:         bingo.RoomConfig{RID: "room-1", Type: 1, GameTime: 30, CDTime: 30, SpellVersion: 1},
		Players:            []string{"Alice", "Bob"},
		Spells:             testBoard("a"),
		InitStatus:         bingo.NewStatuses(),
		GameStartTimestamp: time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC).UnixMilli(),
		Score:              []int{1, 0},
		Actions: []bingo.PlayerAction{
			{PlayerName: "Alice", ActionType: "select", SpellIndex: 12, SpellName: "am", Timestamp: 5000, ScoreNow: []int{0, 0}},
			{PlayerName: "Alice", ActionType: "finish", SpellIndex: 12, SpellName: "am", Timestamp: 9000, ScoreNow: []int{1, 0}},
		},
	}
}

func jsonUnmarshal(rec *httptest.ResponseRecorder, out any) error {
	return json.Unmarshal(rec.Body.Bytes(), out)
}
