package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/spell-bingo/internal/storage"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
	"github.com/ramonehamilton/spell-bingo/internal/storage/repository"
)

func setupRepo(t *testing.T) repository.GameLogRepository {
	t.Helper()
	db, err := storage.Open(storage.DefaultConfig(filepath.Join(t.TempDir(), "repo.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewGameLogRepository(db.Conn())
}

func newGame(hash, a, b string, started time.Time) *models.GameLog {
	return &models.GameLog{
		PlayerA:     a,
		PlayerB:     b,
		ScoreA:      3,
		ScoreB:      2,
		GameType:    1,
		DualBoard:   true,
		StartedAt:   &started,
		TotalTimeMs: 60000,
		ActionCount: 12,
		Source:      models.SourceImport,
		ContentHash: hash,
		Data:        []byte(`{"players":["` + a + `","` + b + `"]}`),
		CreatedAt:   time.Now(),
	}
}

func TestGameLogRepository_SaveAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	started := time.Date(2025, 5, 4, 12, 30, 0, 0, time.UTC)

	game := newGame("h1", "Alice", "Bob", started)
	require.NoError(t, repo.Save(ctx, game))
	assert.Len(t, game.ID, 36, "a uuid is assigned")

	got, err := repo.GetByID(ctx, game.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice", got.PlayerA)
	assert.True(t, got.DualBoard)
	assert.False(t, got.IsCustom)
	assert.Equal(t, models.SourceImport, got.Source)
	assert.Equal(t, game.Data, got.Data)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(started))

	byHash, err := repo.GetByHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, game.ID, byHash.ID)
}

func TestGameLogRepository_NotFound(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	a, err := repo.GetAnalytics(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, a)

	ok, err := repo.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGameLogRepository_RejectsDuplicateAndBadSource(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newGame("same", "A", "B", time.Now())))
	err := repo.Save(ctx, newGame("same", "C", "D", time.Now()))
	assert.True(t, errors.Is(err, repository.ErrDuplicateGame))

	bad := newGame("other", "A", "B", time.Now())
	bad.Source = "telepathy"
	assert.Error(t, repo.Save(ctx, bad))
}

func TestGameLogRepository_NullStart(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	game := newGame("nostart", "A", "B", time.Now())
	game.StartedAt = nil
	require.NoError(t, repo.Save(ctx, game))

	got, err := repo.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StartedAt)
}

func TestGameLogRepository_AnalyticsUpsert(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	game := newGame("h", "A", "B", time.Now())
	require.NoError(t, repo.Save(ctx, game))

	first := &models.GameAnalytics{GameID: game.ID, TimerMetrics: true, CompletedA: 1, Result: []byte(`{"v":1}`), CreatedAt: time.Now()}
	require.NoError(t, repo.SaveAnalytics(ctx, first))
	second := &models.GameAnalytics{GameID: game.ID, CompletedA: 4, TotalTimeB: 99, Result: []byte(`{"v":2}`), CreatedAt: time.Now()}
	require.NoError(t, repo.SaveAnalytics(ctx, second))

	got, err := repo.GetAnalytics(ctx, game.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.TimerMetrics)
	assert.Equal(t, 4, got.CompletedA)
	assert.Equal(t, int64(99), got.TotalTimeB)
	assert.JSONEq(t, `{"v":2}`, string(got.Result))

	ok, err := repo.Delete(ctx, game.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = repo.GetAnalytics(ctx, game.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGameLogRepository_ListAndCount(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		g := newGame(string(rune('a'+i)), "Alice", "Bob", base.Add(time.Duration(i)*time.Hour))
		if i%2 == 1 {
			g.PlayerB = "Carol"
		}
		require.NoError(t, repo.Save(ctx, g))
	}

	page, err := repo.List(ctx, models.GameFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].StartedAt.Equal(base.Add(3*time.Hour)))

	n, err := repo.Count(ctx, models.GameFilter{Player: "Carol"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	until := base.Add(2 * time.Hour)
	n, err = repo.Count(ctx, models.GameFilter{Until: &until})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
