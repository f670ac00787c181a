package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

// ErrDuplicateGame is returned by Save when a game with the same content hash
// is already archived.
var ErrDuplicateGame = errors.New("game already archived")

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GameLogRepository handles database operations for archived games.
type GameLogRepository interface {
	// Save inserts a game, assigning an ID when it has none.
	Save(ctx context.Context, game *models.GameLog) error

	// GetByID retrieves a game with its data. It returns nil when not found.
	GetByID(ctx context.Context, id string) (*models.GameLog, error)

	// GetByHash retrieves a game by content hash. It returns nil when not found.
	GetByHash(ctx context.Context, hash string) (*models.GameLog, error)

	// List retrieves games without their data, newest first.
	List(ctx context.Context, filter models.GameFilter) ([]*models.GameLog, error)

	// Count returns how many games match filter, ignoring its paging.
	Count(ctx context.Context, filter models.GameFilter) (int, error)

	// Delete removes a game and its analytics. It reports whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)

	// SaveAnalytics inserts or replaces the analytics of a game.
	SaveAnalytics(ctx context.Context, a *models.GameAnalytics) error

	// GetAnalytics retrieves a game's analytics. It returns nil when not found.
	GetAnalytics(ctx context.Context, gameID string) (*models.GameAnalytics, error)
}

type gameLogRepository struct {
	db DBTX
}

// NewGameLogRepository creates a game log repository over db, which may be a
// transaction.
func NewGameLogRepository(db DBTX) GameLogRepository {
	return &gameLogRepository{db: db}
}

const gameColumns = `id, room_id, player_a, player_b, score_a, score_b, game_type,
	dual_board, is_custom, started_at, total_time_ms, action_count, source,
	content_hash, created_at`

func (r *gameLogRepository) Save(ctx context.Context, game *models.GameLog) error {
	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	if !game.Source.Valid() {
		return fmt.Errorf("failed to save game: invalid source %q", game.Source)
	}

	existing, err := r.GetByHash(ctx, game.ContentHash)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateGame, existing.ID)
	}

	query := `
		INSERT INTO game_logs (
			` + gameColumns + `, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		game.ID,
		game.RoomID,
		game.PlayerA,
		game.PlayerB,
		game.ScoreA,
		game.ScoreB,
		game.GameType,
		game.DualBoard,
		game.IsCustom,
		nullTime(game.StartedAt),
		game.TotalTimeMs,
		game.ActionCount,
		string(game.Source),
		game.ContentHash,
		game.CreatedAt.UTC(),
		string(game.Data),
	)
	if err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (r *gameLogRepository) GetByID(ctx context.Context, id string) (*models.GameLog, error) {
	return r.getOne(ctx, "id", id)
}

func (r *gameLogRepository) GetByHash(ctx context.Context, hash string) (*models.GameLog, error) {
	return r.getOne(ctx, "content_hash", hash)
}

func (r *gameLogRepository) getOne(ctx context.Context, column, value string) (*models.GameLog, error) {
	query := `SELECT ` + gameColumns + `, data FROM game_logs WHERE ` + column + ` = ?`

	var data string
	game := &models.GameLog{}
	dest := append(gameDest(game), &data)
	err := r.db.QueryRowContext(ctx, query, value).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by %s: %w", column, err)
	}
	game.Data = []byte(data)
	return game, nil
}

func (r *gameLogRepository) List(ctx context.Context, filter models.GameFilter) ([]*models.GameLog, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + gameColumns + ` FROM game_logs` + where +
		` ORDER BY started_at DESC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []*models.GameLog
	for rows.Next() {
		game := &models.GameLog{}
		if err := rows.Scan(gameDest(game)...); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	return games, nil
}

func (r *gameLogRepository) Count(ctx context.Context, filter models.GameFilter) (int, error) {
	where, args := filterClause(filter)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_logs`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return n, nil
}

func (r *gameLogRepository) Delete(ctx context.Context, id string) (bool, error) {
	// Analytics go first so the delete works without foreign key enforcement.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM game_analytics WHERE game_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete game analytics: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM game_logs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete game: %w", err)
	}
	return n > 0, nil
}

func (r *gameLogRepository) SaveAnalytics(ctx context.Context, a *models.GameAnalytics) error {
	query := `
		INSERT INTO game_analytics (
			game_id, timer_metrics, completed_a, completed_b,
			total_time_a, total_time_b, result, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			timer_metrics = excluded.timer_metrics,
			completed_a = excluded.completed_a,
			completed_b = excluded.completed_b,
			total_time_a = excluded.total_time_a,
			total_time_b = excluded.total_time_b,
			result = excluded.result,
			created_at = excluded.created_at
	`
	_, err := r.db.ExecContext(ctx, query,
		a.GameID,
		a.TimerMetrics,
		a.CompletedA,
		a.CompletedB,
		a.TotalTimeA,
		a.TotalTimeB,
		string(a.Result),
		a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save game analytics: %w", err)
	}
	return nil
}

func (r *gameLogRepository) GetAnalytics(ctx context.Context, gameID string) (*models.GameAnalytics, error) {
	query := `
		SELECT game_id, timer_metrics, completed_a, completed_b,
		       total_time_a, total_time_b, result, created_at
		FROM game_analytics
		WHERE game_id = ?
	`

	var result string
	a := &models.GameAnalytics{}
	err := r.db.QueryRowContext(ctx, query, gameID).Scan(
		&a.GameID,
		&a.TimerMetrics,
		&a.CompletedA,
		&a.CompletedB,
		&a.TotalTimeA,
		&a.TotalTimeB,
		&result,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game analytics: %w", err)
	}
	a.Result = []byte(result)
	return a, nil
}

func gameDest(g *models.GameLog) []any {
	return []any{
		&g.ID,
		&g.RoomID,
		&g.PlayerA,
		&g.PlayerB,
		&g.ScoreA,
		&g.ScoreB,
		&g.GameType,
		&g.DualBoard,
		&g.IsCustom,
		&g.StartedAt,
		&g.TotalTimeMs,
		&g.ActionCount,
		&g.Source,
		&g.ContentHash,
		&g.CreatedAt,
	}
}

func filterClause(f models.GameFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Player != "" {
		conds = append(conds, "(player_a = ? OR player_b = ?)")
		args = append(args, f.Player, f.Player)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(f.Source))
	}
	if f.Since != nil {
		conds = append(conds, "started_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		conds = append(conds, "started_at < ?")
		args = append(args, f.Until.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
