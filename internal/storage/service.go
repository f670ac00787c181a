package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/analytics"
	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
	"github.com/ramonehamilton/spell-bingo/internal/storage/repository"
)

// ErrNotFound is returned when an archived game does not exist.
var ErrNotFound = errors.New("game not found")

// ErrDuplicateGame is returned by Archive for a game that is already stored.
var ErrDuplicateGame = repository.ErrDuplicateGame

// Service archives finished games together with their analytics.
type Service struct {
	db    *DB
	games repository.GameLogRepository
	log   *logrus.Entry
	now   func() time.Time
}

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{
		db:    db,
		games: repository.NewGameLogRepository(db.Conn()),
		log:   logger.Component("storage"),
		now:   time.Now,
	}
}

// Archive stores a finished game and its analytics in one transaction. For
// a game that is already archived it returns the stored record and an error
// matching ErrDuplicateGame.
func (s *Service) Archive(ctx context.Context, data *bingo.GameLogData, source models.Source) (*models.GameLog, error) {
	if data == nil {
		return nil, fmt.Errorf("game log cannot be nil")
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game log: %w", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game log: %w", err)
	}
	hash := ContentHash(raw)

	existing, err := s.games.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, fmt.Errorf("%w: %s", ErrDuplicateGame, existing.ID)
	}

	res, err := analytics.Analyze(data)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze game: %w", err)
	}

	game := newGameLog(data, raw, hash, source, s.now())
	stats, err := newGameAnalytics(game.ID, res, game.CreatedAt)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		repo := repository.NewGameLogRepository(tx)
		if err := repo.Save(ctx, game); err != nil {
			return err
		}
		stats.GameID = game.ID
		return repo.SaveAnalytics(ctx, stats)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"id":      game.ID,
		"players": []string{game.PlayerA, game.PlayerB},
		"score":   []int{game.ScoreA, game.ScoreB},
		"source":  game.Source,
	}).Info("game archived")
	return game, nil
}

// Game returns the archived record and its decoded game log.
func (s *Service) Game(ctx context.Context, id string) (*models.GameLog, *bingo.GameLogData, error) {
	game, err := s.games.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if game == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var data bingo.GameLogData
	if err := json.Unmarshal(game.Data, &data); err != nil {
		return nil, nil, fmt.Errorf("failed to decode archived game %s: %w", id, err)
	}
	return game, &data, nil
}

// Analytics returns a game's stored analytics, computing and storing them
// when missing.
func (s *Service) Analytics(ctx context.Context, id string) (*analytics.Result, error) {
	stored, err := s.games.GetAnalytics(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		var res analytics.Result
		if err := json.Unmarshal(stored.Result, &res); err != nil {
			return nil, fmt.Errorf("failed to decode analytics of %s: %w", id, err)
		}
		return &res, nil
	}

	_, data, err := s.Game(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := analytics.Analyze(data)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze game: %w", err)
	}
	stats, err := newGameAnalytics(id, res, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.games.SaveAnalytics(ctx, stats); err != nil {
		s.log.WithError(err).WithField("id", id).Warn("failed to cache analytics")
	}
	return res, nil
}

// List returns one page of archived games and the total matching count.
func (s *Service) List(ctx context.Context, filter models.GameFilter) ([]*models.GameLog, int, error) {
	games, err := s.games.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.games.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return games, total, nil
}

// Delete removes a game and its analytics.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.games.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.log.WithField("id", id).Info("game deleted")
	return nil
}

// Ping checks the database connection.
func (s *Service) Ping() error {
	return s.db.Ping()
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}

// ContentHash identifies a game log by its canonical JSON encoding.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func newGameLog(data *bingo.GameLogData, raw []byte, hash string, source models.Source, now time.Time) *models.GameLog {
	game := &models.GameLog{
		RoomID:      data.RoomConfig.RID,
		PlayerA:     data.PlayerName(bingo.SideA),
		PlayerB:     data.PlayerName(bingo.SideB),
		ScoreA:      data.FinalScore(bingo.SideA),
		ScoreB:      data.FinalScore(bingo.SideB),
		GameType:    data.RoomConfig.Type,
		DualBoard:   data.RoomConfig.IsDualBoard(),
		IsCustom:    data.IsCustomGame,
		TotalTimeMs: data.TotalTime(),
		ActionCount: len(data.Actions),
		Source:      source,
		ContentHash: hash,
		Data:        raw,
		CreatedAt:   now.UTC(),
	}
	if data.GameStartTimestamp > 0 {
		started := time.UnixMilli(data.GameStartTimestamp).UTC()
		game.StartedAt = &started
	}
	return game
}

func newGameAnalytics(gameID string, res *analytics.Result, now time.Time) (*models.GameAnalytics, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analytics: %w", err)
	}
	return &models.GameAnalytics{
		GameID:       gameID,
		TimerMetrics: res.TimerMetrics,
		CompletedA:   res.Players[bingo.SideA].CompletedCount,
		CompletedB:   res.Players[bingo.SideB].CompletedCount,
		TotalTimeA:   res.Players[bingo.SideA].TotalTime,
		TotalTimeB:   res.Players[bingo.SideB].TotalTime,
		Result:       raw,
		CreatedAt:    now.UTC(),
	}, nil
}
