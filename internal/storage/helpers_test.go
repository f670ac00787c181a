package storage

import (
	"path/filepath"
	"testing"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
)

// setupTestService creates a service over a migrated temporary database.
func setupTestService(t *testing.T) *Service {
	t.Helper()

	db, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewService(db)
}

func testBoard(prefix string) bingo.Board {
	b := make(bingo.Board, bingo.BoardSize)
	for i := range b {
		b[i] = bingo.Spell{Index: i, Name: prefix + string(rune('a'+i)), Star: 1 + i%5, Fastest: 2}
	}
	return b
}

func sampleGame(a, b string, started int64) *bingo.GameLogData {
	return &bingo.GameLogData{
		RoomConfig:         bingo.RoomConfig{RID: "room-" + a, Type: 1, GameTime: 30, CDTime: 30, SpellVersion: 1},
		Players:            []string{a, b},
		Spells:             testBoard("a"),
		InitStatus:         bingo.NewStatuses(),
		GameStartTimestamp: started,
		Score:              []int{1, 0},
		Actions: []bingo.PlayerAction{
			{PlayerName: a, ActionType: "select", SpellIndex: 12, SpellName: "am", Timestamp: 5000, ScoreNow: []int{0, 0}},
			{PlayerName: a, ActionType: "finish", SpellIndex: 12, SpellName: "am", Timestamp: 9000, ScoreNow: []int{1, 0}},
		},
	}
}
