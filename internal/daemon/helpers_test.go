package daemon

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/events"
	"github.com/ramonehamilton/spell-bingo/internal/replay/codec"
	"github.com/ramonehamilton/spell-bingo/internal/storage"
)

func setupStorage(t *testing.T) *storage.Service {
	t.Helper()
	db, err := storage.Open(storage.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewService(db)
}

func testBoard(prefix string) bingo.Board {
	b := make(bingo.Board, bingo.BoardSize)
	for i := range b {
		b[i] = bingo.Spell{Index: i, Name: prefix + string(rune('a'+i)), Star: 1 + i%5, Fastest: 2}
	}
	return b
}

func sampleGame(a, b string) *bingo.GameLogData {
	return &bingo.GameLogData{
		RoomConfig:         bingo.RoomConfig{RID: "room-" + a, Type: 1, GameTime: 30, CDTime: 30, SpellVersion: 1},
		Players:            []string{a, b},
		Spells:             testBoard("a"),
		InitStatus:         bingo.NewStatuses(),
		GameStartTimestamp: time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC).UnixMilli(),
		Score:              []int{1, 0},
		Actions: []bingo.PlayerAction{
			{PlayerName: a, ActionType: "select", SpellIndex: 12, SpellName: "am", Timestamp: 5000, ScoreNow: []int{0, 0}},
			{PlayerName: a, ActionType: "finish", SpellIndex: 12, SpellName: "am", Timestamp: 9000, ScoreNow: []int{1, 0}},
		},
	}
}

// reportText renders a minimal downloaded report carrying g's replay code.
func reportText(t *testing.T, g *bingo.GameLogData) string {
	t.Helper()
	code, err := codec.Encode(g)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return "对局记录\n\n" + codec.EditMarker + "\n" + codec.CodeLabel + "\n" + codec.Wrap(code, 128) + "\n"
}

// recorder collects dispatched events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func record(d *events.EventDispatcher, prefixes ...string) *recorder {
	r := &recorder{}
	d.Register(events.NewFuncObserver("recorder", func(ev events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
		return nil
	}, prefixes...))
	return r
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) first(eventType string) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Type == eventType {
			return ev, true
		}
	}
	return events.Event{}, false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
