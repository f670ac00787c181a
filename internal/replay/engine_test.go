package replay

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/session"
)

func testBoard(prefix string) bingo.Board {
	b := make(bingo.Board, bingo.BoardSize)
	for i := range b {
		b[i] = bingo.Spell{Index: i, Name: prefix + string(rune('a'+i)), Star: 3, Fastest: 2}
	}
	return b
}

func action(player, typ string, index int, ts int64) bingo.PlayerAction {
	return bingo.PlayerAction{PlayerName: player, ActionType: typ, SpellIndex: index, Timestamp: ts, ScoreNow: []int{0, 0}}
}

func testGame() *bingo.GameLogData {
	return &bingo.GameLogData{
		RoomConfig: bingo.RoomConfig{GameTime: 30, Countdown: 0, CDTime: 30, SpellVersion: 1},
		Players:    []string{"Alice", "Bob"},
		Spells:     testBoard("a"),
		InitStatus: bingo.NewStatuses(),
		Score:      []int{1, 1},
		Actions: []bingo.PlayerAction{
			action("Alice", "select", 12, 5000),
			action("Bob", "select", 3, 6000),
			action("host", "pause", -1, 7000),
			action("host", "resume", -1, 8000),
			action("Alice", "finish", 12, 9000),
			action("Alice", "select", 3, 9500),
			action("Bob", "contest_win", 3, 12000),
			action("host", "set-0", 20, 12500),
		},
	}
}

func newManual() *Replayer {
	return New(Options{TickInterval: time.Hour})
}

func statusesAt(t *testing.T, r *Replayer) []bingo.CellStatus {
	t.Helper()
	return r.Snapshot().State.Statuses
}

func TestReplayer_StartAndAdvance(t *testing.T) {
	r := newManual()
	if err := r.Start(testGame()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = r.End() }()

	if st := r.Status(); st.Phase != Playing || st.TotalTime != 12500 {
		t.Fatalf("Unexpected status after start: %+v", st)
	}

	if err := r.Advance(5 * time.Second); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s := statusesAt(t, r)[12]; s != bingo.StatusASelected {
		t.Errorf("Expected cell 12 selected by A, got %v", s)
	}

	_ = r.Advance(4500 * time.Millisecond)
	got := statusesAt(t, r)
	if got[12] != bingo.StatusAAttained {
		t.Errorf("Expected cell 12 attained by A, got %v", got[12])
	}
	if got[3] != bingo.StatusBothSelected {
		t.Errorf("Expected cell 3 contested, got %v", got[3])
	}
	if r.Status().Cursor != 6 {
		t.Errorf("Expected cursor 6, got %d", r.Status().Cursor)
	}

	_ = r.Advance(3 * time.Second)
	if st := r.Status(); st.Phase != Finished {
		t.Errorf("Expected finished, got %v", st.Phase)
	}
	if s := statusesAt(t, r)[3]; s != bingo.StatusBAttained {
		t.Errorf("Expected cell 3 stolen by B, got %v", s)
	}
}

func TestReplayer_SeekIsDeterministic(t *testing.T) {
	r := newManual()
	if err := r.Start(testGame()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = r.End() }()

	if err := r.Seek(9500); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	first := r.Snapshot().State

	_ = r.Seek(9500)
	second := r.Snapshot().State
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected seeking twice to the same time to yield identical state")
	}

	_ = r.Seek(2000)
	if s := statusesAt(t, r)[12]; s != bingo.StatusNone {
		t.Errorf("Expected rewind to clear cell 12, got %v", s)
	}
	_ = r.Seek(9500)
	third := r.Snapshot().State
	if !reflect.DeepEqual(first, third) {
		t.Error("Expected rewind then fast-forward to be lossless")
	}
	if r.Status().Phase != Playing {
		t.Errorf("Expected a playing replay to keep playing after seek, got %v", r.Status().Phase)
	}
}

func TestReplayer_SeekToEndFinishes(t *testing.T) {
	r := newManual()
	_ = r.Start(testGame())
	defer func() { _ = r.End() }()

	_ = r.Seek(20000)
	if st := r.Status(); st.Phase != Finished || st.Cursor != 8 {
		t.Errorf("Expected finished with all actions applied, got %+v", st)
	}
	if r.ticking() {
		t.Error("Expected no live ticker after finishing")
	}
	if err := r.Resume(); !errors.Is(err, ErrFinished) {
		t.Errorf("Expected ErrFinished resuming a finished replay, got %v", err)
	}

	_ = r.Seek(6000)
	if st := r.Status(); st.Phase != Paused {
		t.Errorf("Expected seek back from finished to pause, got %v", st.Phase)
	}
}

func TestReplayer_Speed(t *testing.T) {
	r := newManual()
	_ = r.Start(testGame())
	defer func() { _ = r.End() }()

	for _, bad := range []float64{0, -1} {
		if err := r.SetSpeed(bad); !errors.Is(err, ErrInvalidSpeed) {
			t.Errorf("SetSpeed(%v): expected ErrInvalidSpeed, got %v", bad, err)
		}
	}
	if err := r.SetSpeed(2); err != nil {
		t.Fatalf("SetSpeed failed: %v", err)
	}
	_ = r.Advance(3 * time.Second)
	if st := r.Status(); st.CurrentTime != 6000 || st.Cursor != 2 {
		t.Errorf("Expected 6000ms and 2 actions at 2x, got %+v", st)
	}
}

func TestReplayer_PauseResume(t *testing.T) {
	r := newManual()
	if err := r.Pause(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Expected ErrNotActive before start, got %v", err)
	}
	_ = r.Start(testGame())
	defer func() { _ = r.End() }()

	if err := r.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("Expected ErrNotPaused, got %v", err)
	}
	if err := r.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if r.ticking() {
		t.Error("Expected ticker to be stopped after pause")
	}
	if err := r.Pause(); !errors.Is(err, ErrAlreadyPaused) {
		t.Errorf("Expected ErrAlreadyPaused, got %v", err)
	}
	if err := r.Advance(time.Minute); !errors.Is(err, ErrNotActive) {
		t.Errorf("Expected paused replay to refuse advancing, got %v", err)
	}
	if err := r.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if !r.ticking() {
		t.Error("Expected ticker after resume")
	}
	if err := r.Start(testGame()); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("Expected ErrAlreadyActive, got %v", err)
	}
}

func TestReplayer_LifecycleMisuse(t *testing.T) {
	r := newManual()
	if err := r.Seek(1000); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded seeking before start, got %v", err)
	}
	if err := r.End(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Expected ErrNotActive ending idle replay, got %v", err)
	}
	bad := testGame()
	bad.Spells = bad.Spells[:10]
	if err := r.Start(bad); !errors.Is(err, ErrInvalidGameLog) {
		t.Errorf("Expected ErrInvalidGameLog, got %v", err)
	}
	if r.Status().Phase != Idle {
		t.Error("Expected failed start to leave replayer idle")
	}
}

func TestReplayer_RejectsOutOfOrderLog(t *testing.T) {
	r := newManual()
	g := testGame()
	g.Actions = []bingo.PlayerAction{
		action("Alice", "select", 3, 1000),
		action("Alice", "select", 7, 5000),
		action("Alice", "finish", 3, 2000),
	}
	if err := r.Start(g); !errors.Is(err, ErrInvalidGameLog) {
		t.Fatalf("Expected ErrInvalidGameLog, got %v", err)
	}
	if r.Status().Phase != Idle {
		t.Error("Expected rejected log to leave replayer idle")
	}
}

func TestReplayer_EndRestoresContext(t *testing.T) {
	r := newManual()

	before := session.NewState()
	before.Spells = testBoard("z")
	before.Statuses[0] = bingo.StatusBAttained
	if err := r.SetContext(Context{Room: bingo.RoomConfig{RID: "live"}, Players: []string{"X", "Y"}, State: before}); err != nil {
		t.Fatalf("SetContext failed: %v", err)
	}

	_ = r.Start(testGame())
	_ = r.Seek(12500)
	if err := r.SetContext(Context{}); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("Expected SetContext to be refused during replay, got %v", err)
	}
	if err := r.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	after := r.Snapshot()
	if after.Room.RID != "live" || !reflect.DeepEqual(after.Players, []string{"X", "Y"}) {
		t.Errorf("Expected room and players restored, got %+v / %v", after.Room, after.Players)
	}
	if !reflect.DeepEqual(after.State, before.Clone()) {
		t.Error("Expected state restored to the pre-replay snapshot")
	}
	if r.ticking() {
		t.Error("Expected no ticker after end")
	}
}

func TestReplayer_EmptyLogFinishesOnFirstTick(t *testing.T) {
	r := newManual()
	g := testGame()
	g.Actions = nil
	_ = r.Start(g)
	defer func() { _ = r.End() }()

	_ = r.Advance(0)
	if r.Status().Phase != Finished {
		t.Errorf("Expected empty replay to finish, got %v", r.Status().Phase)
	}
}

func TestReplayer_RealTimeTicker(t *testing.T) {
	r := New(Options{TickInterval: time.Millisecond})

	var mu sync.Mutex
	var types []string
	completed := make(chan struct{})
	r.OnEvent(func(ev Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
		if ev.Type == EventCompleted {
			close(completed)
		}
	})

	_ = r.Start(testGame())
	if err := r.SetSpeed(1000); err != nil {
		t.Fatalf("SetSpeed failed: %v", err)
	}

	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for replay to complete")
	}
	if st := r.Status(); st.Phase != Finished || st.Cursor != 8 {
		t.Errorf("Unexpected final status %+v", st)
	}
	_ = r.End()

	mu.Lock()
	defer mu.Unlock()
	if types[0] != EventStarted || types[len(types)-1] != EventEnded {
		t.Errorf("Unexpected event sequence %v", types)
	}
}
