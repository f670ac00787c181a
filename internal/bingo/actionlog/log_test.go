package actionlog

import (
	"errors"
	"testing"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
)

func act(actionType string, ts int64) bingo.PlayerAction {
	return bingo.PlayerAction{PlayerName: "Alice", ActionType: actionType, SpellIndex: -1, Timestamp: ts}
}

func TestLog_AppendRejectsOlderTimestamp(t *testing.T) {
	l := New()
	if err := l.Append(act("select", 100)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Append(act("finish", 100)); err != nil {
		t.Fatalf("Expected equal timestamps to be accepted, got %v", err)
	}
	err := l.Append(act("select", 99))
	if !errors.Is(err, ErrNonMonotonic) {
		t.Fatalf("Expected ErrNonMonotonic, got %v", err)
	}
	if l.Len() != 2 {
		t.Errorf("Expected 2 actions after rejected append, got %d", l.Len())
	}
}

func TestLog_ActionsReturnsCopy(t *testing.T) {
	l := New()
	_ = l.Append(act("select", 1))
	got := l.Actions()
	got[0].ActionType = "mutated"
	if last, _ := l.Last(); last.ActionType != "select" {
		t.Errorf("Expected log to be unaffected by caller mutation, got %s", last.ActionType)
	}
}

func TestFromActions(t *testing.T) {
	if _, err := FromActions([]bingo.PlayerAction{act("select", 5), act("finish", 3)}); err == nil {
		t.Error("Expected out-of-order actions to be rejected")
	}
	l, err := FromActions([]bingo.PlayerAction{act("select", 3), act("finish", 5)})
	if err != nil {
		t.Fatalf("FromActions failed: %v", err)
	}
	if l.Len() != 2 {
		t.Errorf("Expected 2 actions, got %d", l.Len())
	}
}

func TestEffectiveDuration(t *testing.T) {
	actions := []bingo.PlayerAction{
		act("select", 1000),
		act("pause", 2000),
		act("resume", 3500),
		act("finish", 5000),
	}

	tests := []struct {
		name       string
		start, end int64
		want       int64
	}{
		{"no pause in window", 0, 1500, 1500},
		{"pause fully inside", 1000, 5000, 4000 - 1500},
		{"pause straddles start", 2500, 5000, 2500 - 1000},
		{"pause straddles end", 1000, 3000, 2000 - 1000},
		{"window inside pause", 2200, 3000, 0},
		{"window after pause", 4000, 5000, 1000},
		{"empty window", 3000, 3000, 0},
		{"reversed window", 5000, 4000, -1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveDuration(actions, tt.start, tt.end); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestEffectiveDuration_MultiplePauses(t *testing.T) {
	actions := []bingo.PlayerAction{
		act("pause", 100),
		act("resume", 200),
		act("pause", 400),
		act("resume", 450),
		act("pause", 900),
	}
	// 0..1000 minus 100 + 50 + the open pause clipped at 900..1000
	if got := EffectiveDuration(actions, 0, 1000); got != 1000-100-50-100 {
		t.Errorf("Expected 750, got %d", got)
	}
}

func TestPauseWindows_IgnoresUnmatched(t *testing.T) {
	actions := []bingo.PlayerAction{
		act("resume", 10),
		act("pause", 20),
		act("pause", 30),
		act("resume", 40),
	}
	windows := PauseWindows(actions)
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	if windows[0].Start != 20 || windows[0].End != 40 {
		t.Errorf("Expected [20, 40), got [%d, %d)", windows[0].Start, windows[0].End)
	}
	if windows[0].Open() {
		t.Error("Expected closed window")
	}
}

func TestLog_EffectiveDurationMatchesFunction(t *testing.T) {
	l := New()
	_ = l.Append(act("pause", 10))
	_ = l.Append(act("resume", 30))
	if got := l.EffectiveDuration(0, 100); got != 80 {
		t.Errorf("Expected 80, got %d", got)
	}
}
