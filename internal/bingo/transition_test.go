package bingo

import "testing"

func TestTransition_PlayerRequests(t *testing.T) {
	tests := []struct {
		name      string
		current   CellStatus
		actor     Actor
		requested CellStatus
		want      CellStatus
		event     Event
	}{
		{"A selects empty cell", StatusNone, ActorA, StatusASelected, StatusASelected, EventSelect},
		{"B selects empty cell", StatusNone, ActorB, StatusBSelected, StatusBSelected, EventSelect},
		{"A joins B selection", StatusBSelected, ActorA, StatusASelected, StatusBothSelected, EventSelect},
		{"B joins A selection", StatusASelected, ActorB, StatusBSelected, StatusBothSelected, EventSelect},
		{"A unselects", StatusASelected, ActorA, StatusASelected, StatusNone, EventUnselect},
		{"B unselects", StatusBSelected, ActorB, StatusBSelected, StatusNone, EventUnselect},
		{"A leaves contested cell", StatusBothSelected, ActorA, StatusASelected, StatusBSelected, EventUnselect},
		{"B leaves contested cell", StatusBothSelected, ActorB, StatusBSelected, StatusASelected, EventUnselect},
		{"A claims", StatusASelected, ActorA, StatusAAttained, StatusAAttained, EventFinish},
		{"B claims", StatusBSelected, ActorB, StatusBAttained, StatusBAttained, EventFinish},
		{"A steals", StatusBothSelected, ActorA, StatusAAttained, StatusAAttained, EventContestWin},
		{"B steals", StatusBothSelected, ActorB, StatusBAttained, StatusBAttained, EventContestWin},
		{"claim without selection", StatusNone, ActorA, StatusAAttained, StatusNone, EventNone},
		{"claim opponent selection", StatusBSelected, ActorA, StatusAAttained, StatusBSelected, EventNone},
		{"select claimed cell", StatusBAttained, ActorA, StatusASelected, StatusBAttained, EventNone},
		{"reclaim own cell", StatusAAttained, ActorA, StatusAAttained, StatusAAttained, EventNone},
		{"claim both-attained cell", StatusBothAttained, ActorB, StatusBAttained, StatusBothAttained, EventNone},
		{"select disabled cell", StatusDisabled, ActorA, StatusASelected, StatusDisabled, EventNone},
		{"player jumps to both selected", StatusNone, ActorA, StatusBothSelected, StatusNone, EventNone},
		{"player disables", StatusNone, ActorB, StatusDisabled, StatusNone, EventNone},
		{"player requests other side", StatusNone, ActorA, StatusBSelected, StatusNone, EventNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ev := Transition(tt.current, tt.actor, tt.requested)
			if got != tt.want {
				t.Errorf("Expected status %v, got %v", tt.want, got)
			}
			if ev != tt.event {
				t.Errorf("Expected event %q, got %q", tt.event, ev)
			}
		})
	}
}

func TestTransition_HostOverride(t *testing.T) {
	all := []CellStatus{
		StatusDisabled, StatusNone, StatusASelected, StatusBothSelected,
		StatusBSelected, StatusAAttained, StatusBothAttained, StatusBAttained,
	}
	for _, from := range all {
		for _, to := range all {
			got, ev := Transition(from, ActorHost, to)
			if got != to || ev != EventSet {
				t.Errorf("host %v -> %v: got (%v, %q)", from, to, got, ev)
			}
		}
	}

	got, ev := Transition(StatusASelected, ActorHost, CellStatus(4))
	if got != StatusASelected || ev != EventNone {
		t.Errorf("Expected invalid host status to be rejected, got (%v, %q)", got, ev)
	}
}

func TestTransition_IsPure(t *testing.T) {
	for i := 0; i < 3; i++ {
		got, ev := Transition(StatusBothSelected, ActorB, StatusBAttained)
		if got != StatusBAttained || ev != EventContestWin {
			t.Fatalf("iteration %d: got (%v, %q)", i, got, ev)
		}
	}
}

func TestTransition_ReselectTogglesBackToNone(t *testing.T) {
	s := StatusNone
	s, _ = Transition(s, ActorA, StatusASelected)
	s, _ = Transition(s, ActorA, StatusASelected)
	if s != StatusNone {
		t.Errorf("Expected select twice to return to none, got %v", s)
	}
}

func TestEvent_ActionType(t *testing.T) {
	if got := EventSelect.ActionType(StatusASelected); got != "select" {
		t.Errorf("Expected select, got %s", got)
	}
	if got := EventContestWin.ActionType(StatusBAttained); got != "contest_win" {
		t.Errorf("Expected contest_win, got %s", got)
	}
	if got := EventUnselect.ActionType(StatusBSelected); got != "set-3" {
		t.Errorf("Expected set-3, got %s", got)
	}
	if got := EventSet.ActionType(StatusDisabled); got != "set--1" {
		t.Errorf("Expected set--1, got %s", got)
	}
}

func TestRequestFor(t *testing.T) {
	if got := RequestFor(SideA, StatusAAttained); got != StatusAAttained {
		t.Errorf("Expected claim request, got %v", got)
	}
	if got := RequestFor(SideB, StatusNone); got != StatusBSelected {
		t.Errorf("Expected select request, got %v", got)
	}
	if got := RequestFor(SideB, StatusBothSelected); got != StatusBSelected {
		t.Errorf("Expected select request, got %v", got)
	}
}
