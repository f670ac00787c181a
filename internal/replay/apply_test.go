package replay

import (
	"testing"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/session"
)

func freshState() *session.State {
	return session.FromGameLog(testGame())
}

func TestApply(t *testing.T) {
	players := []string{"Alice", "Bob"}

	tests := []struct {
		name    string
		prior   []bingo.PlayerAction
		action  bingo.PlayerAction
		index   int
		want    bingo.CellStatus
		changed bool
	}{
		{
			name:    "select by A",
			action:  action("Alice", "select", 0, 100),
			index:   0,
			want:    bingo.StatusASelected,
			changed: true,
		},
		{
			name:    "select on opponent selection becomes both",
			prior:   []bingo.PlayerAction{action("Alice", "select", 0, 100)},
			action:  action("Bob", "select", 0, 200),
			index:   0,
			want:    bingo.StatusBothSelected,
			changed: true,
		},
		{
			name:    "finish by B",
			prior:   []bingo.PlayerAction{action("Bob", "select", 4, 100)},
			action:  action("Bob", "finish", 4, 200),
			index:   4,
			want:    bingo.StatusBAttained,
			changed: true,
		},
		{
			name:    "contest win by A",
			prior:   []bingo.PlayerAction{action("Alice", "select", 4, 100), action("Bob", "select", 4, 150)},
			action:  action("Alice", "contest_win", 4, 200),
			index:   4,
			want:    bingo.StatusAAttained,
			changed: true,
		},
		{
			name:    "set assigns status directly",
			prior:   []bingo.PlayerAction{action("Alice", "select", 9, 100)},
			action:  action("Alice", "set-0", 9, 200),
			index:   9,
			want:    bingo.StatusNone,
			changed: true,
		},
		{
			name:    "host set disabled",
			action:  action("referee", "set--1", 9, 200),
			index:   9,
			want:    bingo.StatusDisabled,
			changed: true,
		},
		{
			name:    "select by non-player is skipped",
			action:  action("referee", "select", 2, 100),
			index:   2,
			want:    bingo.StatusNone,
			changed: false,
		},
		{
			name:    "invalid set status is skipped",
			action:  action("referee", "set-4", 2, 100),
			index:   2,
			want:    bingo.StatusNone,
			changed: false,
		},
		{
			name:    "unparsable set is skipped",
			action:  action("referee", "set-x", 2, 100),
			index:   2,
			want:    bingo.StatusNone,
			changed: false,
		},
		{
			name:    "unknown action is skipped",
			action:  action("Alice", "wave", 2, 100),
			index:   2,
			want:    bingo.StatusNone,
			changed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := freshState()
			for _, a := range tt.prior {
				Apply(st, players, a)
			}
			if got := Apply(st, players, tt.action); got != tt.changed {
				t.Errorf("Expected changed=%v, got %v", tt.changed, got)
			}
			if st.Statuses[tt.index] != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, st.Statuses[tt.index])
			}
		})
	}
}

func TestApply_OutOfRangeIndexIsSkipped(t *testing.T) {
	st := freshState()
	before := st.Clone()
	for _, idx := range []int{-1, 25, 100} {
		if Apply(st, []string{"Alice", "Bob"}, action("Alice", "select", idx, 100)) {
			t.Errorf("Expected index %d to be skipped", idx)
		}
	}
	for i := range before.Statuses {
		if st.Statuses[i] != before.Statuses[i] {
			t.Fatalf("Expected no change at %d", i)
		}
	}
}

func TestApply_PauseResume(t *testing.T) {
	st := freshState()
	Apply(st, nil, action("host", "pause", -1, 100))
	if st.GameStatus != bingo.GamePaused {
		t.Errorf("Expected paused, got %v", st.GameStatus)
	}
	Apply(st, nil, action("host", "resume", -1, 200))
	if st.GameStatus != bingo.GameStarted {
		t.Errorf("Expected started, got %v", st.GameStatus)
	}
}

func TestApply_PortalFlipsBoard(t *testing.T) {
	g := testGame()
	g.RoomConfig.DualBoard = 1
	g.Spells2 = testBoard("b")
	portals := make([]int, bingo.BoardSize)
	portals[6] = 1
	g.NormalData = &bingo.NormalData{IsPortalA: portals, IsPortalB: make([]int, bingo.BoardSize)}

	st := session.FromGameLog(g)
	players := g.Players
	Apply(st, players, action("Alice", "select", 6, 100))
	Apply(st, players, action("Alice", "finish", 6, 200))

	if st.WhichBoard[bingo.SideA] != 1 {
		t.Errorf("Expected side A moved to board B, got %d", st.WhichBoard[bingo.SideA])
	}
	if st.WhichBoard[bingo.SideB] != 0 {
		t.Errorf("Expected side B to stay on board A, got %d", st.WhichBoard[bingo.SideB])
	}
	if st.CaptureBoard(bingo.SideA, 6) != 0 {
		t.Errorf("Expected capture recorded on board A, got %d", st.CaptureBoard(bingo.SideA, 6))
	}
}
