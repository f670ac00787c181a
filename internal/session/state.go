// Package session holds the mutable projection of a game: cell statuses,
// boards, per-side board assignment, portal flags and claim bookkeeping.
package session

import (
	"github.com/ramonehamilton/spell-bingo/internal/bingo"
)

// Capture-board bitmask layout: the low nibble is the board side A claimed
// the cell on, the high nibble the board side B did.
const (
	captureBoardA = 0x1
	captureBoardB = 0x2
	captureShiftB = 4
)

// Change describes one committed mutation of State.
type Change struct {
	Index        int
	Board        int // board the change happened on for the acting side
	From         bingo.CellStatus
	To           bingo.CellStatus
	Actor        bingo.Actor
	Event        bingo.Event
	BoardFlipped bool // the claim landed on a portal and flipped the claimant's board
	At           int64
}

// Listener is invoked synchronously after every committed change.
type Listener func(s *State, change Change)

// State is the live or replayed projection of one game. It is owned by a
// single goroutine; it does no locking of its own.
type State struct {
	Spells         bingo.Board
	Spells2        bingo.Board
	Statuses       []bingo.CellStatus
	WhichBoard     [2]int    // board each side is currently on
	Portals        [2][]bool // portal flags of board A and board B
	CaptureBoardOf []int
	FailedCount    [2][]int // per-side failed claim attempts per cell
	GameStatus     bingo.GameStatus
	LastClaimAt    [2]int64 // game ms of each side's last claim, -1 when none
	DualBoard      bool

	listeners []Listener
}

// NewState creates a state with every cell NONE and all per-cell arrays
// sized to the board.
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset zeroes the state, keeping registered listeners.
func (s *State) Reset() {
	s.Spells = nil
	s.Spells2 = nil
	s.Statuses = bingo.NewStatuses()
	s.WhichBoard = [2]int{}
	s.Portals = [2][]bool{make([]bool, bingo.BoardSize), make([]bool, bingo.BoardSize)}
	s.CaptureBoardOf = make([]int, bingo.BoardSize)
	s.FailedCount = [2][]int{make([]int, bingo.BoardSize), make([]int, bingo.BoardSize)}
	s.GameStatus = bingo.GameNotStarted
	s.LastClaimAt = [2]int64{-1, -1}
	s.DualBoard = false
}

// FromGameLog builds the initial state a recorded game started from: its
// boards, portal layout and initial statuses, with both sides on board A and
// no claims yet.
func FromGameLog(g *bingo.GameLogData) *State {
	s := NewState()
	s.Spells = g.Spells.Clone()
	s.Spells2 = g.Spells2.Clone()
	s.DualBoard = g.RoomConfig.IsDualBoard() && len(g.Spells2) == bingo.BoardSize
	if len(g.InitStatus) == bingo.BoardSize {
		copy(s.Statuses, g.InitStatus)
	}
	if g.NormalData != nil {
		s.Portals[0] = intFlags(g.NormalData.IsPortalA)
		s.Portals[1] = intFlags(g.NormalData.IsPortalB)
	}
	s.GameStatus = bingo.GameStarted
	return s
}

// OnChange registers a listener.
func (s *State) OnChange(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Clone returns a deep copy without listeners.
func (s *State) Clone() *State {
	c := &State{
		Spells:         s.Spells.Clone(),
		Spells2:        s.Spells2.Clone(),
		Statuses:       append([]bingo.CellStatus(nil), s.Statuses...),
		WhichBoard:     s.WhichBoard,
		CaptureBoardOf: append([]int(nil), s.CaptureBoardOf...),
		GameStatus:     s.GameStatus,
		LastClaimAt:    s.LastClaimAt,
		DualBoard:      s.DualBoard,
	}
	for i := range s.Portals {
		c.Portals[i] = append([]bool(nil), s.Portals[i]...)
		c.FailedCount[i] = append([]int(nil), s.FailedCount[i]...)
	}
	return c
}

// Restore overwrites the state with a copy of snap, keeping listeners.
func (s *State) Restore(snap *State) {
	listeners := s.listeners
	*s = *snap.Clone()
	s.listeners = listeners
}

// Board returns the spells of board 0 (A) or 1 (B).
func (s *State) Board(board int) bingo.Board {
	if board == 1 {
		return s.Spells2
	}
	return s.Spells
}

// SpellAt returns the spell at index on the given board.
func (s *State) SpellAt(board, index int) (bingo.Spell, bool) {
	b := s.Board(board)
	if index < 0 || index >= len(b) {
		return bingo.Spell{}, false
	}
	return b[index], true
}

// SpellFor returns the spell at index as seen from side's current board.
func (s *State) SpellFor(side bingo.Side, index int) (bingo.Spell, bool) {
	return s.SpellAt(s.WhichBoard[side], index)
}

// Score counts the cells side holds.
func (s *State) Score(side bingo.Side) int {
	return bingo.ScoreOf(s.Statuses, side)
}

// Scores returns both sides' scores.
func (s *State) Scores() []int {
	return []int{s.Score(bingo.SideA), s.Score(bingo.SideB)}
}

// CaptureBoard decodes which board side claimed index on: 0 for A, 1 for B,
// or -1 when the bitmask holds nothing for that side.
func (s *State) CaptureBoard(side bingo.Side, index int) int {
	return CaptureBoard(s.CaptureBoardOf[index], side)
}

// CaptureBoard decodes a capture bitmask for side.
func CaptureBoard(mask int, side bingo.Side) int {
	nibble := mask & 0x0F
	if side == bingo.SideB {
		nibble = (mask >> captureShiftB) & 0x0F
	}
	switch nibble {
	case captureBoardA:
		return 0
	case captureBoardB:
		return 1
	}
	return -1
}

// CooldownRemaining returns how many ms side must still wait after its last
// claim, given a cooldown of cdMs.
func (s *State) CooldownRemaining(side bingo.Side, now, cdMs int64) int64 {
	last := s.LastClaimAt[side]
	if last < 0 {
		return 0
	}
	return max(0, last+cdMs-now)
}

// Transition runs a request through the state machine and commits the result.
// A rejected request changes nothing and reports false.
func (s *State) Transition(at int64, index int, actor bingo.Actor, requested bingo.CellStatus) (Change, bool) {
	if !bingo.ValidIndex(index) {
		return Change{}, false
	}
	to, ev := bingo.Transition(s.Statuses[index], actor, requested)
	if ev == bingo.EventNone {
		return Change{}, false
	}
	return s.Commit(at, index, actor, to, ev), true
}

// Commit applies an already-decided change without consulting the state
// machine. Claims record the capture board, stamp the claimant's cooldown and
// flip its board when the cell is a portal.
func (s *State) Commit(at int64, index int, actor bingo.Actor, to bingo.CellStatus, ev bingo.Event) Change {
	ch := Change{
		Index: index,
		From:  s.Statuses[index],
		To:    to,
		Actor: actor,
		Event: ev,
		At:    at,
	}
	s.Statuses[index] = to

	if side, ok := actor.Side(); ok {
		ch.Board = s.WhichBoard[side]
		if ev.IsClaim() {
			s.recordClaim(&ch, side)
		}
	}
	s.notify(ch)
	return ch
}

func (s *State) recordClaim(ch *Change, side bingo.Side) {
	board := s.WhichBoard[side]
	bit := captureBoardA << board
	if side == bingo.SideA {
		s.CaptureBoardOf[ch.Index] = (s.CaptureBoardOf[ch.Index] &^ 0x0F) | bit
	} else {
		s.CaptureBoardOf[ch.Index] = (s.CaptureBoardOf[ch.Index] &^ 0xF0) | (bit << captureShiftB)
	}
	s.LastClaimAt[side] = ch.At

	if s.DualBoard && s.Portals[board][ch.Index] {
		s.WhichBoard[side] = 1 - board
		ch.BoardFlipped = true
	}
}

// Refresh replaces the spell payload at index on board. Statuses are never
// touched. Only the host may refresh.
func (s *State) Refresh(at int64, actor bingo.Actor, board, index int, spell bingo.Spell) (Change, bool) {
	if actor != bingo.ActorHost || !bingo.ValidIndex(index) {
		return Change{}, false
	}
	b := s.Board(board)
	if len(b) != bingo.BoardSize {
		return Change{}, false
	}
	b[index] = spell
	ch := Change{
		Index: index,
		Board: board,
		From:  s.Statuses[index],
		To:    s.Statuses[index],
		Actor: actor,
		Event: bingo.EventRefresh,
		At:    at,
	}
	s.notify(ch)
	return ch, true
}

// NormalData exports the dual-board bookkeeping in record form.
func (s *State) NormalData() *bingo.NormalData {
	return &bingo.NormalData{
		WhichBoardA:     s.WhichBoard[0],
		WhichBoardB:     s.WhichBoard[1],
		IsPortalA:       boolFlags(s.Portals[0]),
		IsPortalB:       boolFlags(s.Portals[1]),
		GetOnWhichBoard: append([]int(nil), s.CaptureBoardOf...),
	}
}

// ApplyNormalData loads dual-board bookkeeping reported by the server.
func (s *State) ApplyNormalData(n *bingo.NormalData) {
	if n == nil {
		return
	}
	s.WhichBoard = [2]int{n.WhichBoardA, n.WhichBoardB}
	s.Portals[0] = intFlags(n.IsPortalA)
	s.Portals[1] = intFlags(n.IsPortalB)
	s.CaptureBoardOf = make([]int, bingo.BoardSize)
	copy(s.CaptureBoardOf, n.GetOnWhichBoard)
}

func (s *State) notify(ch Change) {
	for _, l := range s.listeners {
		l(s, ch)
	}
}

func intFlags(in []int) []bool {
	out := make([]bool, bingo.BoardSize)
	for i := 0; i < len(in) && i < bingo.BoardSize; i++ {
		out[i] = in[i] == 1
	}
	return out
}

func boolFlags(in []bool) []int {
	out := make([]int, bingo.BoardSize)
	for i, v := range in {
		if v && i < bingo.BoardSize {
			out[i] = 1
		}
	}
	return out
}
