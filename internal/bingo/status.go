package bingo

import "strconv"

// CellStatus is the claim state of one cell.
type CellStatus int

const (
	StatusDisabled     CellStatus = -1
	StatusNone         CellStatus = 0
	StatusASelected    CellStatus = 1
	StatusBothSelected CellStatus = 2
	StatusBSelected    CellStatus = 3
	StatusAAttained    CellStatus = 5
	StatusBothAttained CellStatus = 6
	StatusBAttained    CellStatus = 7
)

// RefreshTag marks a payload swap. It is carried on events only and is never
// stored as a cell status.
const RefreshTag = 0x100

// Valid reports whether s is one of the stored statuses.
func (s CellStatus) Valid() bool {
	switch s {
	case StatusDisabled, StatusNone, StatusASelected, StatusBothSelected,
		StatusBSelected, StatusAAttained, StatusBothAttained, StatusBAttained:
		return true
	}
	return false
}

// IsTerminal reports whether the cell has been claimed.
func (s CellStatus) IsTerminal() bool {
	return s == StatusAAttained || s == StatusBAttained || s == StatusBothAttained
}

// SelectedBy reports whether side has a pending selection on the cell.
func (s CellStatus) SelectedBy(side Side) bool {
	if s == StatusBothSelected {
		return true
	}
	return s == SelectedStatus(side)
}

// AttainedBy reports whether side holds the cell.
func (s CellStatus) AttainedBy(side Side) bool {
	return s == StatusBothAttained || s == AttainedStatus(side)
}

// SelectedStatus returns the lone-selection status of side.
func SelectedStatus(side Side) CellStatus {
	if side == SideA {
		return StatusASelected
	}
	return StatusBSelected
}

// AttainedStatus returns the claimed status of side.
func AttainedStatus(side Side) CellStatus {
	if side == SideA {
		return StatusAAttained
	}
	return StatusBAttained
}

func (s CellStatus) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusNone:
		return "none"
	case StatusASelected:
		return "a_selected"
	case StatusBothSelected:
		return "both_selected"
	case StatusBSelected:
		return "b_selected"
	case StatusAAttained:
		return "a_attained"
	case StatusBothAttained:
		return "both_attained"
	case StatusBAttained:
		return "b_attained"
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// NewStatuses returns a fresh status array with every cell NONE.
func NewStatuses() []CellStatus {
	return make([]CellStatus, BoardSize)
}

// ScoreOf counts the cells side holds.
func ScoreOf(statuses []CellStatus, side Side) int {
	n := 0
	for _, s := range statuses {
		if s.AttainedBy(side) {
			n++
		}
	}
	return n
}
