// Package actionlog holds the append-only, timestamp-ordered record of a game
// and the pause-aware duration arithmetic every consumer of that record shares.
package actionlog

import (
	"fmt"
	"math"
	"sync"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
)

// ErrNonMonotonic is returned when an action is older than the last one
// already in the log.
var ErrNonMonotonic = bingo.ErrNonMonotonic

// Log is the in-memory append-only action log of one game.
type Log struct {
	mu      sync.RWMutex
	actions []bingo.PlayerAction
}

// New creates an empty log.
func New() *Log {
	return &Log{actions: make([]bingo.PlayerAction, 0)}
}

// FromActions builds a log from a recorded action list, checking ordering.
func FromActions(actions []bingo.PlayerAction) (*Log, error) {
	l := New()
	for i, a := range actions {
		if err := l.Append(a); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}
	return l, nil
}

// Append adds an action. It is the only write the log supports.
func (l *Log) Append(a bingo.PlayerAction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.actions); n > 0 && a.Timestamp < l.actions[n-1].Timestamp {
		return fmt.Errorf("%w: %d < %d", ErrNonMonotonic, a.Timestamp, l.actions[n-1].Timestamp)
	}
	if a.ScoreNow != nil {
		a.ScoreNow = append([]int(nil), a.ScoreNow...)
	}
	l.actions = append(l.actions, a)
	return nil
}

// Len returns the number of logged actions.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.actions)
}

// Last returns the most recent action.
func (l *Log) Last() (bingo.PlayerAction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.actions) == 0 {
		return bingo.PlayerAction{}, false
	}
	return l.actions[len(l.actions)-1], true
}

// Actions returns a copy of the logged actions.
func (l *Log) Actions() []bingo.PlayerAction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]bingo.PlayerAction, len(l.actions))
	copy(out, l.actions)
	return out
}

// EffectiveDuration is EffectiveDuration over the logged actions.
func (l *Log) EffectiveDuration(start, end int64) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return EffectiveDuration(l.actions, start, end)
}

// PauseWindows is PauseWindows over the logged actions.
func (l *Log) PauseWindows() []Window {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return PauseWindows(l.actions)
}

// Window is a half-open [Start, End) interval in game milliseconds. A pause
// that was never resumed has End == math.MaxInt64.
type Window struct {
	Start int64
	End   int64
}

// Open reports whether the window was never closed by a resume.
func (w Window) Open() bool { return w.End == math.MaxInt64 }

// overlap returns how much of w lies inside [start, end].
func (w Window) overlap(start, end int64) int64 {
	lo := max(w.Start, start)
	hi := min(w.End, end)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// PauseWindows pairs pause and resume actions in log order. A repeated pause
// while already paused and a resume while running are ignored.
func PauseWindows(actions []bingo.PlayerAction) []Window {
	var windows []Window
	paused := false
	var since int64
	for _, a := range actions {
		switch a.ActionType {
		case bingo.ActionPause:
			if !paused {
				paused = true
				since = a.Timestamp
			}
		case bingo.ActionResume:
			if paused {
				windows = append(windows, Window{Start: since, End: a.Timestamp})
				paused = false
			}
		}
	}
	if paused {
		windows = append(windows, Window{Start: since, End: math.MaxInt64})
	}
	return windows
}

// EffectiveDuration returns end - start minus the part of every pause window
// that falls inside [start, end]. Windows straddling either bound are clipped
// to it. The result is negative when end < start; callers decide what a
// non-positive duration means.
func EffectiveDuration(actions []bingo.PlayerAction, start, end int64) int64 {
	d := end - start
	if d <= 0 {
		return d
	}
	for _, w := range PauseWindows(actions) {
		if w.Start >= end {
			break
		}
		d -= w.overlap(start, end)
	}
	return d
}
