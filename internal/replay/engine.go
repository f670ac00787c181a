// Package replay reconstructs a recorded game on a private session state,
// either in real time on a ticking clock or by seeking to a point in time.
package replay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
	"github.com/ramonehamilton/spell-bingo/internal/session"
)

// DefaultTickInterval is how often a playing replay advances its clock.
const DefaultTickInterval = 10 * time.Millisecond

var (
	ErrNotLoaded      = errors.New("replay not loaded")
	ErrAlreadyActive  = errors.New("replay already active")
	ErrNotActive      = errors.New("replay not active")
	ErrAlreadyPaused  = errors.New("replay already paused")
	ErrNotPaused      = errors.New("replay not paused")
	ErrFinished       = errors.New("replay finished")
	ErrInvalidSpeed   = errors.New("replay speed must be positive")
	ErrInvalidGameLog = errors.New("invalid game log")
)

// Phase is the lifecycle of a replay.
type Phase int

const (
	Idle Phase = iota
	Playing
	Paused
	Finished
)

func (p Phase) String() string {
	switch p {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

// Event types emitted to listeners.
const (
	EventStarted   = "replay:started"
	EventProgress  = "replay:progress"
	EventPaused    = "replay:paused"
	EventResumed   = "replay:resumed"
	EventSeeked    = "replay:seeked"
	EventCompleted = "replay:completed"
	EventEnded     = "replay:ended"
)

// Status is a point-in-time view of the replay clock.
type Status struct {
	Phase        Phase   `json:"-"`
	PhaseName    string  `json:"phase"`
	CurrentTime  int64   `json:"currentTime"` // virtual game ms
	TotalTime    int64   `json:"totalTime"`
	Cursor       int     `json:"cursor"`
	TotalActions int     `json:"totalActions"`
	Speed        float64 `json:"speed"`
}

// Event is delivered to listeners after the replayer's lock is released.
type Event struct {
	Type    string
	Status  Status
	Applied []bingo.PlayerAction // actions applied since the previous event
}

// Listener receives replay events.
type Listener func(Event)

// Context is what a replay temporarily replaces: the room, player names and
// state on display. End puts it back.
type Context struct {
	Room    bingo.RoomConfig
	Players []string
	State   *session.State
}

func (c Context) clone() Context {
	out := Context{Room: c.Room, Players: append([]string(nil), c.Players...)}
	if c.State != nil {
		out.State = c.State.Clone()
	}
	return out
}

// Options configures a Replayer.
type Options struct {
	TickInterval time.Duration    // DefaultTickInterval when zero
	Clock        func() time.Time // time.Now when nil
}

// Replayer drives one replay at a time. All methods are safe for concurrent
// use; a tick holds the lock for its whole batch of due actions.
type Replayer struct {
	mu     sync.Mutex
	opts   Options
	log    *logrus.Entry
	events []Listener

	current Context
	saved   *Context

	data    *bingo.GameLogData
	initial *session.State
	phase   Phase
	cursor  int
	now     float64 // virtual ms
	speed   float64

	lastTick time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates an idle replayer showing an empty context.
func New(opts Options) *Replayer {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Replayer{
		opts:    opts,
		log:     logger.Component("replay"),
		current: Context{State: session.NewState()},
		speed:   1,
	}
}

// OnEvent registers a listener. Listeners run on the goroutine that caused
// the event and must not block.
func (r *Replayer) OnEvent(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, l)
}

// SetContext replaces what the replayer shows while idle.
func (r *Replayer) SetContext(c Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != Idle {
		return ErrAlreadyActive
	}
	if c.State == nil {
		c.State = session.NewState()
	}
	r.current = c.clone()
	return nil
}

// Start begins playing data from its initial snapshot at 1x speed.
func (r *Replayer) Start(data *bingo.GameLogData) error {
	if data == nil {
		return ErrNotLoaded
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGameLog, err)
	}

	r.mu.Lock()
	if r.phase == Playing || r.phase == Paused {
		r.mu.Unlock()
		return ErrAlreadyActive
	}
	if r.saved == nil {
		saved := r.current.clone()
		r.saved = &saved
	}

	copied := *data
	copied.Actions = append([]bingo.PlayerAction(nil), data.Actions...)
	r.data = &copied
	r.initial = session.FromGameLog(r.data)
	r.current = Context{
		Room:    r.data.RoomConfig,
		Players: append([]string(nil), r.data.Players...),
		State:   r.initial.Clone(),
	}
	r.cursor = 0
	r.now = 0
	r.speed = 1
	r.phase = Playing
	r.startTicker()
	ev := r.eventLocked(EventStarted, nil)
	listeners := r.events
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"actions": len(data.Actions),
		"total":   data.TotalTime(),
		"players": data.Players,
	}).Info("replay started")
	emit(listeners, ev)
	return nil
}

// Pause stops the clock without moving the cursor.
func (r *Replayer) Pause() error {
	r.mu.Lock()
	switch r.phase {
	case Idle:
		r.mu.Unlock()
		return ErrNotActive
	case Paused:
		r.mu.Unlock()
		return ErrAlreadyPaused
	case Finished:
		r.mu.Unlock()
		return ErrFinished
	}
	r.phase = Paused
	done := r.stopTicker()
	ev := r.eventLocked(EventPaused, nil)
	listeners := r.events
	r.mu.Unlock()

	wait(done)
	emit(listeners, ev)
	return nil
}

// Resume restarts the clock of a paused replay.
func (r *Replayer) Resume() error {
	r.mu.Lock()
	switch r.phase {
	case Idle:
		r.mu.Unlock()
		return ErrNotActive
	case Playing:
		r.mu.Unlock()
		return ErrNotPaused
	case Finished:
		r.mu.Unlock()
		return ErrFinished
	}
	r.phase = Playing
	r.startTicker()
	ev := r.eventLocked(EventResumed, nil)
	listeners := r.events
	r.mu.Unlock()

	emit(listeners, ev)
	return nil
}

// SetSpeed sets the multiplier applied to wall-clock time. It must be a
// positive finite number.
func (r *Replayer) SetSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speed = speed
	return nil
}

// Seek rebuilds the state at timestamp by replaying every action at or
// before it from the initial snapshot. A playing replay keeps playing from
// there; seeking to the end finishes it.
func (r *Replayer) Seek(timestamp int64) error {
	r.mu.Lock()
	if r.data == nil {
		r.mu.Unlock()
		return ErrNotLoaded
	}
	if timestamp < 0 {
		timestamp = 0
	}

	wasPlaying := r.phase == Playing
	done := r.stopTicker()

	r.current.State.Restore(r.initial)
	r.cursor = 0
	r.now = float64(timestamp)
	applied := r.applyDueLocked()

	var evType string
	switch {
	case r.finishedLocked():
		r.phase = Finished
		evType = EventCompleted
	case wasPlaying:
		r.phase = Playing
		r.startTicker()
		evType = EventSeeked
	default:
		r.phase = Paused
		evType = EventSeeked
	}
	ev := r.eventLocked(evType, applied)
	listeners := r.events
	r.mu.Unlock()

	wait(done)
	emit(listeners, ev)
	return nil
}

// Advance moves the clock by wall of real time scaled by the speed and
// applies every action that became due, exactly like one tick.
func (r *Replayer) Advance(wall time.Duration) error {
	r.mu.Lock()
	if r.phase != Playing {
		r.mu.Unlock()
		return ErrNotActive
	}
	events := r.advanceLocked(wall)
	listeners := r.events
	r.mu.Unlock()

	emit(listeners, events...)
	return nil
}

// End stops the replay and restores the context that was shown before Start.
func (r *Replayer) End() error {
	r.mu.Lock()
	if r.phase == Idle {
		r.mu.Unlock()
		return ErrNotActive
	}
	done := r.stopTicker()
	ev := r.eventLocked(EventEnded, nil)

	if r.saved != nil {
		r.current = *r.saved
		r.saved = nil
	}
	r.data = nil
	r.initial = nil
	r.phase = Idle
	r.cursor = 0
	r.now = 0
	r.speed = 1
	listeners := r.events
	r.mu.Unlock()

	wait(done)
	r.log.Info("replay ended")
	emit(listeners, ev)
	return nil
}

// Status returns the replay clock.
func (r *Replayer) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

// Snapshot returns a copy of the context currently shown.
func (r *Replayer) Snapshot() Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.clone()
}

// ticking reports whether a tick goroutine is live.
func (r *Replayer) ticking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Replayer) startTicker() {
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.lastTick = r.opts.Clock()
	go r.run(ctx, done)
}

// stopTicker cancels the tick goroutine and returns a channel closed once it
// has exited. Callers wait on it after releasing the lock.
func (r *Replayer) stopTicker() chan struct{} {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	done := r.done
	r.cancel = nil
	r.done = nil
	return done
}

func wait(done chan struct{}) {
	if done != nil {
		<-done
	}
}

func (r *Replayer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.tick(ctx) {
				return
			}
		}
	}
}

// tick advances by the wall time since the previous tick. It reports whether
// the goroutine should keep ticking.
func (r *Replayer) tick(ctx context.Context) bool {
	r.mu.Lock()
	if ctx.Err() != nil || r.phase != Playing {
		r.mu.Unlock()
		return false
	}
	now := r.opts.Clock()
	wall := now.Sub(r.lastTick)
	r.lastTick = now
	events := r.advanceLocked(wall)
	keepGoing := r.phase == Playing
	listeners := r.events
	r.mu.Unlock()

	emit(listeners, events...)
	return keepGoing
}

func (r *Replayer) advanceLocked(wall time.Duration) []Event {
	if wall > 0 {
		r.now += float64(wall) / float64(time.Millisecond) * r.speed
	}
	applied := r.applyDueLocked()

	var events []Event
	if len(applied) > 0 {
		events = append(events, r.eventLocked(EventProgress, applied))
	}
	if r.finishedLocked() {
		r.phase = Finished
		if r.cancel != nil {
			// The tick goroutine notices the phase change and exits on its own.
			r.cancel()
			r.cancel = nil
			r.done = nil
		}
		events = append(events, r.eventLocked(EventCompleted, nil))
		r.log.WithField("actions", r.cursor).Info("replay completed")
	}
	return events
}

func (r *Replayer) applyDueLocked() []bingo.PlayerAction {
	actions := r.data.Actions
	start := r.cursor
	for r.cursor < len(actions) && float64(actions[r.cursor].Timestamp) <= r.now {
		Apply(r.current.State, r.current.Players, actions[r.cursor])
		r.cursor++
	}
	return actions[start:r.cursor]
}

func (r *Replayer) finishedLocked() bool {
	return r.cursor >= len(r.data.Actions) && int64(r.now) >= r.data.TotalTime()
}

func (r *Replayer) statusLocked() Status {
	st := Status{
		Phase:     r.phase,
		PhaseName: r.phase.String(),
		Cursor:    r.cursor,
		Speed:     r.speed,
	}
	if r.data != nil {
		st.CurrentTime = int64(r.now)
		st.TotalTime = r.data.TotalTime()
		st.TotalActions = len(r.data.Actions)
	}
	return st
}

func (r *Replayer) eventLocked(typ string, applied []bingo.PlayerAction) Event {
	return Event{
		Type:    typ,
		Status:  r.statusLocked(),
		Applied: append([]bingo.PlayerAction(nil), applied...),
	}
}

func emit(listeners []Listener, events ...Event) {
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}
