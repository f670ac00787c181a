package session

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/bingo/actionlog"
	"github.com/ramonehamilton/spell-bingo/internal/commands"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
)

// Options configures a live session.
type Options struct {
	Players   []string
	Room      bingo.RoomConfig
	Clock     func() time.Time // time.Now when nil
	QueueSize int              // 64 when zero
}

// Session is a live game. Every push is funnelled through one command queue
// and applied to State on the goroutine running Run, so State and the action
// log have a single writer.
type Session struct {
	queue *commands.Queue
	clock func() time.Time
	log   *logrus.Entry

	// Owned by the Run goroutine.
	state      *State
	actions    *actionlog.Log
	room       bingo.RoomConfig
	players    []string
	isCustom   bool
	initStatus []bingo.CellStatus
	startedAt  time.Time
	onStart    []func(room bingo.RoomConfig, players []string)
	onEnd      []func(bingo.GameLogData)
}

// New creates a session. Register listeners before calling Run.
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	players := append([]string(nil), opts.Players...)
	for len(players) < 2 {
		players = append(players, "")
	}
	return &Session{
		queue:   commands.NewQueue(opts.QueueSize),
		clock:   opts.Clock,
		log:     logger.Component("session"),
		state:   NewState(),
		actions: actionlog.New(),
		room:    opts.Room,
		players: players,
	}
}

// OnChange registers a listener on the session state.
func (s *Session) OnChange(l Listener) {
	s.state.OnChange(l)
}

// OnGameStart registers a callback run after each push_start_game.
func (s *Session) OnGameStart(fn func(room bingo.RoomConfig, players []string)) {
	s.onStart = append(s.onStart, fn)
}

// OnGameEnd registers a callback receiving the frozen record of each game
// when it stops.
func (s *Session) OnGameEnd(fn func(bingo.GameLogData)) {
	s.onEnd = append(s.onEnd, fn)
}

// Run applies queued pushes until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	s.queue.Run(ctx)
}

// Push enqueues an inbound push without waiting for it to be applied.
func (s *Session) Push(ctx context.Context, p Push) error {
	return s.queue.Submit(ctx, s.pushCommand(p))
}

// Apply enqueues a push and waits until it has been applied.
func (s *Session) Apply(ctx context.Context, p Push) error {
	return s.queue.Do(ctx, s.pushCommand(p))
}

// Query runs fn on the session goroutine with read access to the state and
// the action log. fn must not retain either.
func (s *Session) Query(ctx context.Context, fn func(st *State, actions *actionlog.Log)) error {
	return s.queue.Do(ctx, commands.NewFunc("Query", func(context.Context) error {
		fn(s.state, s.actions)
		return nil
	}))
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot(ctx context.Context) (*State, error) {
	var snap *State
	err := s.Query(ctx, func(st *State, _ *actionlog.Log) {
		snap = st.Clone()
	})
	return snap, err
}

// GameLog returns the record of the game so far.
func (s *Session) GameLog(ctx context.Context) (bingo.GameLogData, error) {
	var data bingo.GameLogData
	err := s.Query(ctx, func(*State, *actionlog.Log) {
		data = s.record()
	})
	return data, err
}

// Cooldown returns how long side must still wait before its next claim.
func (s *Session) Cooldown(ctx context.Context, side bingo.Side) (time.Duration, error) {
	var remaining int64
	err := s.Query(ctx, func(st *State, _ *actionlog.Log) {
		cd := int64(s.room.PlayerCD(side)) * 1000
		remaining = st.CooldownRemaining(side, s.elapsed(), cd)
	})
	return time.Duration(remaining) * time.Millisecond, err
}

type pushCommand struct {
	commands.BaseCommand
	session *Session
	push    Push
}

func (c *pushCommand) Execute(context.Context) error {
	return c.session.handle(c.push)
}

func (s *Session) pushCommand(p Push) commands.Command {
	return &pushCommand{
		BaseCommand: commands.NewBaseCommand(p.Kind(), fmt.Sprintf("apply %s", p.Kind())),
		session:     s,
		push:        p,
	}
}

func (s *Session) handle(p Push) error {
	switch p := p.(type) {
	case StartGame:
		s.startGame(p)
	case Sync:
		s.sync(p)
	case SpellStatusUpdate:
		return s.updateSpellStatus(p)
	case OneSpellUpdate:
		return s.updateOneSpell(p)
	case PauseUpdate:
		return s.pause(p)
	case StopGame:
		s.stopGame(p)
	default:
		return fmt.Errorf("unknown push %T", p)
	}
	return nil
}

func (s *Session) startGame(p StartGame) {
	s.room = p.Room
	if len(p.Players) >= 2 {
		s.players = append([]string(nil), p.Players[:2]...)
	}
	s.isCustom = p.IsCustomGame
	s.state.Reset()
	s.state.DualBoard = s.room.IsDualBoard()
	s.state.GameStatus = bingo.GameStarted
	s.actions = actionlog.New()
	s.initStatus = nil
	s.startedAt = s.clock()

	s.log.WithFields(logrus.Fields{
		"rid":     s.room.RID,
		"players": s.players,
	}).Info("game started")

	for _, fn := range s.onStart {
		fn(s.room, append([]string(nil), s.players...))
	}
}

func (s *Session) sync(p Sync) {
	if err := p.Spells.Validate(); err == nil {
		s.state.Spells = p.Spells.Clone()
	}
	if err := p.Spells2.Validate(); err == nil {
		s.state.Spells2 = p.Spells2.Clone()
	}
	s.state.DualBoard = s.room.IsDualBoard() && len(s.state.Spells2) == bingo.BoardSize
	if len(p.Statuses) == bingo.BoardSize {
		copy(s.state.Statuses, p.Statuses)
	}
	s.state.ApplyNormalData(p.NormalData)
	if s.actions.Len() == 0 {
		s.initStatus = append([]bingo.CellStatus(nil), s.state.Statuses...)
	}
}

func (s *Session) updateSpellStatus(p SpellStatusUpdate) error {
	if !bingo.ValidIndex(p.Index) {
		return fmt.Errorf("spell index %d out of range", p.Index)
	}
	if p.SpellFailedCountA != nil {
		s.state.FailedCount[bingo.SideA][p.Index] = *p.SpellFailedCountA
	}
	if p.SpellFailedCountB != nil {
		s.state.FailedCount[bingo.SideB][p.Index] = *p.SpellFailedCountB
	}

	at := s.elapsed()
	actor := s.actorFor(p.Causer)
	current := s.state.Statuses[p.Index]

	requested := p.Status
	if side, ok := actor.Side(); ok {
		requested = bingo.RequestFor(side, p.Status)
	}
	to, ev := bingo.Transition(current, actor, requested)
	if ev == bingo.EventNone || to != p.Status {
		s.log.WithFields(logrus.Fields{
			"index":  p.Index,
			"from":   current,
			"pushed": p.Status,
			"causer": p.Causer,
		}).Debug("status push rejected by state machine")
		s.applyBoardFields(p)
		return nil
	}

	ch := s.state.Commit(at, p.Index, actor, to, ev)
	s.applyBoardFields(p)

	spell, _ := s.state.SpellAt(ch.Board, p.Index)
	return s.appendAction(bingo.PlayerAction{
		PlayerName: p.Causer,
		ActionType: ev.ActionType(to),
		SpellIndex: p.Index,
		SpellName:  spell.Name,
		Timestamp:  at,
		ScoreNow:   s.state.Scores(),
	})
}

// applyBoardFields takes the server's word for board assignment and capture
// boards over what the local claim bookkeeping derived.
func (s *Session) applyBoardFields(p SpellStatusUpdate) {
	if p.WhichBoardA != nil {
		s.state.WhichBoard[bingo.SideA] = *p.WhichBoardA
	}
	if p.WhichBoardB != nil {
		s.state.WhichBoard[bingo.SideB] = *p.WhichBoardB
	}
	if p.GetOnWhichBoard != nil {
		s.state.CaptureBoardOf[p.Index] = *p.GetOnWhichBoard
	}
}

func (s *Session) updateOneSpell(p OneSpellUpdate) error {
	if _, ok := s.state.Refresh(s.elapsed(), s.actorFor(p.PlayerName), p.BoardIdx, p.SpellIdx, p.Spell); !ok {
		s.log.WithFields(logrus.Fields{
			"board": p.BoardIdx,
			"index": p.SpellIdx,
			"by":    p.PlayerName,
		}).Debug("refresh rejected")
	}
	return nil
}

func (s *Session) pause(p PauseUpdate) error {
	var actionType string
	switch {
	case p.Pause && s.state.GameStatus == bingo.GameStarted:
		s.state.GameStatus = bingo.GamePaused
		actionType = bingo.ActionPause
	case !p.Pause && s.state.GameStatus == bingo.GamePaused:
		s.state.GameStatus = bingo.GameStarted
		actionType = bingo.ActionResume
	default:
		return nil
	}
	return s.appendAction(bingo.PlayerAction{
		PlayerName: p.Causer,
		ActionType: actionType,
		SpellIndex: -1,
		Timestamp:  s.elapsed(),
		ScoreNow:   s.state.Scores(),
	})
}

func (s *Session) stopGame(p StopGame) {
	s.state.GameStatus = bingo.GameEnded
	data := s.record()

	s.log.WithFields(logrus.Fields{
		"rid":     s.room.RID,
		"winner":  p.Winner,
		"actions": len(data.Actions),
		"score":   data.Score,
	}).Info("game stopped")

	for _, fn := range s.onEnd {
		fn(data)
	}
	s.state.Reset()
	s.actions = actionlog.New()
	s.initStatus = nil
	s.startedAt = time.Time{}
}

func (s *Session) appendAction(a bingo.PlayerAction) error {
	if err := s.actions.Append(a); err != nil {
		return fmt.Errorf("failed to append %s: %w", a.ActionType, err)
	}
	return nil
}

// elapsed returns ms since game start, never earlier than the last logged
// action.
func (s *Session) elapsed() int64 {
	if s.startedAt.IsZero() {
		return 0
	}
	ms := s.clock().Sub(s.startedAt).Milliseconds()
	if last, ok := s.actions.Last(); ok && ms < last.Timestamp {
		ms = last.Timestamp
	}
	return ms
}

func (s *Session) actorFor(name string) bingo.Actor {
	switch {
	case name != "" && name == s.players[0]:
		return bingo.ActorA
	case name != "" && name == s.players[1]:
		return bingo.ActorB
	default:
		return bingo.ActorHost
	}
}

// record builds the game record from the current state and log.
func (s *Session) record() bingo.GameLogData {
	init := s.initStatus
	if len(init) != bingo.BoardSize {
		init = bingo.NewStatuses()
	}
	var spells2 bingo.Board
	if s.state.DualBoard {
		spells2 = s.state.Spells2.Clone()
	}
	var start int64
	if !s.startedAt.IsZero() {
		start = s.startedAt.UnixMilli()
	}
	return bingo.GameLogData{
		RoomConfig:         s.room,
		Players:            append([]string(nil), s.players...),
		Spells:             s.state.Spells.Clone(),
		Spells2:            spells2,
		NormalData:         s.state.NormalData(),
		Actions:            s.actions.Actions(),
		GameStartTimestamp: start,
		Score:              s.state.Scores(),
		InitStatus:         append([]bingo.CellStatus(nil), init...),
		IsCustomGame:       s.isCustom,
	}
}
