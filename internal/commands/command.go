package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/logger"
)

// ErrQueueClosed is returned when submitting to a queue that stopped running.
var ErrQueueClosed = errors.New("command queue closed")

// Command represents an encapsulated operation that can be executed.
// Game state is only mutated through commands so that every change runs on
// a single goroutine, in submission order.
type Command interface {
	// Execute performs the command's operation.
	Execute(ctx context.Context) error

	// GetName returns a short name for logging.
	GetName() string

	// GetDescription returns a detailed description of what this command does.
	GetDescription() string
}

// BaseCommand provides the naming half of the Command interface.
// Embed this in your command structs.
type BaseCommand struct {
	name        string
	description string
}

// NewBaseCommand creates a BaseCommand.
func NewBaseCommand(name, description string) BaseCommand {
	return BaseCommand{name: name, description: description}
}

// GetName returns the command name.
func (c *BaseCommand) GetName() string {
	return c.name
}

// GetDescription returns the command description.
func (c *BaseCommand) GetDescription() string {
	return c.description
}

// Func adapts a function to a Command.
type Func struct {
	BaseCommand
	fn func(ctx context.Context) error
}

// NewFunc wraps fn as a named command.
func NewFunc(name string, fn func(ctx context.Context) error) *Func {
	return &Func{BaseCommand: NewBaseCommand(name, name), fn: fn}
}

// Execute calls the wrapped function.
func (f *Func) Execute(ctx context.Context) error {
	return f.fn(ctx)
}

// Executor runs commands and remembers the names of the most recent ones.
type Executor struct {
	mu         sync.Mutex
	history    []string
	maxHistory int
}

// NewExecutor creates an executor. maxHistory bounds the remembered command
// names (0 = unlimited).
func NewExecutor(maxHistory int) *Executor {
	return &Executor{
		history:    make([]string, 0),
		maxHistory: maxHistory,
	}
}

// Execute runs a command and records it.
func (e *Executor) Execute(ctx context.Context, cmd Command) error {
	if err := cmd.Execute(ctx); err != nil {
		return fmt.Errorf("command %s failed: %w", cmd.GetName(), err)
	}
	e.addToHistory(cmd.GetName())
	return nil
}

// ExecuteAll executes commands in sequence, stopping at the first failure.
func (e *Executor) ExecuteAll(ctx context.Context, cmds []Command) error {
	for i, cmd := range cmds {
		if err := e.Execute(ctx, cmd); err != nil {
			return fmt.Errorf("command %d (%s) failed: %w", i, cmd.GetName(), err)
		}
	}
	return nil
}

// GetHistory returns a copy of the executed command names, oldest first.
func (e *Executor) GetHistory() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	history := make([]string, len(e.history))
	copy(history, e.history)
	return history
}

func (e *Executor) addToHistory(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, name)
	if e.maxHistory > 0 && len(e.history) > e.maxHistory {
		e.history = e.history[len(e.history)-e.maxHistory:]
	}
}

type queued struct {
	cmd  Command
	done chan error
}

// Queue serializes commands onto the goroutine that calls Run.
type Queue struct {
	executor *Executor
	pending  chan queued
	stopped  chan struct{}
	once     sync.Once
}

// NewQueue creates a queue buffering up to size pending commands.
func NewQueue(size int) *Queue {
	return &Queue{
		executor: NewExecutor(64),
		pending:  make(chan queued, size),
		stopped:  make(chan struct{}),
	}
}

// Submit enqueues cmd without waiting for it to run. It blocks while the
// buffer is full.
func (q *Queue) Submit(ctx context.Context, cmd Command) error {
	return q.enqueue(ctx, queued{cmd: cmd})
}

// Do enqueues cmd and waits for its result.
func (q *Queue) Do(ctx context.Context, cmd Command) error {
	item := queued{cmd: cmd, done: make(chan error, 1)}
	if err := q.enqueue(ctx, item); err != nil {
		return err
	}
	select {
	case err := <-item.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		return ErrQueueClosed
	}
}

func (q *Queue) enqueue(ctx context.Context, item queued) error {
	select {
	case <-q.stopped:
		return ErrQueueClosed
	default:
	}
	select {
	case q.pending <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		return ErrQueueClosed
	}
}

// Run executes queued commands one at a time until ctx is cancelled.
// A failing command is logged and does not stop the queue.
func (q *Queue) Run(ctx context.Context) {
	defer q.once.Do(func() { close(q.stopped) })
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-q.pending:
			err := q.executor.Execute(ctx, item.cmd)
			if err != nil && item.done == nil {
				logger.Log.WithFields(logrus.Fields{
					"command": item.cmd.GetName(),
				}).WithError(err).Warn("queued command failed")
			}
			if item.done != nil {
				item.done <- err
			}
		}
	}
}

// History returns the names of recently executed commands.
func (q *Queue) History() []string {
	return q.executor.GetHistory()
}
