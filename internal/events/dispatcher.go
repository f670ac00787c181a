// Package events fans domain events from the session, the replayer and the
// archive out to observers such as the websocket hub and the logger.
package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/logger"
)

// Event is a domain event dispatched to observers.
type Event struct {
	// Type is the event type, e.g. "cell:changed" or "replay:progress".
	Type string

	// Data is the typed payload, one of the *Event structs in messages.go.
	Data any

	Context context.Context
}

// NewEvent creates an event with a typed payload.
func NewEvent[T any](ctx context.Context, eventType string, data T) Event {
	if ctx == nil {
		ctx = context.Background()
	}
	return Event{Type: eventType, Data: data, Context: ctx}
}

// GetData extracts the typed payload. It returns false when the payload is
// of another type.
func GetData[T any](event Event) (T, bool) {
	typed, ok := event.Data.(T)
	return typed, ok
}

// Observer is notified of dispatched events it wants to handle.
type Observer interface {
	// OnEvent handles one event. An error is logged, never propagated.
	OnEvent(event Event) error

	// GetName names the observer in logs.
	GetName() string

	// ShouldHandle filters by event type.
	ShouldHandle(eventType string) bool
}

// EventDispatcher delivers events to registered observers. Safe for
// concurrent use.
type EventDispatcher struct {
	observers []Observer
	mu        sync.RWMutex
	log       *logrus.Entry
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{log: logger.Component("events")}
}

// Register adds an observer.
func (d *EventDispatcher) Register(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers = append(d.observers, observer)
	d.log.WithField("observer", observer.GetName()).Debug("observer registered")
}

// Unregister removes an observer.
func (d *EventDispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, obs := range d.observers {
		if obs == observer {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			d.log.WithField("observer", observer.GetName()).Debug("observer unregistered")
			return
		}
	}
}

// Dispatch notifies observers in registration order on the caller's
// goroutine. A failing observer does not stop the others.
func (d *EventDispatcher) Dispatch(event Event) {
	for _, observer := range d.snapshot() {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		d.notify(observer, event)
	}
}

// DispatchAsync notifies each interested observer on its own goroutine.
func (d *EventDispatcher) DispatchAsync(event Event) {
	for _, observer := range d.snapshot() {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		go d.notify(observer, event)
	}
}

func (d *EventDispatcher) notify(observer Observer, event Event) {
	if err := observer.OnEvent(event); err != nil {
		d.log.WithError(err).WithFields(logrus.Fields{
			"observer": observer.GetName(),
			"event":    event.Type,
		}).Warn("observer failed to handle event")
	}
}

func (d *EventDispatcher) snapshot() []Observer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Observer(nil), d.observers...)
}

// ObserverCount returns the number of registered observers.
func (d *EventDispatcher) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

// Clear removes all registered observers.
func (d *EventDispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = nil
}
