package websocket

import (
	"sort"
	"strings"
	"sync"
)

// Subscription tracks which event types a viewer wants. A new subscription
// receives everything until the first explicit subscribe.
type Subscription struct {
	mu    sync.RWMutex
	types map[string]bool
	all   bool
}

// NewSubscription creates a subscription to all events.
func NewSubscription() *Subscription {
	return &Subscription{types: make(map[string]bool), all: true}
}

// Subscribe adds event types. An entry ending in ":" subscribes to a whole
// family, e.g. "replay:".
func (s *Subscription) Subscribe(eventTypes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(eventTypes) == 0 {
		s.all = true
		return
	}
	s.all = false
	for _, t := range eventTypes {
		s.types[t] = true
	}
}

// Unsubscribe removes event types.
func (s *Subscription) Unsubscribe(eventTypes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range eventTypes {
		delete(s.types, t)
	}
}

// Matches reports whether eventType should be delivered.
func (s *Subscription) Matches(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.all || s.types[eventType] {
		return true
	}
	if i := strings.IndexByte(eventType, ':'); i >= 0 {
		return s.types[eventType[:i+1]]
	}
	return false
}

// List returns the subscribed types, sorted, or "*" for everything.
func (s *Subscription) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.all {
		return []string{"*"}
	}
	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
