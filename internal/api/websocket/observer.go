package websocket

import (
	"github.com/ramonehamilton/spell-bingo/internal/events"
)

// WebSocketObserver forwards dispatched events to the viewer hub.
type WebSocketObserver struct {
	hub  *Hub
	name string
}

// NewWebSocketObserver creates an observer broadcasting through hub.
func NewWebSocketObserver(hub *Hub) *WebSocketObserver {
	return &WebSocketObserver{hub: hub, name: "WebSocketObserver"}
}

// OnEvent broadcasts the event's payload.
func (o *WebSocketObserver) OnEvent(event events.Event) error {
	if o.hub == nil {
		return nil
	}
	o.hub.BroadcastEvent(Event{Type: event.Type, Data: event.Data})
	return nil
}

// GetName returns the observer's name.
func (o *WebSocketObserver) GetName() string {
	return o.name
}

// ShouldHandle accepts every event; viewers filter by subscription.
func (o *WebSocketObserver) ShouldHandle(string) bool {
	return true
}
