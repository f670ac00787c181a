package websocket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/spell-bingo/internal/events"
)

func TestNewWebSocketObserver(t *testing.T) {
	hub := NewHub(Options{})
	observer := NewWebSocketObserver(hub)

	if observer.hub != hub {
		t.Error("Observer hub reference is incorrect")
	}
	if name := observer.GetName(); name != "WebSocketObserver" {
		t.Errorf("Expected 'WebSocketObserver', got '%s'", name)
	}
	for _, typ := range []string{events.TypeCellChanged, events.TypeGameArchived, events.TypeReplayProgress} {
		if !observer.ShouldHandle(typ) {
			t.Errorf("Expected observer to handle %s", typ)
		}
	}
}

func TestWebSocketObserver_NilHub(t *testing.T) {
	observer := NewWebSocketObserver(nil)
	assert.NoError(t, observer.OnEvent(events.Event{Type: events.TypeGameStarted}))
}

func TestWebSocketObserver_ForwardsThroughDispatcher(t *testing.T) {
	hub, server := startHub(t, Options{})
	conn := dial(t, server, nil)
	readEvent(t, conn)
	waitForClients(t, hub, 1)

	dispatcher := events.NewEventDispatcher()
	dispatcher.Register(NewWebSocketObserver(hub))
	dispatcher.Dispatch(events.NewEvent(context.Background(), events.TypeGameArchived, events.GameArchivedEvent{ID: "g-1"}))

	ev := readEvent(t, conn)
	assert.Equal(t, events.TypeGameArchived, ev.Type)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "g-1", data["id"])
}
