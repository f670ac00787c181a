package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/spell-bingo/internal/api/websocket"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	signal chan string
}

func newRecorder() *recorder {
	return &recorder{signal: make(chan string, 32)}
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.signal <- ev.Type
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) waitFor(t *testing.T, eventType string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-r.signal:
			if got == eventType {
				return
			}
		case <-timeout:
			t.Fatalf("Timed out waiting for %s, got %v", eventType, r.types())
		}
	}
}

func startHub(t *testing.T) (*websocket.Hub, string) {
	t.Helper()
	hub := websocket.NewHub(websocket.Options{})
	go hub.Run()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func runClient(t *testing.T, client *Client) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestNewClient(t *testing.T) {
	client := NewClient(Options{URL: "ws://localhost:9380/ws"})

	if client.URL() != "ws://localhost:9380/ws" {
		t.Errorf("Expected URL ws://localhost:9380/ws, got %s", client.URL())
	}
	if client.opts.Dialer == nil {
		t.Error("Expected a default dialer")
	}
	if client.IsConnected() {
		t.Error("Expected a new client to be disconnected")
	}
}

func TestClient_WritesRequireConnection(t *testing.T) {
	client := NewClient(Options{URL: "ws://localhost:1/ws"})

	if err := client.SendPing(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if err := client.Subscribe([]string{"replay:"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestClient_ReceivesBroadcasts(t *testing.T) {
	hub, url := startHub(t)
	client := NewClient(Options{URL: url})
	rec := newRecorder()
	client.On("*", rec.handle)

	var progress []Event
	var mu sync.Mutex
	client.On("replay:", func(ev Event) {
		mu.Lock()
		progress = append(progress, ev)
		mu.Unlock()
	})

	runClient(t, client)
	rec.waitFor(t, "hub:connected")
	assert.True(t, client.IsConnected())

	require.True(t, hub.BroadcastEvent(websocket.Event{
		Type: "replay:progress",
		Data: map[string]any{"cursor": 3, "phase": "playing"},
	}))
	rec.waitFor(t, "replay:progress")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, progress, 1)
	data, err := DecodeEventData[struct {
		Cursor int    `json:"cursor"`
		Phase  string `json:"phase"`
	}](progress[0])
	require.NoError(t, err)
	assert.Equal(t, 3, data.Cursor)
	assert.Equal(t, "playing", data.Phase)
	assert.False(t, progress[0].Timestamp.IsZero())
}

func TestClient_SubscribesOnConnect(t *testing.T) {
	hub, url := startHub(t)
	client := NewClient(Options{URL: url, Events: []string{"replay:"}})
	rec := newRecorder()
	client.On("*", rec.handle)

	runClient(t, client)
	rec.waitFor(t, "subscription:updated")

	require.True(t, hub.BroadcastEvent(websocket.Event{Type: "cell:changed", Data: map[string]any{}}))
	require.True(t, hub.BroadcastEvent(websocket.Event{Type: "replay:ended", Data: map[string]any{}}))
	rec.waitFor(t, "replay:ended")

	assert.NotContains(t, rec.types(), "cell:changed")
}

func TestClient_Ping(t *testing.T) {
	_, url := startHub(t)
	client := NewClient(Options{URL: url})
	rec := newRecorder()
	client.On("*", rec.handle)

	runClient(t, client)
	rec.waitFor(t, "hub:connected")

	require.NoError(t, client.SendPing())
	rec.waitFor(t, "pong")
}

func TestClient_RunStopsOnCancel(t *testing.T) {
	_, url := startHub(t)
	client := NewClient(Options{URL: url, ReconnectDelay: time.Second})
	rec := newRecorder()
	client.On("hub:connected", rec.handle)

	cancel, done := runClient(t, client)
	rec.waitFor(t, "hub:connected")
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Run to return after cancel")
	}
	assert.False(t, client.IsConnected())
}

func TestClient_RunReturnsDialErrorWithoutReconnect(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	client := NewClient(Options{URL: url})
	err := client.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

func TestDecodeEventData(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	tests := []struct {
		name     string
		data     string
		expected payload
		wantErr  bool
	}{
		{name: "valid data", data: `{"name":"test","count":42}`, expected: payload{Name: "test", Count: 42}},
		{name: "empty data", data: ``, expected: payload{}},
		{name: "partial data", data: `{"name":"partial"}`, expected: payload{Name: "partial"}},
		{name: "extra fields ignored", data: `{"name":"x","count":1,"extra":true}`, expected: payload{Name: "x", Count: 1}},
		{name: "wrong type", data: `{"count":"many"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEventData[payload](Event{Type: "test", Data: json.RawMessage(tt.data)})
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}
