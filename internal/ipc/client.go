// Package ipc is a viewer client for the server's websocket event stream.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/logger"
)

// ErrNotConnected is returned when writing without a connection.
var ErrNotConnected = errors.New("not connected")

// Event is one frame received from the server.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventHandler handles one event. Handlers run on the read goroutine in
// arrival order and must not block.
type EventHandler func(Event)

// Options configures a Client.
type Options struct {
	URL string

	// Events to subscribe to after connecting. Empty receives everything.
	// An entry ending in ":" selects a family, e.g. "replay:".
	Events []string

	// Delay between reconnect attempts. Zero makes Run return on the first
	// disconnect.
	ReconnectDelay time.Duration

	// Dialer, websocket.DefaultDialer when nil.
	Dialer *websocket.Dialer
}

// Client receives events from the server's /ws endpoint.
type Client struct {
	opts Options
	log  *logrus.Entry

	mu      sync.Mutex // guards conn and writes
	conn    *websocket.Conn
	up      atomic.Bool
	handlMu sync.RWMutex
	handler map[string][]EventHandler
}

// NewClient creates a client. Call Run to connect.
func NewClient(opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{
		opts:    opts,
		log:     logger.Component("ipc").WithField("url", opts.URL),
		handler: make(map[string][]EventHandler),
	}
}

// On registers a handler for an event type, a family such as "replay:", or
// "*" for every event.
func (c *Client) On(eventType string, handler EventHandler) {
	c.handlMu.Lock()
	defer c.handlMu.Unlock()
	c.handler[eventType] = append(c.handler[eventType], handler)
}

// IsConnected reports whether the client currently holds a connection.
func (c *Client) IsConnected() bool {
	return c.up.Load()
}

// URL returns the server URL.
func (c *Client) URL() string {
	return c.opts.URL
}

// Run connects and dispatches events until ctx is cancelled. With a
// reconnect delay it reconnects after failures; otherwise it returns the
// first connection or read error.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.opts.ReconnectDelay <= 0 {
			return err
		}

		c.log.WithError(err).WithField("delay", c.opts.ReconnectDelay).Warn("connection lost, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.ReconnectDelay):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer c.disconnect()
	stop := context.AfterFunc(ctx, c.disconnect)
	defer stop()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		c.dispatch(ev)
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.up.Store(true)
	c.log.Info("connected")

	if len(c.opts.Events) > 0 {
		if err := c.Subscribe(c.opts.Events); err != nil {
			c.disconnect()
			return nil, err
		}
	}
	return conn, nil
}

func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.log.WithError(err).Debug("error closing connection")
	}
	c.conn = nil
	c.up.Store(false)
}

// Subscribe replaces the server-side subscription with eventTypes.
func (c *Client) Subscribe(eventTypes []string) error {
	return c.write(map[string]any{"type": "subscribe", "events": eventTypes})
}

// Unsubscribe removes eventTypes from the subscription.
func (c *Client) Unsubscribe(eventTypes []string) error {
	return c.write(map[string]any{"type": "unsubscribe", "events": eventTypes})
}

// SendPing asks the server for a "pong" event.
func (c *Client) SendPing() error {
	return c.write(map[string]any{"type": "ping"})
}

func (c *Client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) dispatch(ev Event) {
	c.handlMu.RLock()
	handlers := append([]EventHandler(nil), c.handler[ev.Type]...)
	if i := strings.IndexByte(ev.Type, ':'); i >= 0 {
		handlers = append(handlers, c.handler[ev.Type[:i+1]]...)
	}
	handlers = append(handlers, c.handler["*"]...)
	c.handlMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// DecodeEventData unmarshals an event payload into T.
func DecodeEventData[T any](ev Event) (T, error) {
	var out T
	if len(ev.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(ev.Data, &out); err != nil {
		return out, fmt.Errorf("decode %s data: %w", ev.Type, err)
	}
	return out, nil
}
