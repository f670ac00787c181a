package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
	"github.com/ramonehamilton/spell-bingo/internal/session"
)

var (
	ErrNotConnected = errors.New("session channel not connected")
	ErrClosed       = errors.New("session channel closed")
)

// Sink receives decoded pushes. *session.Session satisfies it.
type Sink interface {
	Push(ctx context.Context, p session.Push) error
}

// Config configures a Client.
type Config struct {
	URL              string
	Players          []string // seat names used when push_start_game omits them
	CommandRate      float64  // commands per second, unlimited when <= 0
	CommandBurst     int
	HandshakeTimeout time.Duration
	ReconnectDelay   time.Duration
	RequestTimeout   time.Duration // 10s when zero
}

// StatusFunc observes connection changes.
type StatusFunc func(connected bool, err error)

// Client is a reconnecting websocket client of the session channel. Commands
// are rate limited and wait for the server's reply; pushes are forwarded to
// the sink in arrival order.
type Client struct {
	cfg     Config
	sink    Sink
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	log     *logrus.Entry

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool
	pending  map[int64]chan Message
	onStatus []StatusFunc

	writeMu sync.Mutex
	echo    atomic.Int64
}

// New creates a client forwarding pushes to sink.
func New(cfg Config, sink Sink) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	limit := rate.Inf
	if cfg.CommandRate > 0 {
		limit = rate.Limit(cfg.CommandRate)
	}
	burst := cfg.CommandBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		sink:    sink,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		limiter: rate.NewLimiter(limit, burst),
		log:     logger.Component("channel").WithField("url", cfg.URL),
		pending: make(map[int64]chan Message),
	}
}

// OnStatus registers a connection observer. Register before Run.
func (c *Client) OnStatus(fn StatusFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = append(c.onStatus, fn)
}

// Connect dials the server once.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial session channel: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	listeners := c.onStatus
	c.mu.Unlock()

	c.log.Info("connected to session channel")
	for _, fn := range listeners {
		fn(true, nil)
	}
	return nil
}

// IsConnected reports whether a connection is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run reads frames until ctx is cancelled or Close is called, reconnecting
// after ReconnectDelay whenever the connection drops. After a reconnect it
// resynchronizes the sink with get_all_spells.
func (c *Client) Run(ctx context.Context) error {
	first := true
	for {
		if !c.IsConnected() {
			if !first {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.cfg.ReconnectDelay):
				}
			}
			if err := c.Connect(ctx); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				c.log.WithError(err).Warn("reconnect failed")
				first = false
				continue
			}
			if !first {
				go c.resync(ctx)
			}
		}
		first = false

		err := c.readLoop(ctx)
		if c.isClosed() {
			return nil
		}
		if ctx.Err() != nil {
			c.Close()
			return ctx.Err()
		}
		c.drop(err)
	}
}

func (c *Client) readLoop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			return err
		}
		c.dispatch(ctx, m)
	}
}

func (c *Client) dispatch(ctx context.Context, m Message) {
	if m.Echo != 0 {
		c.mu.Lock()
		ch, ok := c.pending[m.Echo]
		delete(c.pending, m.Echo)
		c.mu.Unlock()
		if ok {
			ch <- m
		}
		return
	}

	p, err := DecodePush(m, c.cfg.Players)
	if err != nil {
		c.log.WithError(err).WithField("action", m.Action).Warn("dropping push")
		return
	}
	if err := c.sink.Push(ctx, p); err != nil {
		c.log.WithError(err).WithField("action", m.Action).Warn("session refused push")
	}
}

func (c *Client) resync(ctx context.Context) {
	if _, err := c.GetAllSpells(ctx); err != nil {
		c.log.WithError(err).Warn("resync after reconnect failed")
	}
}

// drop forgets the current connection and fails every pending request.
func (c *Client) drop(cause error) {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	pending := c.pending
	c.pending = make(map[int64]chan Message)
	listeners := c.onStatus
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	c.log.WithError(cause).Warn("session channel disconnected")
	for _, fn := range listeners {
		fn(false, cause)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close shuts the connection and stops Run.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	pending := c.pending
	c.pending = make(map[int64]chan Message)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return conn.Close()
}

// request sends one command and waits for its reply data.
func (c *Client) request(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	msg := Message{Action: action, Echo: c.echo.Add(1)}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", action, err)
		}
		msg.Data = raw
	}

	reply := make(chan Message, 1)
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.pending[msg.Echo] = reply
	c.mu.Unlock()

	c.writeMu.Lock()
	err := conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(msg.Echo)
		return nil, fmt.Errorf("failed to send %s: %w", action, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()
	select {
	case m, ok := <-reply:
		if !ok {
			return nil, fmt.Errorf("%s: %w", action, ErrNotConnected)
		}
		if m.Code != 0 {
			return nil, &ServerError{Action: action, Code: m.Code, Msg: m.Msg}
		}
		return m.Data, nil
	case <-timer.C:
		c.forget(msg.Echo)
		return nil, fmt.Errorf("%s: %w", action, context.DeadlineExceeded)
	case <-ctx.Done():
		c.forget(msg.Echo)
		return nil, ctx.Err()
	}
}

func (c *Client) forget(echo int64) {
	c.mu.Lock()
	delete(c.pending, echo)
	c.mu.Unlock()
}

// GetAllSpells fetches the full board snapshot and installs it in the sink.
func (c *Client) GetAllSpells(ctx context.Context) (*GameData, error) {
	raw, err := c.request(ctx, ActionGetAllSpells, nil)
	if err != nil {
		return nil, err
	}
	var data GameData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode %s reply: %w", ActionGetAllSpells, err)
		}
	}
	if err := c.sink.Push(ctx, data.Sync()); err != nil {
		return nil, fmt.Errorf("failed to install board snapshot: %w", err)
	}
	return &data, nil
}

// SelectSpell asks to select a cell for the calling player.
func (c *Client) SelectSpell(ctx context.Context, index int) error {
	_, err := c.request(ctx, ActionSelectSpell, map[string]any{"index": index})
	return err
}

// FinishSpell reports a claim attempt. side is set only by the host acting
// for a player.
func (c *Client) FinishSpell(ctx context.Context, index int, success bool, side *bingo.Side) error {
	payload := map[string]any{"index": index, "success": success}
	if side != nil {
		payload["player_index"] = int(*side)
	}
	_, err := c.request(ctx, ActionFinishSpell, payload)
	return err
}

// UpdateSpellStatus asks the server to set a cell's status.
func (c *Client) UpdateSpellStatus(ctx context.Context, index int, status bingo.CellStatus) error {
	_, err := c.request(ctx, ActionUpdateSpellStatus, map[string]any{"index": index, "status": int(status)})
	return err
}

// RefreshSpell asks the server to reroll one cell's spell.
func (c *Client) RefreshSpell(ctx context.Context, board, index int) error {
	_, err := c.request(ctx, ActionRefreshSpell, map[string]any{"board_idx": board, "spell_idx": index})
	return err
}

// StartGame asks the server to start the game.
func (c *Client) StartGame(ctx context.Context) error {
	_, err := c.request(ctx, ActionStartGame, nil)
	return err
}

// StopGame asks the server to stop the game. winner is 0, 1 or -1.
func (c *Client) StopGame(ctx context.Context, winner int) error {
	_, err := c.request(ctx, ActionStopGame, map[string]any{"winner": winner})
	return err
}

// Pause pauses or resumes the game.
func (c *Client) Pause(ctx context.Context, pause bool) error {
	_, err := c.request(ctx, ActionPause, map[string]any{"pause": pause})
	return err
}
