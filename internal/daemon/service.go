// Package daemon runs the long-lived side of the archive: the report import
// watcher, archived game replays and, when a session channel is configured,
// the live session whose finished games are archived automatically.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/api/websocket"
	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/channel"
	"github.com/ramonehamilton/spell-bingo/internal/events"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
	"github.com/ramonehamilton/spell-bingo/internal/replay"
	"github.com/ramonehamilton/spell-bingo/internal/session"
	"github.com/ramonehamilton/spell-bingo/internal/storage"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
	"github.com/ramonehamilton/spell-bingo/internal/version"
)

// Service represents the daemon service that runs continuously.
type Service struct {
	config     *Config
	storage    *storage.Service
	dispatcher *events.EventDispatcher
	hub        *websocket.Hub
	importer   *Importer
	replays    *ReplayController
	log        *logrus.Entry

	session *session.Session
	channel *channel.Client

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time
	started   bool

	liveArchived atomic.Int64
	liveErrors   atomic.Int64
}

// New creates a new daemon service. hub may be nil when no viewers are
// served.
func New(config *Config, store *storage.Service, hub *websocket.Hub) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	dispatcher := events.NewEventDispatcher()
	dispatcher.Register(events.NewLoggingObserver(logger.Log.IsLevelEnabled(logrus.TraceLevel)))
	if hub != nil {
		dispatcher.Register(websocket.NewWebSocketObserver(hub))
	}

	replayer := replay.New(replay.Options{TickInterval: config.TickInterval})

	return &Service{
		config:     config,
		storage:    store,
		dispatcher: dispatcher,
		hub:        hub,
		importer:   NewImporter(config.ImportDir, config.ImportDebounce, store, dispatcher),
		replays:    NewReplayController(store, replayer, dispatcher, config.DefaultSpeed),
		log:        logger.Component("daemon"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Dispatcher returns the event dispatcher every component publishes to.
func (s *Service) Dispatcher() *events.EventDispatcher { return s.dispatcher }

// Importer returns the report importer.
func (s *Service) Importer() *Importer { return s.importer }

// Replays returns the replay controller.
func (s *Service) Replays() *ReplayController { return s.replays }

// Session returns the live session, or nil when no channel is configured.
func (s *Service) Session() *session.Session { return s.session }

// Channel returns the session channel client, or nil.
func (s *Service) Channel() *channel.Client { return s.channel }

// Start imports pending reports, starts the watcher and attaches the live
// session.
func (s *Service) Start() error {
	if s.started {
		return errors.New("daemon already started")
	}
	s.startTime = time.Now()
	s.log.WithField("version", version.GetVersion()).Info("starting daemon")

	if s.config.ImportDir != "" {
		if s.config.WatchImports {
			if err := s.importer.Start(s.ctx); err != nil {
				return fmt.Errorf("failed to start import watcher: %w", err)
			}
		}
		n, err := s.importer.Scan(s.ctx)
		if err != nil {
			s.log.WithError(err).Warn("initial import scan failed")
		} else if n > 0 {
			s.log.WithField("archived", n).Info("imported pending reports")
		}
	}

	if s.config.Channel.URL != "" {
		s.startLive()
	}

	if s.config.StatusInterval > 0 {
		s.wg.Add(1)
		go s.sendPeriodicStatus()
	}

	s.started = true
	s.log.Info("daemon started")
	return nil
}

// Stop ends the live session, the watcher and any replay.
func (s *Service) Stop() error {
	s.log.Info("stopping daemon")
	s.cancel()

	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.log.WithError(err).Debug("error closing session channel")
		}
	}
	if st := s.replays.Status(); st.Phase != replay.Idle {
		_, _ = s.replays.End()
	}
	s.importer.Wait()
	s.wg.Wait()

	s.log.Info("daemon stopped")
	return nil
}

func (s *Service) startLive() {
	cfg := s.config.Channel
	s.session = session.New(session.Options{Players: cfg.Players})

	s.session.OnChange(func(_ *session.State, ch session.Change) {
		s.dispatch(events.TypeCellChanged, events.NewCellChangedEvent(ch, false))
	})
	s.session.OnGameStart(func(room bingo.RoomConfig, players []string) {
		s.dispatch(events.TypeGameStarted, events.GameStartedEvent{RoomID: room.RID, Players: players})
	})
	s.session.OnGameEnd(func(g bingo.GameLogData) {
		s.dispatch(events.TypeGameEnded, events.GameEndedEvent{
			RoomID:  g.RoomConfig.RID,
			Players: g.Players,
			Score:   g.Score,
			Actions: len(g.Actions),
		})
		s.wg.Add(1)
		go s.archiveLive(g)
	})

	s.channel = channel.New(channel.Config{
		URL:              cfg.URL,
		Players:          cfg.Players,
		CommandRate:      cfg.CommandRate,
		CommandBurst:     cfg.CommandBurst,
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReconnectDelay:   cfg.ReconnectDelay,
	}, s.session)
	s.channel.OnStatus(func(connected bool, err error) {
		ev := events.ChannelStatusEvent{Connected: connected, URL: cfg.URL}
		if err != nil {
			ev.Error = err.Error()
		}
		s.dispatch(events.TypeChannelStatus, ev)
	})

	s.replays.SetContextSource(s.liveContext)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.session.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.channel.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.WithError(err).Warn("session channel stopped")
		}
	}()
	s.log.WithField("url", cfg.URL).Info("live session attached")
}

// archiveLive stores a game that just ended on the live session.
func (s *Service) archiveLive(g bingo.GameLogData) {
	defer s.wg.Done()

	if len(g.Actions) == 0 {
		s.log.WithField("rid", g.RoomConfig.RID).Debug("skipping empty game")
		return
	}
	rec, err := s.storage.Archive(context.Background(), &g, models.SourceLive)
	switch {
	case errors.Is(err, storage.ErrDuplicateGame):
		return
	case err != nil:
		s.liveErrors.Add(1)
		s.log.WithError(err).WithField("rid", g.RoomConfig.RID).Error("failed to archive live game")
		return
	}
	s.liveArchived.Add(1)
	s.dispatch(events.TypeGameArchived, events.GameArchivedEvent{
		ID:      rec.ID,
		Players: []string{rec.PlayerA, rec.PlayerB},
		Source:  string(rec.Source),
	})
}

// liveContext snapshots the live session for the replayer to restore.
func (s *Service) liveContext(ctx context.Context) (replay.Context, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	data, err := s.session.GameLog(ctx)
	if err != nil {
		return replay.Context{}, err
	}
	st, err := s.session.Snapshot(ctx)
	if err != nil {
		return replay.Context{}, err
	}
	return replay.Context{Room: data.RoomConfig, Players: data.Players, State: st}, nil
}

func (s *Service) dispatch(eventType string, data any) {
	s.dispatcher.Dispatch(events.NewEvent(s.ctx, eventType, data))
}

// sendPeriodicStatus publishes daemon:status heartbeats.
func (s *Service) sendPeriodicStatus() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(events.TypeDaemonStatus, events.DaemonStatusEvent{
				Status:   "running",
				Uptime:   s.GetUptime(),
				Clients:  s.GetClientCount(),
				Archived: s.importer.Stats().Archived + s.liveArchived.Load(),
				Live:     s.channel != nil && s.channel.IsConnected(),
			})
		}
	}
}

// GetUptime returns the daemon uptime in seconds.
func (s *Service) GetUptime() float64 {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime).Seconds()
}

// GetClientCount returns the number of connected viewers.
func (s *Service) GetClientCount() int {
	if s.hub == nil {
		return 0
	}
	return s.hub.ClientCount()
}

// HealthStatus represents the health status of the daemon.
type HealthStatus struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Uptime    float64         `json:"uptime"`
	Database  DatabaseHealth  `json:"database"`
	Importer  ImporterHealth  `json:"importer"`
	WebSocket WebSocketHealth `json:"websocket"`
	Channel   ChannelHealth   `json:"channel"`
	Replay    ReplayStatus    `json:"replay"`
}

// DatabaseHealth represents database health status.
type DatabaseHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ImporterHealth represents import watcher status.
type ImporterHealth struct {
	Status string      `json:"status"`
	Dir    string      `json:"dir,omitempty"`
	Stats  ImportStats `json:"stats"`
}

// WebSocketHealth represents viewer hub status.
type WebSocketHealth struct {
	Status           string `json:"status"`
	ConnectedClients int    `json:"connectedClients"`
}

// ChannelHealth represents live session channel status.
type ChannelHealth struct {
	Status       string `json:"status"`
	URL          string `json:"url,omitempty"`
	LiveArchived int64  `json:"liveArchived"`
	LiveErrors   int64  `json:"liveErrors"`
}

// GetHealth returns the current health status of the daemon.
func (s *Service) GetHealth() *HealthStatus {
	status := &HealthStatus{
		Status:   "healthy",
		Version:  version.GetVersion(),
		Uptime:   s.GetUptime(),
		Database: DatabaseHealth{Status: "ok"},
		Importer: ImporterHealth{
			Status: "disabled",
			Dir:    s.config.ImportDir,
			Stats:  s.importer.Stats(),
		},
		WebSocket: WebSocketHealth{Status: "disabled"},
		Channel: ChannelHealth{
			Status:       "disabled",
			URL:          s.config.Channel.URL,
			LiveArchived: s.liveArchived.Load(),
			LiveErrors:   s.liveErrors.Load(),
		},
		Replay: s.replays.Status(),
	}

	if err := s.storage.Ping(); err != nil {
		status.Database = DatabaseHealth{Status: "error", Error: err.Error()}
		status.Status = "unhealthy"
	}
	if s.config.ImportDir != "" {
		status.Importer.Status = "ok"
	}
	if s.hub != nil {
		status.WebSocket = WebSocketHealth{Status: "ok", ConnectedClients: s.hub.ClientCount()}
	}
	if s.channel != nil {
		if s.channel.IsConnected() {
			status.Channel.Status = "connected"
		} else {
			status.Channel.Status = "disconnected"
			if status.Status == "healthy" {
				status.Status = "degraded"
			}
		}
	}
	return status
}
