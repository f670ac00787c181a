// Package api serves the game archive, replay control and the viewer
// websocket over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/ramonehamilton/spell-bingo/internal/api/handlers"
	"github.com/ramonehamilton/spell-bingo/internal/api/websocket"
	"github.com/ramonehamilton/spell-bingo/internal/config"
	"github.com/ramonehamilton/spell-bingo/internal/logger"
)

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	listener   net.Listener
	config     *Config
	log        *logrus.Entry

	// WebSocket hub for real-time events
	wsHub *websocket.Hub

	services Services
}

// Config holds configuration for the API server.
type Config struct {
	Addr           string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Location       *time.Location // reports and date filters, UTC when nil
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:           "127.0.0.1:9380",
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		RequestTimeout: 60 * time.Second,
	}
}

// FromAppConfig derives the server configuration from the application
// configuration.
func FromAppConfig(cfg *config.Config) (*Config, error) {
	out := DefaultConfig()
	if cfg.Server.Addr != "" {
		out.Addr = cfg.Server.Addr
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		out.AllowedOrigins = cfg.Server.AllowedOrigins
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	out.Location = loc
	return out, nil
}

// Services holds what the handlers serve. A nil member leaves its routes
// unmounted.
type Services struct {
	Games   handlers.GameStore
	Replays handlers.ReplayControl
	Health  handlers.HealthSource
}

// NewServer creates a new API server. hub may be nil, in which case the
// server creates its own.
func NewServer(cfg *Config, hub *websocket.Hub, services Services) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if hub == nil {
		hub = websocket.NewHub(websocket.Options{AllowedOrigins: cfg.AllowedOrigins})
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		log:      logger.Component("api"),
		wsHub:    hub,
		services: services,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures the middleware stack shared by every route.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// requestLogger logs each request through logrus once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			entry := s.log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
				"request":  middleware.GetReqID(r.Context()),
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("request failed")
			} else {
				entry.Debug("request served")
			}
		}()
		next.ServeHTTP(ww, r)
	})
}

// jsonContentTypeMiddleware enforces application/json content-type for requests with bodies.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.ContentLength != 0 {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in a goroutine. The
// websocket hub starts with it.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln

	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.log.WithField("addr", ln.Addr().String()).Info("API server starting")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("API server error")
		}
	}()

	return nil
}

// Addr returns the address the server listens on, or the configured one
// before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Shutdown gracefully shuts down the API server and disconnects viewers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}

	s.log.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}

// WebSocketHub returns the WebSocket hub for external integration.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
