package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ramonehamilton/spell-bingo/internal/api/handlers"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	systemHandler := handlers.NewSystemHandler(s.services.Health)
	s.router.Get("/health", systemHandler.Health)

	// WebSocket endpoint (no timeout or content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.config.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.config.RequestTimeout))
		}
		r.Use(jsonContentTypeMiddleware)

		r.Get("/version", systemHandler.GetVersion)

		if s.services.Games != nil {
			gameHandler := handlers.NewGameHandler(s.services.Games, s.config.Location)
			r.Route("/games", func(r chi.Router) {
				r.Get("/", gameHandler.ListGames)
				r.Post("/", gameHandler.CreateGame)
				r.Get("/{gameID}", gameHandler.GetGame)
				r.Delete("/{gameID}", gameHandler.DeleteGame)
				r.Get("/{gameID}/analytics", gameHandler.GetAnalytics)
				r.Get("/{gameID}/report", gameHandler.GetReport)
				r.Get("/{gameID}/chart", gameHandler.GetChart)
			})

			playerHandler := handlers.NewPlayerHandler(gameHandler)
			r.Route("/players/{name}", func(r chi.Router) {
				r.Get("/record", playerHandler.GetRecord)
				r.Get("/completions", playerHandler.GetCompletions)
			})
		}

		if s.services.Replays != nil {
			replayHandler := handlers.NewReplayHandler(s.services.Replays)
			r.Route("/replay", func(r chi.Router) {
				r.Post("/{gameID}/start", replayHandler.Start)
				r.Post("/pause", replayHandler.Pause)
				r.Post("/resume", replayHandler.Resume)
				r.Post("/seek", replayHandler.Seek)
				r.Post("/speed", replayHandler.SetSpeed)
				r.Post("/end", replayHandler.End)
				r.Get("/status", replayHandler.GetStatus)
				r.Get("/view", replayHandler.GetView)
			})
		}
	})
}
