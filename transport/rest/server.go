// Package rest is the HTTP control surface a board renderer drives the session through.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	logger *slog.Logger
	server *http.Server
}

// NewRouter wires the control routes. A nil matches answers the journal routes with 404.
func NewRouter(logger *slog.Logger, session gameSession, matches matchStore, defaultPort func() int) http.Handler {
	h := &handlers{
		logger:      logger,
		session:     session,
		matches:     matches,
		defaultPort: defaultPort,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/ping", pingHandler)
	router.Get("/state", h.state)
	router.Get("/events", h.events)

	router.Post("/connect", h.connect)
	router.Post("/cells/{cell}", h.selectCell)
	router.Post("/turn/finish", h.finishTurn)
	router.Post("/surrender", h.surrender)
	router.Post("/chat", h.chat)
	router.Post("/cursor", h.cursor)

	router.Get("/matches", h.listMatches)
	router.Get("/matches/{id}", h.getMatch)
	router.Delete("/matches/{id}", h.deleteMatch)

	return router
}

func NewServer(logger *slog.Logger, port string, handler http.Handler) *Server {
	return &Server{
		logger: logger.With("component", "rest"),
		server: &http.Server{
			Addr:        ":" + port,
			Handler:     handler,
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 30 * time.Second,
		},
	}
}

// Start serves until Shutdown is called.
func (that *Server) Start() error {
	that.logger.Info("starting HTTP server", "addr", that.server.Addr)

	if err := that.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	if err := that.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}
