package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"arbscan/internal/config"
	"arbscan/internal/scan"
	"arbscan/internal/stream"
)

// Server runs the HTTP/WebSocket API for the dashboard.
type Server struct {
	cfg      config.DashboardConfig
	fullCfg  config.Config
	hub      *Hub
	handlers *Handlers
	events   <-chan stream.Event
	server   *http.Server
	logger   *slog.Logger
}

// NewServer wires the routes. events may be nil when streaming is disabled;
// the REST surface still serves scan snapshots.
func NewServer(
	fullCfg config.Config,
	holder *scan.Holder,
	events <-chan stream.Event,
	logger *slog.Logger,
) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(holder, fullCfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/opportunities", handlers.HandleOpportunities)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	mux.Handle("/", http.FileServer(http.Dir("web")))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", fullCfg.Dashboard.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      fullCfg.Dashboard,
		fullCfg:  fullCfg,
		hub:      hub,
		handlers: handlers,
		events:   events,
		server:   server,
		logger:   logger.With("component", "api_server"),
	}
}

// Start runs the hub, the event consumer, and the HTTP listener. Blocks
// until the server is shut down.
func (s *Server) Start() error {
	go s.hub.Run()
	if s.events != nil {
		go s.consumeEvents()
	}

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// consumeEvents relays aggregator emissions to connected clients.
func (s *Server) consumeEvents() {
	for ev := range s.events {
		s.hub.Broadcast(BuildEvent(ev, s.fullCfg))
	}
}
