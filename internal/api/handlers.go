package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"arbscan/internal/config"
	"arbscan/internal/scan"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	holder   *scan.Holder
	cfg      config.Config
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHandlers(holder *scan.Holder, cfg config.Config, hub *Hub, logger *slog.Logger) *Handlers {
	allowed := make(map[string]bool, len(cfg.Dashboard.AllowedOrigins))
	for _, o := range cfg.Dashboard.AllowedOrigins {
		allowed[o] = true
	}

	return &Handlers{
		holder: holder,
		cfg:    cfg,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Empty list means local development: allow everything.
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		logger: logger.With("component", "api_handlers"),
	}
}

// HandleHealth reports liveness and snapshot freshness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	snap, fresh := h.holder.Get()
	status := map[string]any{"status": "ok", "fresh": fresh}
	if snap != nil {
		status["last_scan"] = snap.ScannedAt
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// HandleOpportunities returns the last accepted scan as the wire snapshot.
func (h *Handlers) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	snap, fresh := h.holder.Get()
	resp := BuildSnapshot(snap, fresh, h.cfg)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// HandleWebSocket upgrades the connection, registers the client, and sends
// it the current snapshot before live events start flowing.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	snap, fresh := h.holder.Get()
	evt := WireEvent{
		Type: "snapshot",
		Data: BuildSnapshot(snap, fresh, h.cfg),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("marshal initial snapshot", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("initial snapshot dropped, client backlogged")
	}
}
