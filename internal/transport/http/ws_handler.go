package http

import (
	"log/slog"
	"net/http"
	"strings"

	gorilla "github.com/gorilla/websocket"

	"ligacli/internal/config"
	"ligacli/internal/websocket"
)

// WSHandler upgrades HTTP connections and hands them to the hub, which
// broadcasts import progress milestones to every connected client.
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorilla.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates the handler.
func NewWSHandler(hub *websocket.Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		hub:    hub,
		logger: logger.With(slog.String("handler", "websocket")),
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || strings.EqualFold(allowed, origin) {
						return true
					}
				}
				return false
			},
		},
	}
}

// ServeHTTP upgrades the connection and registers it with the hub.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}

	websocket.ServeWS(h.hub, conn)
}
