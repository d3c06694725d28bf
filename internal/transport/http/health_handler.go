package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"ligacli/internal/services"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	service   *services.ImportService
	logger    *slog.Logger
	startedAt time.Time
	version   string
}

// NewHealthHandler creates the handler.
func NewHealthHandler(service *services.ImportService, version string, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		service:   service,
		logger:    logger.With(slog.String("handler", "health")),
		startedAt: time.Now(),
		version:   version,
	}
}

// Routes returns the router for health probes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Liveness)
	r.Get("/ready", h.Readiness)
	return r
}

// Liveness reports that the process is up.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).String(),
	})
}

// Readiness reports that the service can accept import sessions.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":          "ok",
		"active_sessions": h.service.SessionCount(),
	})
}
