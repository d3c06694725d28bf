package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ligacli/internal/config"
	"ligacli/internal/infrastructure"
	custommw "ligacli/internal/middleware"
	"ligacli/internal/services"
	"ligacli/internal/websocket"
)

// RouterDeps bundles what the router needs.
type RouterDeps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Service    *services.ImportService
	Hub        *websocket.Hub
	Metrics    http.Handler // Prometheus scrape endpoint, nil when disabled
	AppMetrics *infrastructure.ImportMetrics
	Version    string
}

// NewRouter assembles the full HTTP surface: the import wizard API,
// template downloads, the progress WebSocket and the operational endpoints.
func NewRouter(deps RouterDeps) chi.Router {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	r := chi.NewRouter()

	// Middleware order matters: request ID first, so everything downstream
	// logs with a trace_id.
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StructuredLogger(logger))
	r.Use(custommw.Recoverer(logger))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.Metrics(deps.AppMetrics))
	r.Use(custommw.Compress(5))

	if cfg.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins: cfg.Security.AllowedOrigins,
			Logger:         logger,
		}))
	}

	if cfg.Security.RateLimit.Enabled {
		limiter := custommw.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst, logger)
		r.Use(limiter.Handler)
	}

	r.Mount("/health", NewHealthHandler(deps.Service, deps.Version, logger).Routes())

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Mount("/import", NewImportHandler(deps.Service, logger).Routes())
		r.Mount("/templates", NewTemplateHandler(deps.Service.Registry(), logger).Routes())
		r.Mount("/scoring", NewScoringHandler(logger).Routes())
	})

	if deps.Hub != nil {
		r.Handle("/ws", NewWSHandler(deps.Hub, cfg.WebSocket, cfg.Security.AllowedOrigins, logger))
	}

	return r
}
