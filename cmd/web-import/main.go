package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ligacli/internal/config"
	"ligacli/internal/infrastructure"
	"ligacli/internal/importer"
	"ligacli/internal/services"
	transport "ligacli/internal/transport/http"
	"ligacli/internal/websocket"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("observability shutdown failed", slog.String("error", err.Error()))
		}
	}()

	hub := websocket.NewHub(logger)
	hub.Start()
	defer hub.Shutdown()

	// Executor milestones fan out to every connected client; the final
	// milestone gets its own message type so clients can stop spinners.
	reporter := importer.ReporterFunc(func(p importer.Progress) {
		if p.Milestone == importer.MilestoneDone {
			hub.Broadcast(websocket.TypeImportComplete, p)
			return
		}
		hub.Broadcast(websocket.TypeImportProgress, p)
	})

	service, err := services.NewImportService(cfg.Import, reporter, logger)
	if err != nil {
		return fmt.Errorf("create import service: %w", err)
	}
	metrics, err := infrastructure.CreateImportMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}
	service.SetMetrics(metrics)
	service.SetBroadcaster(hub)
	service.StartJanitor(ctx)
	defer service.StopJanitor()

	router := transport.NewRouter(transport.RouterDeps{
		Config:     cfg,
		Logger:     logger,
		Service:    service,
		Hub:        hub,
		Metrics:    providers.PrometheusHTTP,
		AppMetrics: metrics,
		Version:    version,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.Int("port", cfg.Server.Port),
			slog.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
