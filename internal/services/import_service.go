package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ligacli/internal/config"
	"ligacli/internal/importer"
	"ligacli/internal/infrastructure"
)

// ImportService owns the live wizard sessions. Sessions are in-memory only;
// a restart discards them. An idle session is reaped by the janitor after
// the configured TTL.
type ImportService struct {
	mu      sync.RWMutex
	wizards map[string]*importer.Wizard

	cfg         config.ImportConfig
	registry    *importer.KindRegistry
	parser      *importer.Parser
	executor    *importer.Executor
	reporter    importer.ProgressReporter
	metrics     *infrastructure.ImportMetrics
	broadcaster Broadcaster
	logger      *slog.Logger

	janitorQuit chan struct{}
	janitorOnce sync.Once
}

// NewImportService creates the service and its shared pipeline components.
func NewImportService(cfg config.ImportConfig, reporter importer.ProgressReporter, logger *slog.Logger) (*ImportService, error) {
	if cfg.RemoteBaseURL == "" {
		return nil, fmt.Errorf("remote base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = importer.NopReporter
	}

	registry := importer.DefaultRegistry()

	executor := importer.NewExecutor(cfg.RemoteBaseURL, registry, logger)
	if cfg.RemoteTimeout > 0 {
		executor.SetClient(&http.Client{Timeout: cfg.RemoteTimeout})
	}

	return &ImportService{
		wizards:     make(map[string]*importer.Wizard),
		cfg:         cfg,
		registry:    registry,
		parser:      importer.NewParser(logger),
		executor:    executor,
		reporter:    reporter,
		logger:      logger.With(slog.String("component", "services.import")),
		janitorQuit: make(chan struct{}),
	}, nil
}

// SetMetrics attaches the metric instruments. Optional; a nil metrics set
// disables recording.
func (s *ImportService) SetMetrics(metrics *infrastructure.ImportMetrics) {
	s.metrics = metrics
}

// Broadcaster pushes messages to connected clients. Satisfied by the
// websocket hub.
type Broadcaster interface {
	Broadcast(messageType string, data interface{})
}

// SetBroadcaster attaches the client-facing broadcaster. Optional.
func (s *ImportService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// NotifyStage announces a wizard stage transition to connected clients.
func (s *ImportService) NotifyStage(sessionID, stage string, status importer.SessionStatus) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast("import:stage", map[string]interface{}{
		"session_id": sessionID,
		"stage":      stage,
		"status":     status,
	})
}

// Executor exposes the shared executor, used by tests to swap the HTTP client.
func (s *ImportService) Executor() *importer.Executor {
	return s.executor
}

// Registry exposes the kind registry backing this service.
func (s *ImportService) Registry() *importer.KindRegistry {
	return s.registry
}

// CreateSession starts a new wizard and returns its session ID.
func (s *ImportService) CreateSession(ctx context.Context) (string, *importer.Wizard) {
	wizard := importer.NewWizard(s.registry, s.parser, s.executor, s.reporter, s.logger)
	id := wizard.Session().ID()

	s.mu.Lock()
	s.wizards[id] = wizard
	count := len(s.wizards)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionsCreated.Add(ctx, 1)
		s.metrics.ActiveSessions.Add(ctx, 1)
	}
	s.logger.InfoContext(ctx, "import session created",
		slog.String("session_id", id),
		slog.Int("active_sessions", count))
	return id, wizard
}

// Wizard looks up a live wizard by session ID.
func (s *ImportService) Wizard(id string) (*importer.Wizard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wizard, ok := s.wizards[id]
	return wizard, ok
}

// DropSession removes a session, whatever its state.
func (s *ImportService) DropSession(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, ok := s.wizards[id]
	delete(s.wizards, id)
	s.mu.Unlock()

	if ok {
		if s.metrics != nil {
			s.metrics.ActiveSessions.Add(ctx, -1)
		}
		s.logger.InfoContext(ctx, "import session dropped", slog.String("session_id", id))
	}
	return ok
}

// SessionCount returns the number of live sessions.
func (s *ImportService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wizards)
}

// RecordUpload feeds one accepted upload into the metric instruments.
func (s *ImportService) RecordUpload(ctx context.Context, kind importer.Kind, size int64, skipped int) {
	infrastructure.RecordUpload(ctx, s.metrics, string(kind), size, skipped)
}

// RecordValidation feeds one validation run into the metric instruments.
func (s *ImportService) RecordValidation(ctx context.Context, kind importer.Kind, result *importer.ValidationResult) {
	if result == nil {
		return
	}
	infrastructure.RecordValidationRun(ctx, s.metrics, string(kind),
		result.Stats.Total, result.Stats.Errors, result.Stats.Warnings)
}

// RecordExecution feeds one remote import run into the metric instruments.
func (s *ImportService) RecordExecution(ctx context.Context, kind importer.Kind, duration time.Duration, created int, err error) {
	infrastructure.RecordImportExecution(ctx, s.metrics, string(kind), duration, created, err)
}

// MaxUploadBytes returns the configured upload size limit.
func (s *ImportService) MaxUploadBytes() int64 {
	return s.cfg.MaxUploadBytes
}

// StartJanitor launches the background reaper for idle sessions. Safe to
// call once; later calls are no-ops.
func (s *ImportService) StartJanitor(ctx context.Context) {
	s.janitorOnce.Do(func() {
		go s.runJanitor(ctx)
	})
}

// StopJanitor stops the background reaper.
func (s *ImportService) StopJanitor() {
	select {
	case <-s.janitorQuit:
	default:
		close(s.janitorQuit)
	}
}

func (s *ImportService) runJanitor(ctx context.Context) {
	interval := s.cfg.SessionTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.janitorQuit:
			return
		case <-ticker.C:
			s.reapIdle(ctx)
		}
	}
}

func (s *ImportService) reapIdle(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	var expired []string
	for id, wizard := range s.wizards {
		if wizard.Session().LastActive().Before(cutoff) {
			expired = append(expired, id)
			delete(s.wizards, id)
		}
	}
	remaining := len(s.wizards)
	s.mu.Unlock()

	if s.metrics != nil && len(expired) > 0 {
		s.metrics.SessionsExpired.Add(ctx, int64(len(expired)))
		s.metrics.ActiveSessions.Add(ctx, -int64(len(expired)))
	}
	for _, id := range expired {
		s.logger.InfoContext(ctx, "idle import session expired",
			slog.String("session_id", id))
	}
	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "session janitor pass complete",
			slog.Int("expired", len(expired)),
			slog.Int("remaining", remaining))
	}
}
