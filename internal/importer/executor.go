package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// detailLimit bounds the per-record detail lists carried in an outcome;
// the remainder is reported as a count.
const detailLimit = 10

// ImportStats are the remote import counters.
type ImportStats struct {
	Created int `json:"created"`
	Errors  int `json:"errors"`
	Total   int `json:"total"`
}

// ImportOutcomeItem is one per-record result, keyed by original row number.
type ImportOutcomeItem struct {
	Row     int    `json:"row"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Points  *int   `json:"points,omitempty"`
}

// ImportOutcome is the normalized result of one remote import run. Read-only
// after creation; once a session holds one, the session is spent.
type ImportOutcome struct {
	Stats         ImportStats         `json:"stats"`
	Successes     []ImportOutcomeItem `json:"successes"`
	Errors        []ImportOutcomeItem `json:"errors"`
	Warnings      []string            `json:"warnings,omitempty"`
	MoreSuccesses int                 `json:"more_successes,omitempty"`
	MoreErrors    int                 `json:"more_errors,omitempty"`
}

// remoteResponse mirrors the remote endpoint's JSON shape exactly.
type remoteResponse struct {
	Resultados struct {
		Estadisticas struct {
			Creados int `json:"creados"`
			Errores int `json:"errores"`
			Total   int `json:"total"`
		} `json:"estadisticas"`
		Exitosos []struct {
			Fila    int    `json:"fila"`
			Resumen string `json:"resumen"`
			Puntos  *int   `json:"puntos,omitempty"`
		} `json:"exitosos"`
		Errores []struct {
			Fila  int    `json:"fila"`
			Error string `json:"error"`
		} `json:"errores"`
		Warnings []string `json:"warnings"`
	} `json:"resultados"`
}

// remoteError mirrors the remote endpoint's error body.
type remoteError struct {
	Error struct {
		Codigo  string `json:"codigo"`
		Mensaje string `json:"mensaje"`
		Campo   string `json:"campo,omitempty"`
	} `json:"error"`
}

// fieldFormatCode is the remote error code for malformed row-level
// identifier fields (e.g. a non-numeric player number).
const fieldFormatCode = "FORMATO_CAMPO"

// Executor submits validated sessions to the remote import endpoint. It is
// not idempotent; the wizard prevents re-invocation for a spent session.
type Executor struct {
	client   *http.Client
	baseURL  string
	registry *KindRegistry
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewExecutor creates an executor against the given remote base URL.
func NewExecutor(baseURL string, registry *KindRegistry, logger *slog.Logger) *Executor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		client:   &http.Client{Timeout: 2 * time.Minute},
		baseURL:  baseURL,
		registry: registry,
		logger:   logger.With(slog.String("component", "importer.executor")),
		tracer:   otel.Tracer("ligacli/importer"),
	}
}

// SetClient replaces the HTTP client, used by tests and for custom timeouts.
func (e *Executor) SetClient(client *http.Client) {
	if client != nil {
		e.client = client
	}
}

// Execute submits the session's original file to the remote endpoint for
// its kind and normalizes the response. Precondition: session.CanImport()
// — the wizard enforces it; a violation here is a caller bug.
func (e *Executor) Execute(ctx context.Context, session *Session, reporter ProgressReporter) (*ImportOutcome, error) {
	if reporter == nil {
		reporter = NopReporter
	}
	if !session.CanImport() {
		return nil, NewStateError("execute", "la sesión no es elegible para importar")
	}
	source := session.Source()
	if source == nil {
		return nil, NewStateError("execute", "la sesión no tiene archivo")
	}
	spec, err := e.registry.Get(session.Kind())
	if err != nil {
		return nil, NewStateError("execute", err.Error())
	}

	ctx, span := e.tracer.Start(ctx, "importer.execute",
		trace.WithAttributes(
			attribute.String("import.kind", string(session.Kind())),
			attribute.String("import.session_id", session.ID()),
			attribute.Int("import.records", len(session.Records())),
		))
	defer span.End()

	for _, m := range executionMilestones {
		reporter.Report(Progress{
			SessionID: session.ID(),
			Kind:      session.Kind(),
			Milestone: m.Milestone,
			Percent:   m.Percent,
			Message:   m.Message,
		})
	}

	outcome, err := e.submit(ctx, spec, session, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("remote import failed",
			slog.String("session_id", session.ID()),
			slog.String("kind", string(session.Kind())),
			slog.String("error", err.Error()))
		return nil, err
	}

	reporter.Report(Progress{
		SessionID: session.ID(),
		Kind:      session.Kind(),
		Milestone: doneMilestone.Milestone,
		Percent:   doneMilestone.Percent,
		Message:   doneMilestone.Message,
	})

	span.SetAttributes(
		attribute.Int("import.created", outcome.Stats.Created),
		attribute.Int("import.errors", outcome.Stats.Errors),
	)
	e.logger.Info("remote import complete",
		slog.String("session_id", session.ID()),
		slog.String("kind", string(session.Kind())),
		slog.Int("created", outcome.Stats.Created),
		slog.Int("errors", outcome.Stats.Errors))

	return outcome, nil
}

func (e *Executor) submit(ctx context.Context, spec *KindSpec, session *Session, source *SourceFile) (*ImportOutcome, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("archivo", source.Name)
	if err != nil {
		return nil, NewExecutionError("no se pudo preparar el archivo", err)
	}
	if _, err := part.Write(source.Data); err != nil {
		return nil, NewExecutionError("no se pudo preparar el archivo", err)
	}
	if err := writer.WriteField("tipo", string(spec.Kind)); err != nil {
		return nil, NewExecutionError("no se pudo preparar la solicitud", err)
	}
	if err := writer.Close(); err != nil {
		return nil, NewExecutionError("no se pudo preparar la solicitud", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+spec.EndpointPath, &body)
	if err != nil {
		return nil, NewExecutionError("no se pudo crear la solicitud", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, NewExecutionError("el servidor de importación no respondió", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, NewExecutionError("no se pudo leer la respuesta del servidor", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, e.classifyRemoteError(resp.StatusCode, payload)
	}

	var remote remoteResponse
	if err := json.Unmarshal(payload, &remote); err != nil {
		return nil, NewExecutionError("respuesta del servidor no reconocida", err)
	}
	return normalizeOutcome(&remote), nil
}

// classifyRemoteError separates the field-format error class, which gets an
// actionable field-specific message, from generic remote failures.
func (e *Executor) classifyRemoteError(status int, payload []byte) error {
	var re remoteError
	if err := json.Unmarshal(payload, &re); err == nil && re.Error.Mensaje != "" {
		if re.Error.Codigo == fieldFormatCode || (status == http.StatusUnprocessableEntity && re.Error.Campo != "") {
			return NewFieldFormatError(re.Error.Campo, re.Error.Mensaje)
		}
		return NewExecutionError(re.Error.Mensaje, nil)
	}
	return NewExecutionError(fmt.Sprintf("el servidor respondió con estado %d", status), nil)
}

func normalizeOutcome(remote *remoteResponse) *ImportOutcome {
	outcome := &ImportOutcome{
		Stats: ImportStats{
			Created: remote.Resultados.Estadisticas.Creados,
			Errors:  remote.Resultados.Estadisticas.Errores,
			Total:   remote.Resultados.Estadisticas.Total,
		},
		Warnings: remote.Resultados.Warnings,
	}

	for i, item := range remote.Resultados.Exitosos {
		if i == detailLimit {
			outcome.MoreSuccesses = len(remote.Resultados.Exitosos) - detailLimit
			break
		}
		outcome.Successes = append(outcome.Successes, ImportOutcomeItem{
			Row:     item.Fila,
			Status:  "success",
			Summary: item.Resumen,
			Points:  item.Puntos,
		})
	}

	for i, item := range remote.Resultados.Errores {
		if i == detailLimit {
			outcome.MoreErrors = len(remote.Resultados.Errores) - detailLimit
			break
		}
		outcome.Errors = append(outcome.Errors, ImportOutcomeItem{
			Row:     item.Fila,
			Status:  "error",
			Summary: item.Error,
		})
	}

	return outcome
}
