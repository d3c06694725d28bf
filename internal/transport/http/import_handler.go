package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "ligacli/internal/errors"
	"ligacli/internal/importer"
	"ligacli/internal/services"
)

var validate = validator.New()

// ImportHandler exposes the import wizard over HTTP. One session ID maps to
// one wizard; every route below /sessions/{sessionID} acts on that wizard.
type ImportHandler struct {
	service *services.ImportService
	logger  *slog.Logger
}

// NewImportHandler creates the handler.
func NewImportHandler(service *services.ImportService, logger *slog.Logger) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "import")),
	}
}

// Routes returns the router for the import API.
func (h *ImportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/kinds", h.ListKinds)
	r.Post("/sessions", h.CreateSession)

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/kind", h.SelectKind)
		r.Post("/file", h.UploadFile)
		r.Get("/mapping", h.GetMapping)
		r.Put("/mapping", h.SetMapping)
		r.Post("/validate", h.RunValidation)
		r.Get("/validation", h.GetValidation)
		r.Post("/next", h.Advance)
		r.Post("/back", h.Back)
		r.Post("/reset", h.Reset)
		r.Post("/retry", h.Retry)
		r.Get("/result", h.GetResult)
	})

	return r
}

// kindResponse describes one import kind for the kind picker.
type kindResponse struct {
	Kind   importer.Kind          `json:"kind"`
	Fields []importer.SchemaField `json:"fields"`
}

// ListKinds returns the registered import kinds with their schemas.
func (h *ImportHandler) ListKinds(w http.ResponseWriter, r *http.Request) {
	registry := h.service.Registry()

	var out []kindResponse
	for _, kind := range registry.Kinds() {
		spec, err := registry.Get(kind)
		if err != nil {
			continue
		}
		out = append(out, kindResponse{Kind: kind, Fields: spec.FieldList()})
	}

	render.JSON(w, r, map[string]interface{}{"kinds": out})
}

// CreateSession starts a new wizard session.
func (h *ImportHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, wizard := h.service.CreateSession(r.Context())

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.sessionState(id, wizard))
}

// GetSession returns the full wizard state for polling clients.
func (h *ImportHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, h.sessionState(id, wizard))
}

// DeleteSession discards a session, whatever its stage.
func (h *ImportHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !h.service.DropSession(r.Context(), id) {
		h.renderError(w, r, apierrors.ErrSessionNotFound)
		return
	}
	render.NoContent(w, r)
}

type selectKindRequest struct {
	Kind string `json:"kind" validate:"required"`
}

// SelectKind fixes the import kind for the session.
func (h *ImportHandler) SelectKind(w http.ResponseWriter, r *http.Request) {
	id, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	var req selectKindRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		h.renderError(w, r, apierrors.ErrValidation("kind", "kind is required"))
		return
	}

	if err := wizard.SelectKind(importer.Kind(req.Kind)); err != nil {
		h.renderPipelineError(w, r, err)
		return
	}

	render.JSON(w, r, h.sessionState(id, wizard))
}

// UploadFile accepts a multipart upload and parses it into the session.
func (h *ImportHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	id, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	maxBytes := h.service.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		h.renderError(w, r, apierrors.ErrFileTooLarge)
		return
	}

	file, header, err := r.FormFile("archivo")
	if err != nil {
		h.renderError(w, r, apierrors.ErrValidation("archivo", "file field 'archivo' is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := wizard.Upload(header.Filename, header.Header.Get("Content-Type"), data); err != nil {
		h.renderPipelineError(w, r, err)
		return
	}

	h.service.RecordUpload(r.Context(), wizard.Session().Kind(), int64(len(data)), wizard.Session().SkippedRows())
	h.logger.InfoContext(r.Context(), "file uploaded",
		slog.String("session_id", id),
		slog.String("filename", header.Filename),
		slog.Int("bytes", len(data)),
		slog.Int("records", len(wizard.Session().Records())))

	render.JSON(w, r, h.sessionState(id, wizard))
}

// GetMapping returns the current mapping with its per-field validity.
func (h *ImportHandler) GetMapping(w http.ResponseWriter, r *http.Request) {
	_, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	statuses, err := wizard.MappingStatus()
	if err != nil {
		h.renderPipelineError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"mapping": wizard.Session().Mapping(),
		"fields":  statuses,
		"headers": wizard.Session().Headers(),
		"blocked": importer.MappingBlocked(statuses),
	})
}

type setMappingRequest struct {
	Field  string `json:"field" validate:"required"`
	Header string `json:"header"`
}

// SetMapping assigns a header to a field by hand. An empty header unsets it.
func (h *ImportHandler) SetMapping(w http.ResponseWriter, r *http.Request) {
	_, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	var req setMappingRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		h.renderError(w, r, apierrors.ErrValidation("field", "field is required"))
		return
	}

	if err := wizard.SetMapping(req.Field, req.Header); err != nil {
		h.renderPipelineError(w, r, err)
		return
	}

	statuses, err := wizard.MappingStatus()
	if err != nil {
		h.renderPipelineError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"mapping": wizard.Session().Mapping(),
		"fields":  statuses,
		"blocked": importer.MappingBlocked(statuses),
	})
}

// RunValidation runs the validation engine and returns the fresh result.
func (h *ImportHandler) RunValidation(w http.ResponseWriter, r *http.Request) {
	_, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	result, err := wizard.Validate(r.Context())
	if err != nil {
		h.renderPipelineError(w, r, err)
		return
	}

	h.service.RecordValidation(r.Context(), wizard.Session().Kind(), result)
	render.JSON(w, r, result)
}

// GetValidation returns the stored validation result, if any.
func (h *ImportHandler) GetValidation(w http.ResponseWriter, r *http.Request) {
	_, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	result := wizard.Session().Validation()
	if result == nil {
		h.renderError(w, r, apierrors.NotFoundError("validation result"))
		return
	}
	render.JSON(w, r, result)
}

// Advance moves the wizard one stage forward, running the entry action of
// the new stage. Entering the final stage triggers the remote import.
func (h *ImportHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	session := wizard.Session()
	executing := wizard.Stage() == importer.StageValidate && session.ImportResult() == nil && wizard.CanAdvance()

	start := time.Now()
	err := wizard.Next(r.Context())
	if executing {
		created := 0
		if outcome := session.ImportResult(); outcome != nil {
			created = outcome.Stats.Created
		}
		h.service.RecordExecution(r.Context(), session.Kind(), time.Since(start), created, err)
	}
	if err != nil {
		h.renderPipelineError(w, r, err)
		return
	}

	h.service.NotifyStage(id, wizard.Stage().String(), session.Status())
	render.JSON(w, r, h.sessionState(id, wizard))
}

// Back moves the wizard one stage back, keeping later-stage data.
func (h *ImportHandler) Back(w http.ResponseWriter, r *http.Request) {
	id, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	if err := wizard.Back(); err != nil {
		h.renderPipelineError(w, r, err)
		return
	}

	h.service.NotifyStage(id, wizard.Stage().String(), wizard.Session().Status())
	render.JSON(w, r, h.sessionState(id, wizard))
}

// Reset discards all session state and returns to the first stage. The
// session keeps its ID so the client needs no new URL.
func (h *ImportHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	wizard.Reset()
	h.service.NotifyStage(id, wizard.Stage().String(), wizard.Session().Status())
	render.JSON(w, r, h.sessionState(id, wizard))
}

// Retry re-runs the remote import after an execution failure.
func (h *ImportHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	session := wizard.Session()
	retrying := wizard.Stage() == importer.StageExecute && session.ImportResult() == nil

	start := time.Now()
	err := wizard.Retry(r.Context())
	if retrying {
		created := 0
		if outcome := session.ImportResult(); outcome != nil {
			created = outcome.Stats.Created
		}
		h.service.RecordExecution(r.Context(), session.Kind(), time.Since(start), created, err)
	}
	if err != nil {
		h.renderPipelineError(w, r, err)
		return
	}

	render.JSON(w, r, h.sessionState(id, wizard))
}

// GetResult returns the import outcome for a spent session.
func (h *ImportHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	_, wizard, ok := h.wizard(w, r)
	if !ok {
		return
	}

	outcome := wizard.Session().ImportResult()
	if outcome == nil {
		h.renderError(w, r, apierrors.NotFoundError("import result"))
		return
	}
	render.JSON(w, r, outcome)
}

// sessionState is the wizard snapshot every mutating route returns.
func (h *ImportHandler) sessionState(id string, wizard *importer.Wizard) map[string]interface{} {
	session := wizard.Session()

	state := map[string]interface{}{
		"session_id":  id,
		"stage":       wizard.Stage().String(),
		"status":      session.Status(),
		"kind":        session.Kind(),
		"can_advance": wizard.CanAdvance(),
	}

	if source := session.Source(); source != nil {
		state["file"] = source
		state["headers"] = session.Headers()
		state["records"] = len(session.Records())
		state["skipped_rows"] = session.SkippedRows()
	}
	if v := session.Validation(); v != nil {
		state["validation"] = v.Stats
		state["can_import"] = session.CanImport()
	}
	if outcome := session.ImportResult(); outcome != nil {
		state["result"] = outcome
	}
	if err := wizard.LastError(); err != nil {
		state["last_error"] = err.Error()
	}

	return state
}

func (h *ImportHandler) wizard(w http.ResponseWriter, r *http.Request) (string, *importer.Wizard, bool) {
	id := chi.URLParam(r, "sessionID")
	wizard, ok := h.service.Wizard(id)
	if !ok {
		h.renderError(w, r, apierrors.ErrSessionNotFound)
		return id, nil, false
	}
	return id, wizard, true
}

func (h *ImportHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	if err := render.Render(w, r, apierrors.NewErrorResponse(apiErr)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render error response",
			slog.String("error", err.Error()))
	}
}

// renderPipelineError maps pipeline error classes onto HTTP statuses: state
// violations conflict, mapping and parse problems are client errors, the
// remote field-format class is unprocessable, remote failures are gateway
// errors.
func (h *ImportHandler) renderPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *importer.PipelineError
	if !errors.As(err, &pe) {
		h.renderError(w, r, apierrors.NewWithDetails(
			http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error", err.Error()))
		return
	}

	var apiErr *apierrors.APIError
	switch pe.Type {
	case importer.ErrorTypeState:
		apiErr = apierrors.NewWithDetails(http.StatusConflict, "STATE_CONFLICT", pe.Message, pe)
	case importer.ErrorTypeParse:
		apiErr = apierrors.NewWithDetails(http.StatusBadRequest, "PARSE_FAILED", pe.Message, pe)
	case importer.ErrorTypeMapping:
		apiErr = apierrors.NewWithDetails(http.StatusBadRequest, "MAPPING_INVALID", pe.Message, pe)
	case importer.ErrorTypeFieldFormat:
		apiErr = apierrors.NewWithDetails(http.StatusUnprocessableEntity, "FIELD_FORMAT", pe.Message, pe)
	case importer.ErrorTypeExecution:
		apiErr = apierrors.NewWithDetails(http.StatusBadGateway, "IMPORT_FAILED", pe.Message, pe)
	default:
		apiErr = apierrors.NewWithDetails(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", pe.Message, pe)
	}
	h.renderError(w, r, apiErr)
}
