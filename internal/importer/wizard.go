package importer

import (
	"context"
	"log/slog"
	"sync"
)

// Stage is one step of the import wizard, in fixed order.
type Stage int

const (
	StageSelectKind Stage = iota
	StageUpload
	StageMap
	StageValidate
	StageExecute
)

var stageNames = map[Stage]string{
	StageSelectKind: "select_kind",
	StageUpload:     "upload",
	StageMap:        "map",
	StageValidate:   "validate",
	StageExecute:    "execute",
}

// String returns the wire name of the stage.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Wizard sequences one import session through the five stages. Forward
// transitions are gated by pure guards over the session; moving back never
// discards computed state. All methods are safe for concurrent use, though
// a session is owned by a single user.
type Wizard struct {
	mu sync.Mutex

	stage    Stage
	session  *Session
	registry *KindRegistry
	parser   *Parser
	executor *Executor
	reporter ProgressReporter
	logger   *slog.Logger
	lastErr  error
}

// NewWizard creates a wizard with a fresh empty session.
func NewWizard(registry *KindRegistry, parser *Parser, executor *Executor, reporter ProgressReporter, logger *slog.Logger) *Wizard {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if parser == nil {
		parser = NewParser(logger)
	}
	if reporter == nil {
		reporter = NopReporter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Wizard{
		stage:    StageSelectKind,
		session:  NewSession(),
		registry: registry,
		parser:   parser,
		executor: executor,
		reporter: reporter,
		logger:   logger.With(slog.String("component", "importer.wizard")),
	}
}

// Session returns the session owned by this wizard.
func (w *Wizard) Session() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Stage returns the active stage.
func (w *Wizard) Stage() Stage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stage
}

// LastError returns the error surfaced by the last failed stage action.
func (w *Wizard) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// SelectKind fixes the import kind for the session. Only valid while the
// wizard sits at the first stage.
func (w *Wizard) SelectKind(kind Kind) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stage != StageSelectKind {
		return NewStateError(w.stage.String(), "el tipo solo puede elegirse en el primer paso")
	}
	if !w.registry.Has(kind) {
		return NewStateError("select_kind", "tipo de importación no soportado: "+string(kind))
	}
	return w.session.SetKind(kind)
}

// Upload parses the file and stores it in the session. A re-upload replaces
// the previous one. Parse failures are fatal to the upload, not the wizard;
// the user re-uploads.
func (w *Wizard) Upload(name, mediaType string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stage < StageUpload {
		return NewStateError(w.stage.String(), "primero debe elegirse el tipo de importación")
	}
	if w.session.Status() == StatusImported {
		return NewStateError("upload", "la sesión ya fue importada")
	}

	parsed, err := w.parser.Parse(name, data)
	if err != nil {
		w.lastErr = err
		return err
	}

	w.session.SetSource(&SourceFile{
		Name:      name,
		Size:      int64(len(data)),
		MediaType: mediaType,
		Data:      data,
	}, parsed)
	w.lastErr = nil

	if parsed.SkippedRows > 0 {
		w.logger.Warn("rows skipped during parse",
			slog.String("session_id", w.session.ID()),
			slog.Int("skipped", parsed.SkippedRows))
	}
	return nil
}

// SetMapping assigns a header to a field by hand. An empty header unsets
// the field. Clears any stored validation.
func (w *Wizard) SetMapping(field, header string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stage < StageMap {
		return NewStateError(w.stage.String(), "aún no hay columnas que asignar")
	}
	if w.session.Status() == StatusImported {
		return NewStateError("map", "la sesión ya fue importada")
	}
	spec, err := w.registry.Get(w.session.Kind())
	if err != nil {
		return NewStateError("map", err.Error())
	}
	if _, ok := spec.Field(field); !ok {
		return NewMappingError(field, "campo desconocido para este tipo de importación")
	}
	w.session.SetMappingField(field, header)
	return nil
}

// MappingStatus reports per-field mapping validity for the session.
func (w *Wizard) MappingStatus() ([]FieldMapping, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	spec, err := w.registry.Get(w.session.Kind())
	if err != nil {
		return nil, NewStateError("map", err.Error())
	}
	return ValidateMapping(w.session.Mapping(), w.session.Headers(), spec.FieldList()), nil
}

// Validate runs the validation engine and stores the result in the session,
// replacing any previous run.
func (w *Wizard) Validate(ctx context.Context) (*ValidationResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validateLocked(ctx)
}

func (w *Wizard) validateLocked(ctx context.Context) (*ValidationResult, error) {
	if w.stage < StageMap {
		return nil, NewStateError(w.stage.String(), "no hay datos que validar")
	}
	spec, err := w.registry.Get(w.session.Kind())
	if err != nil {
		return nil, NewStateError("validate", err.Error())
	}
	result := Validate(ctx, w.session.Records(), w.session.Mapping(), spec)
	w.session.SetValidation(result)
	return result, nil
}

// CanAdvance is the pure transition guard for the active stage.
func (w *Wizard) CanAdvance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canAdvanceLocked()
}

func (w *Wizard) canAdvanceLocked() bool {
	switch w.stage {
	case StageSelectKind:
		return w.session.Kind() != ""
	case StageUpload:
		return len(w.session.Records()) > 0
	case StageMap:
		spec, err := w.registry.Get(w.session.Kind())
		if err != nil {
			return false
		}
		statuses := ValidateMapping(w.session.Mapping(), w.session.Headers(), spec.FieldList())
		return !MappingBlocked(statuses)
	case StageValidate:
		// A spent session may re-enter the report; a fresh one needs a
		// passing validation.
		return w.session.CanImport() || w.session.ImportResult() != nil
	default:
		return false
	}
}

// Next advances to the following stage when the guard holds. Entering Map
// auto-maps fields the user has not touched; entering Validate runs the
// engine when no result is stored; entering Execute runs the remote import
// exactly once per session.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.canAdvanceLocked() {
		return NewStateError(w.stage.String(), "el paso actual no está completo")
	}

	w.stage++
	switch w.stage {
	case StageMap:
		spec, err := w.registry.Get(w.session.Kind())
		if err != nil {
			return NewStateError("map", err.Error())
		}
		w.session.AutoMap(spec.FieldList())
	case StageValidate:
		if w.session.Validation() == nil {
			if _, err := w.validateLocked(ctx); err != nil {
				w.lastErr = err
				return err
			}
		}
	case StageExecute:
		return w.enterExecuteLocked(ctx)
	}
	return nil
}

// enterExecuteLocked is the Execute entry action: idempotent by
// construction. A session with a stored outcome is never resubmitted, no
// matter how often the stage is re-entered.
func (w *Wizard) enterExecuteLocked(ctx context.Context) error {
	if w.session.ImportResult() != nil {
		return nil
	}
	outcome, err := w.executor.Execute(ctx, w.session, w.reporter)
	if err != nil {
		// The session keeps records, mapping and validation; Retry is
		// possible without redoing earlier stages.
		w.lastErr = err
		return err
	}
	w.session.SetImportResult(outcome)
	w.lastErr = nil
	return nil
}

// Retry re-runs the remote import after an execution failure. No-op once
// an outcome is stored.
func (w *Wizard) Retry(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stage != StageExecute {
		return NewStateError(w.stage.String(), "no hay importación que reintentar")
	}
	return w.enterExecuteLocked(ctx)
}

// Back moves one stage back. Permitted everywhere except the first stage;
// later-stage data is kept so moving forward again skips recomputation.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stage == StageSelectKind {
		return NewStateError("select_kind", "no hay paso anterior")
	}
	w.stage--
	return nil
}

// Reset discards the session entirely and returns to the first stage.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session = NewSession()
	w.stage = StageSelectKind
	w.lastErr = nil
}
