package http

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "ligacli/internal/errors"
	"ligacli/internal/importer"
)

// TemplateHandler serves skeleton CSV files per import kind: the header row
// plus one example row, so users start from a file that auto-maps cleanly.
type TemplateHandler struct {
	registry *importer.KindRegistry
	logger   *slog.Logger
}

// NewTemplateHandler creates the handler.
func NewTemplateHandler(registry *importer.KindRegistry, logger *slog.Logger) *TemplateHandler {
	if registry == nil {
		registry = importer.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateHandler{
		registry: registry,
		logger:   logger.With(slog.String("handler", "template")),
	}
}

// Routes returns the router for template downloads.
func (h *TemplateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{kind}", h.Download)
	return r
}

// Download writes the CSV template for a kind.
func (h *TemplateHandler) Download(w http.ResponseWriter, r *http.Request) {
	kind := importer.Kind(chi.URLParam(r, "kind"))

	spec, err := h.registry.Get(kind)
	if err != nil {
		if renderErr := render.Render(w, r, apierrors.NewErrorResponse(
			apierrors.NotFoundError(fmt.Sprintf("import kind %q", kind)))); renderErr != nil {
			h.logger.ErrorContext(r.Context(), "failed to render error response",
				slog.String("error", renderErr.Error()))
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="plantilla_%s.csv"`, kind))

	writer := csv.NewWriter(w)
	if err := writer.Write(spec.TemplateHeaders()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write template header",
			slog.String("error", err.Error()))
		return
	}
	if err := writer.Write(spec.TemplateExample()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write template example",
			slog.String("error", err.Error()))
		return
	}
	writer.Flush()

	h.logger.InfoContext(r.Context(), "template downloaded",
		slog.String("kind", string(kind)))
}
