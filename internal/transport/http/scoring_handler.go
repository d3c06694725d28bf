package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "ligacli/internal/errors"
	"ligacli/internal/scoring"
)

// ScoringHandler exposes the play-by-play scoring schema and validation so
// the scoring form and the import UI share one source of truth.
type ScoringHandler struct {
	logger *slog.Logger
}

// NewScoringHandler creates the handler.
func NewScoringHandler(logger *slog.Logger) *ScoringHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoringHandler{
		logger: logger.With(slog.String("handler", "scoring")),
	}
}

// Routes returns the router for the scoring API.
func (h *ScoringHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/plays", h.ListPlaySpecs)
	r.Post("/plays/validate", h.ValidatePlay)
	return r
}

// ListPlaySpecs returns the per-type schema in form display order.
func (h *ScoringHandler) ListPlaySpecs(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"plays": scoring.Specs()})
}

// ValidatePlay checks one play against its type schema and returns its
// point value when valid.
func (h *ScoringHandler) ValidatePlay(w http.ResponseWriter, r *http.Request) {
	var play scoring.Play
	if err := render.DecodeJSON(r.Body, &play); err != nil {
		if renderErr := render.Render(w, r, apierrors.NewErrorResponse(
			apierrors.InvalidRequestWithError(err))); renderErr != nil {
			h.logger.ErrorContext(r.Context(), "failed to render error response",
				slog.String("error", renderErr.Error()))
		}
		return
	}

	errs := scoring.Validate(play)
	if len(errs) > 0 {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, map[string]interface{}{
			"valid":  false,
			"errors": errs,
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"valid":  true,
		"points": scoring.Points(play),
	})
}
