package http

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateDownload(t *testing.T) {
	r := chi.NewRouter()
	r.Mount("/api/templates", NewTemplateHandler(nil, nil).Routes())

	t.Run("known kind", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/templates/partidos", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "plantilla_partidos.csv")

		rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "equipo_local", rows[0][0])
		assert.Equal(t, "Tigres", rows[1][0])
	})

	t.Run("unknown kind", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/templates/torneos", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
