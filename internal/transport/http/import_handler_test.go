package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ligacli/internal/config"
	"ligacli/internal/services"
)

func newTestAPI(t *testing.T, remoteURL string) *chi.Mux {
	t.Helper()

	svc, err := services.NewImportService(config.ImportConfig{
		RemoteBaseURL:  remoteURL,
		MaxUploadBytes: 1 << 20,
		SessionTTL:     time.Hour,
	}, nil, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/api/import", NewImportHandler(svc, nil).Routes())
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func uploadCSV(t *testing.T, router http.Handler, sessionID string, csv []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("archivo", "partidos.csv")
	require.NoError(t, err)
	_, err = part.Write(csv)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/sessions/"+sessionID+"/file", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func testCSV() []byte {
	fecha := time.Now().Add(48 * time.Hour).Format("2006-01-02 15:04")
	return []byte(fmt.Sprintf(
		"equipo_local,equipo_visitante,torneo,fecha_hora\nTigres,Leones,Liga Primavera,%s\n", fecha))
}

func TestImportAPIFullFlow(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultados":{"estadisticas":{"creados":1,"errores":0,"total":1},"exitosos":[{"fila":2,"resumen":"Tigres vs Leones"}],"errores":[],"warnings":[]}}`)
	}))
	defer remote.Close()

	router := newTestAPI(t, remote.URL)

	// Create session.
	rec, state := doJSON(t, router, http.MethodPost, "/api/import/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID, _ := state["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Equal(t, "select_kind", state["stage"])

	base := "/api/import/sessions/" + sessionID

	// Choose the kind and advance to upload.
	rec, _ = doJSON(t, router, http.MethodPost, base+"/kind", map[string]string{"kind": "partidos"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, state = doJSON(t, router, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "upload", state["stage"])

	// Upload the file.
	rec = uploadCSV(t, router, sessionID, testCSV())
	require.Equal(t, http.StatusOK, rec.Code)

	// Advance through mapping and validation.
	rec, state = doJSON(t, router, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "map", state["stage"])

	rec, mapping := doJSON(t, router, http.MethodGet, base+"/mapping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, mapping["blocked"])

	rec, state = doJSON(t, router, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "validate", state["stage"])
	assert.Equal(t, true, state["can_import"])

	// Execute.
	rec, state = doJSON(t, router, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "execute", state["stage"])
	assert.Equal(t, "imported", state["status"])

	// The result is retrievable afterwards.
	rec, result := doJSON(t, router, http.MethodGet, base+"/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats, _ := result["stats"].(map[string]any)
	require.NotNil(t, stats)
	assert.Equal(t, float64(1), stats["created"])
}

func TestImportAPISessionNotFound(t *testing.T) {
	router := newTestAPI(t, "http://localhost:0")

	rec, body := doJSON(t, router, http.MethodGet, "/api/import/sessions/desconocida", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestImportAPIKindValidation(t *testing.T) {
	router := newTestAPI(t, "http://localhost:0")

	_, state := doJSON(t, router, http.MethodPost, "/api/import/sessions", nil)
	sessionID := state["session_id"].(string)
	base := "/api/import/sessions/" + sessionID

	t.Run("missing kind", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodPost, base+"/kind", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown kind conflicts", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodPost, base+"/kind", map[string]string{"kind": "torneos"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("advance without kind conflicts", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodPost, base+"/next", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestImportAPIMappingEdit(t *testing.T) {
	router := newTestAPI(t, "http://localhost:0")

	_, state := doJSON(t, router, http.MethodPost, "/api/import/sessions", nil)
	sessionID := state["session_id"].(string)
	base := "/api/import/sessions/" + sessionID

	doJSON(t, router, http.MethodPost, base+"/kind", map[string]string{"kind": "partidos"})
	doJSON(t, router, http.MethodPost, base+"/next", nil)
	uploadCSV(t, router, sessionID, testCSV())
	doJSON(t, router, http.MethodPost, base+"/next", nil)

	t.Run("assign and unset", func(t *testing.T) {
		rec, body := doJSON(t, router, http.MethodPut, base+"/mapping",
			map[string]string{"field": "sede", "header": "torneo"})
		require.Equal(t, http.StatusOK, rec.Code)
		mapped, _ := body["mapping"].(map[string]any)
		assert.Equal(t, "torneo", mapped["sede"])

		rec, body = doJSON(t, router, http.MethodPut, base+"/mapping",
			map[string]string{"field": "sede", "header": ""})
		require.Equal(t, http.StatusOK, rec.Code)
		mapped, _ = body["mapping"].(map[string]any)
		_, ok := mapped["sede"]
		assert.False(t, ok)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodPut, base+"/mapping",
			map[string]string{"field": "no_existe", "header": "torneo"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mapping edit clears validation", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodPost, base+"/validate", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		doJSON(t, router, http.MethodPut, base+"/mapping",
			map[string]string{"field": "arbitro", "header": "torneo"})

		rec, _ = doJSON(t, router, http.MethodGet, base+"/validation", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestImportAPIRemoteFailureAndRetry(t *testing.T) {
	var fail = true
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"codigo":"INTERNO","mensaje":"servidor caído"}}`)
			return
		}
		fmt.Fprint(w, `{"resultados":{"estadisticas":{"creados":1,"errores":0,"total":1},"exitosos":[],"errores":[],"warnings":[]}}`)
	}))
	defer remote.Close()

	router := newTestAPI(t, remote.URL)

	_, state := doJSON(t, router, http.MethodPost, "/api/import/sessions", nil)
	sessionID := state["session_id"].(string)
	base := "/api/import/sessions/" + sessionID

	doJSON(t, router, http.MethodPost, base+"/kind", map[string]string{"kind": "partidos"})
	doJSON(t, router, http.MethodPost, base+"/next", nil)
	uploadCSV(t, router, sessionID, testCSV())
	doJSON(t, router, http.MethodPost, base+"/next", nil)
	doJSON(t, router, http.MethodPost, base+"/next", nil)

	rec, body := doJSON(t, router, http.MethodPost, base+"/next", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	errBody, _ := body["error"].(map[string]any)
	require.NotNil(t, errBody)
	assert.True(t, strings.Contains(errBody["message"].(string), "servidor caído"))

	fail = false
	rec, state = doJSON(t, router, http.MethodPost, base+"/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "imported", state["status"])
}

func TestImportAPIFieldFormatError(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":{"codigo":"FORMATO_CAMPO","mensaje":"número de jugador inválido","campo":"numero_jugador"}}`)
	}))
	defer remote.Close()

	router := newTestAPI(t, remote.URL)

	_, state := doJSON(t, router, http.MethodPost, "/api/import/sessions", nil)
	sessionID := state["session_id"].(string)
	base := "/api/import/sessions/" + sessionID

	doJSON(t, router, http.MethodPost, base+"/kind", map[string]string{"kind": "partidos"})
	doJSON(t, router, http.MethodPost, base+"/next", nil)
	uploadCSV(t, router, sessionID, testCSV())
	doJSON(t, router, http.MethodPost, base+"/next", nil)
	doJSON(t, router, http.MethodPost, base+"/next", nil)

	rec, body := doJSON(t, router, http.MethodPost, base+"/next", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errBody, _ := body["error"].(map[string]any)
	require.NotNil(t, errBody)
	assert.Equal(t, "FIELD_FORMAT", errBody["error_code"])
}

func TestImportAPIListKinds(t *testing.T) {
	router := newTestAPI(t, "http://localhost:0")

	rec, body := doJSON(t, router, http.MethodGet, "/api/import/kinds", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	kinds, _ := body["kinds"].([]any)
	require.Len(t, kinds, 2)
	first, _ := kinds[0].(map[string]any)
	assert.Equal(t, "partidos", first["kind"])
}
