package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// importableSession builds a session that satisfies the execution
// precondition: kind set, file uploaded, passing validation stored.
func importableSession(t *testing.T) *Session {
	t.Helper()

	session := NewSession()
	require.NoError(t, session.SetKind(KindPartidos))
	session.SetSource(&SourceFile{
		Name:      "partidos.csv",
		Size:      64,
		MediaType: "text/csv",
		Data:      []byte("equipo_local,equipo_visitante\nTigres,Leones\n"),
	}, &ParseResult{
		Headers: []string{"equipo_local", "equipo_visitante"},
		Records: []Record{{"equipo_local": "Tigres", "equipo_visitante": "Leones"}},
	})
	session.SetValidation(&ValidationResult{
		Stats:     Stats{Total: 1, Valid: 1},
		CanImport: true,
	})
	return session
}

func TestExecutorExecute(t *testing.T) {
	t.Run("normalizes the remote response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/partidos/importar", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "partidos", r.FormValue("tipo"))
			_, _, err := r.FormFile("archivo")
			require.NoError(t, err)

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"resultados":{
				"estadisticas":{"creados":1,"errores":1,"total":2},
				"exitosos":[{"fila":2,"resumen":"Tigres vs Leones","puntos":6}],
				"errores":[{"fila":3,"error":"equipo desconocido"}],
				"warnings":["torneo nuevo creado"]
			}}`)
		}))
		defer server.Close()

		executor := NewExecutor(server.URL, nil, nil)
		session := importableSession(t)

		var milestones []Milestone
		reporter := ReporterFunc(func(p Progress) {
			milestones = append(milestones, p.Milestone)
			assert.Equal(t, session.ID(), p.SessionID)
		})

		outcome, err := executor.Execute(context.Background(), session, reporter)
		require.NoError(t, err)

		assert.Equal(t, ImportStats{Created: 1, Errors: 1, Total: 2}, outcome.Stats)
		require.Len(t, outcome.Successes, 1)
		assert.Equal(t, 2, outcome.Successes[0].Row)
		require.NotNil(t, outcome.Successes[0].Points)
		assert.Equal(t, 6, *outcome.Successes[0].Points)
		require.Len(t, outcome.Errors, 1)
		assert.Equal(t, "equipo desconocido", outcome.Errors[0].Summary)
		assert.Equal(t, []string{"torneo nuevo creado"}, outcome.Warnings)

		assert.Equal(t, []Milestone{
			MilestoneBegin, MilestoneValidating, MilestoneMapping, MilestoneSubmitting, MilestoneDone,
		}, milestones)
	})

	t.Run("trims detail lists past the limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"resultados":{"estadisticas":{"creados":0,"errores":25,"total":25},"exitosos":[],"errores":[`)
			for i := 0; i < 25; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"fila":%d,"error":"e%d"}`, i+2, i)
			}
			fmt.Fprint(w, `],"warnings":[]}}`)
		}))
		defer server.Close()

		executor := NewExecutor(server.URL, nil, nil)
		outcome, err := executor.Execute(context.Background(), importableSession(t), nil)
		require.NoError(t, err)

		assert.Len(t, outcome.Errors, detailLimit)
		assert.Equal(t, 15, outcome.MoreErrors)
		assert.Equal(t, 0, outcome.MoreSuccesses)
	})

	t.Run("classifies the field-format error class", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			body   string
		}{
			{
				name:   "by error code",
				status: http.StatusBadRequest,
				body:   `{"error":{"codigo":"FORMATO_CAMPO","mensaje":"número de jugador inválido","campo":"numero_jugador"}}`,
			},
			{
				name:   "by 422 with field",
				status: http.StatusUnprocessableEntity,
				body:   `{"error":{"codigo":"OTRO","mensaje":"número de jugador inválido","campo":"numero_jugador"}}`,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					fmt.Fprint(w, tt.body)
				}))
				defer server.Close()

				executor := NewExecutor(server.URL, nil, nil)
				_, err := executor.Execute(context.Background(), importableSession(t), nil)
				require.Error(t, err)
				assert.True(t, IsFieldFormat(err))
				assert.True(t, IsRetryable(err))

				var pe *PipelineError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "numero_jugador", pe.Field)
			})
		}
	})

	t.Run("generic remote failure is a retryable execution error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"codigo":"INTERNO","mensaje":"algo falló"}}`)
		}))
		defer server.Close()

		executor := NewExecutor(server.URL, nil, nil)
		_, err := executor.Execute(context.Background(), importableSession(t), nil)
		require.Error(t, err)
		assert.False(t, IsFieldFormat(err))
		assert.True(t, IsRetryable(err))

		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "algo falló", pe.Message)
	})

	t.Run("refuses a session that cannot import", func(t *testing.T) {
		executor := NewExecutor("http://localhost:0", nil, nil)

		session := NewSession()
		_, err := executor.Execute(context.Background(), session, nil)
		require.Error(t, err)

		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, ErrorTypeState, pe.Type)
	})

	t.Run("refuses a spent session", func(t *testing.T) {
		executor := NewExecutor("http://localhost:0", nil, nil)

		session := importableSession(t)
		session.SetImportResult(&ImportOutcome{})
		_, err := executor.Execute(context.Background(), session, nil)
		require.Error(t, err)
	})
}
