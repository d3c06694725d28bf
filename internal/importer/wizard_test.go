package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func partidosCSV() []byte {
	fecha := time.Now().Add(48 * time.Hour).Format("2006-01-02 15:04")
	return []byte(fmt.Sprintf(
		"equipo_local,equipo_visitante,torneo,fecha_hora\nTigres,Leones,Liga Primavera,%s\nOsos,Halcones,Liga Primavera,%s\n",
		fecha, fecha))
}

// fakeRemote counts import submissions and answers with a fixed result.
func fakeRemote(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		fmt.Fprint(w, `{"resultados":{"estadisticas":{"creados":2,"errores":0,"total":2},"exitosos":[],"errores":[],"warnings":[]}}`)
	}))
}

func newTestWizard(t *testing.T, baseURL string) *Wizard {
	t.Helper()
	executor := NewExecutor(baseURL, nil, nil)
	return NewWizard(nil, nil, executor, nil, nil)
}

// walkToExecute drives a wizard from the first stage through a successful
// import.
func walkToExecute(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, w.SelectKind(KindPartidos))
	require.NoError(t, w.Next(ctx)) // -> upload
	require.NoError(t, w.Upload("partidos.csv", "text/csv", partidosCSV()))
	require.NoError(t, w.Next(ctx)) // -> map, auto-maps
	require.NoError(t, w.Next(ctx)) // -> validate, runs engine
	require.True(t, w.Session().CanImport())
	require.NoError(t, w.Next(ctx)) // -> execute, submits
}

func TestWizardHappyPath(t *testing.T) {
	var calls int64
	server := fakeRemote(t, &calls)
	defer server.Close()

	w := newTestWizard(t, server.URL)
	walkToExecute(t, w)

	assert.Equal(t, StageExecute, w.Stage())
	assert.Equal(t, StatusImported, w.Session().Status())
	require.NotNil(t, w.Session().ImportResult())
	assert.Equal(t, 2, w.Session().ImportResult().Stats.Created)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestWizardBackAndForwardNeverResubmits(t *testing.T) {
	var calls int64
	server := fakeRemote(t, &calls)
	defer server.Close()

	w := newTestWizard(t, server.URL)
	walkToExecute(t, w)

	// Revisit the validation report, then return to the result.
	require.NoError(t, w.Back())
	assert.Equal(t, StageValidate, w.Stage())
	require.NoError(t, w.Next(context.Background()))
	assert.Equal(t, StageExecute, w.Stage())

	// Spent sessions re-enter the report without touching the remote.
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
	assert.False(t, w.Session().CanImport())
}

func TestWizardRetryAfterFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	var calls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error":{"codigo":"INTERNO","mensaje":"servidor caído"}}`)
			return
		}
		fmt.Fprint(w, `{"resultados":{"estadisticas":{"creados":2,"errores":0,"total":2},"exitosos":[],"errores":[],"warnings":[]}}`)
	}))
	defer server.Close()

	w := newTestWizard(t, server.URL)
	ctx := context.Background()

	require.NoError(t, w.SelectKind(KindPartidos))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Upload("partidos.csv", "text/csv", partidosCSV()))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))

	err := w.Next(ctx)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, StageExecute, w.Stage())

	// The session survived the failure intact.
	assert.Nil(t, w.Session().ImportResult())
	assert.NotNil(t, w.Session().Validation())
	assert.True(t, w.Session().CanImport())

	fail.Store(false)
	require.NoError(t, w.Retry(ctx))
	assert.Equal(t, StatusImported, w.Session().Status())
	assert.EqualValues(t, 2, atomic.LoadInt64(&calls))

	// Retry on a spent session is a no-op.
	require.NoError(t, w.Retry(ctx))
	assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
}

func TestWizardGuards(t *testing.T) {
	w := newTestWizard(t, "http://localhost:0")
	ctx := context.Background()

	t.Run("cannot advance without a kind", func(t *testing.T) {
		assert.False(t, w.CanAdvance())
		require.Error(t, w.Next(ctx))
	})

	t.Run("cannot upload before choosing a kind", func(t *testing.T) {
		err := w.Upload("x.csv", "text/csv", partidosCSV())
		require.Error(t, err)
	})

	t.Run("cannot advance from upload without records", func(t *testing.T) {
		require.NoError(t, w.SelectKind(KindPartidos))
		require.NoError(t, w.Next(ctx))
		assert.False(t, w.CanAdvance())
	})

	t.Run("cannot go back from the first stage", func(t *testing.T) {
		fresh := newTestWizard(t, "http://localhost:0")
		require.Error(t, fresh.Back())
	})

	t.Run("kind cannot change after the first stage", func(t *testing.T) {
		require.Error(t, w.SelectKind(KindJugadas))
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		fresh := newTestWizard(t, "http://localhost:0")
		require.Error(t, fresh.SelectKind(Kind("torneos")))
	})
}

func TestWizardMappingEditClearsValidation(t *testing.T) {
	w := newTestWizard(t, "http://localhost:0")
	ctx := context.Background()

	require.NoError(t, w.SelectKind(KindPartidos))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Upload("partidos.csv", "text/csv", partidosCSV()))
	require.NoError(t, w.Next(ctx))

	_, err := w.Validate(ctx)
	require.NoError(t, err)
	require.NotNil(t, w.Session().Validation())

	// Any mapping edit invalidates the stored result synchronously.
	require.NoError(t, w.SetMapping("sede", "torneo"))
	assert.Nil(t, w.Session().Validation())
	assert.False(t, w.Session().CanImport())

	t.Run("unknown field is a mapping error", func(t *testing.T) {
		err := w.SetMapping("no_existe", "torneo")
		require.Error(t, err)
		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, ErrorTypeMapping, pe.Type)
	})
}

func TestWizardReset(t *testing.T) {
	var calls int64
	server := fakeRemote(t, &calls)
	defer server.Close()

	w := newTestWizard(t, server.URL)
	walkToExecute(t, w)

	oldID := w.Session().ID()
	w.Reset()

	assert.Equal(t, StageSelectKind, w.Stage())
	assert.NotEqual(t, oldID, w.Session().ID())
	assert.Equal(t, StatusDraft, w.Session().Status())
	assert.Empty(t, w.Session().Kind())
}

func TestWizardReuploadReplacesFile(t *testing.T) {
	w := newTestWizard(t, "http://localhost:0")
	ctx := context.Background()

	require.NoError(t, w.SelectKind(KindPartidos))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Upload("v1.csv", "text/csv", partidosCSV()))
	require.NoError(t, w.Next(ctx))

	_, err := w.Validate(ctx)
	require.NoError(t, err)

	require.NoError(t, w.Back())
	require.NoError(t, w.Upload("v2.csv", "text/csv", []byte("a,b\n1,2\n")))

	// The replacement discarded mapping and validation from the old file.
	assert.Nil(t, w.Session().Validation())
	assert.Empty(t, w.Session().Mapping())
	assert.Equal(t, "v2.csv", w.Session().Source().Name)
}
