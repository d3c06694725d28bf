package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []Kind{KindPartidos, KindJugadas}, r.Kinds())
	assert.True(t, r.Has(KindPartidos))
	assert.False(t, r.Has(Kind("torneos")))

	spec, err := r.Get(KindPartidos)
	require.NoError(t, err)
	assert.Equal(t, "/api/partidos/importar", spec.EndpointPath)

	_, err = r.Get(Kind("torneos"))
	require.Error(t, err)
}

func TestRegistryRegisterValidation(t *testing.T) {
	rules := func(row int, rec MappedRecord) []Finding { return nil }
	fields := []SchemaField{{Key: "a", Required: true}}

	tests := []struct {
		name    string
		spec    *KindSpec
		wantErr string
	}{
		{"nil spec", nil, "cannot register nil kind spec"},
		{"empty kind", &KindSpec{Fields: fields, Rules: rules}, "kind cannot be empty"},
		{"no rules", &KindSpec{Kind: "x", Fields: fields}, "has no rule set"},
		{"no fields", &KindSpec{Kind: "x", Rules: rules}, "has no fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewKindRegistry()
			err := r.Register(tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("duplicate registration fails", func(t *testing.T) {
		r := NewKindRegistry()
		spec := &KindSpec{Kind: "x", Fields: fields, Rules: rules}
		require.NoError(t, r.Register(spec))
		require.Error(t, r.Register(spec))
	})
}

func TestKindSpecTemplates(t *testing.T) {
	spec, err := DefaultRegistry().Get(KindJugadas)
	require.NoError(t, err)

	headers := spec.TemplateHeaders()
	example := spec.TemplateExample()
	require.Equal(t, len(headers), len(example))
	assert.Equal(t, "partido_id", headers[0])
	assert.Equal(t, "65a1b2c3d4e5f6a7b8c9d0e1", example[0])
}

func TestFieldsFor(t *testing.T) {
	fields := FieldsFor(KindPartidos)
	require.NotEmpty(t, fields)
	assert.Equal(t, "equipo_local", fields[0].Key)
	assert.True(t, fields[0].Required)

	assert.Nil(t, FieldsFor(Kind("torneos")))
}
