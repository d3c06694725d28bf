package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMap(t *testing.T) {
	fields := partidosFields()

	t.Run("exact case-insensitive match wins", func(t *testing.T) {
		headers := []string{"EQUIPO_LOCAL", "equipo_visitante", "torneo", "fecha_hora"}
		mapping := AutoMap(headers, fields, nil, nil)

		assert.Equal(t, "EQUIPO_LOCAL", mapping["equipo_local"])
		assert.Equal(t, "equipo_visitante", mapping["equipo_visitante"])
	})

	t.Run("normalized containment either direction", func(t *testing.T) {
		headers := []string{"equipo local (casa)", "nombre torneo"}
		mapping := AutoMap(headers, fields, nil, nil)

		assert.Equal(t, "equipo local (casa)", mapping["equipo_local"])
		assert.Equal(t, "nombre torneo", mapping["torneo"])
	})

	t.Run("synonym table as last pass", func(t *testing.T) {
		headers := []string{"home", "away", "campeonato", "datetime"}
		mapping := AutoMap(headers, fields, nil, nil)

		assert.Equal(t, "home", mapping["equipo_local"])
		assert.Equal(t, "away", mapping["equipo_visitante"])
		assert.Equal(t, "campeonato", mapping["torneo"])
		assert.Equal(t, "datetime", mapping["fecha_hora"])
	})

	t.Run("touched fields are preserved", func(t *testing.T) {
		headers := []string{"equipo_local", "equipo_visitante"}
		current := Mapping{"equipo_local": "mi_columna"}
		skip := map[string]bool{"equipo_local": true}

		mapping := AutoMap(headers, fields, current, skip)
		assert.Equal(t, "mi_columna", mapping["equipo_local"])
		assert.Equal(t, "equipo_visitante", mapping["equipo_visitante"])
	})

	t.Run("unmatched untouched fields are unset", func(t *testing.T) {
		current := Mapping{"sede": "stale_header"}
		mapping := AutoMap([]string{"equipo_local"}, fields, current, nil)

		_, ok := mapping["sede"]
		assert.False(t, ok)
	})

	t.Run("rerun with same headers is idempotent", func(t *testing.T) {
		headers := []string{"equipo_local", "torneo", "fecha"}
		first := AutoMap(headers, fields, nil, nil)
		second := AutoMap(headers, fields, first, nil)
		assert.Equal(t, first, second)
	})
}

func TestValidateMapping(t *testing.T) {
	fields := []SchemaField{
		{Key: "req", Required: true},
		{Key: "opt", Required: false},
	}
	headers := []string{"col_a", "col_b"}

	t.Run("required unmapped is an error", func(t *testing.T) {
		statuses := ValidateMapping(Mapping{}, headers, fields)
		require.Len(t, statuses, 2)

		assert.Equal(t, MappingError, statuses[0].Status)
		assert.Equal(t, "Campo requerido sin columna asignada", statuses[0].Message)
		assert.Equal(t, MappingInfo, statuses[1].Status)
		assert.True(t, MappingBlocked(statuses))
	})

	t.Run("mapped to missing header is an error", func(t *testing.T) {
		statuses := ValidateMapping(Mapping{"req": "gone"}, headers, fields)
		assert.Equal(t, MappingError, statuses[0].Status)
		assert.Equal(t, "La columna asignada no existe en el archivo", statuses[0].Message)
	})

	t.Run("fully mapped passes", func(t *testing.T) {
		statuses := ValidateMapping(Mapping{"req": "col_a", "opt": "col_b"}, headers, fields)
		for _, s := range statuses {
			assert.Equal(t, MappingOK, s.Status)
		}
		assert.False(t, MappingBlocked(statuses))
	})
}
