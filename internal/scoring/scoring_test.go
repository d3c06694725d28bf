package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecs(t *testing.T) {
	specs := Specs()
	require.Len(t, specs, 9)
	assert.Equal(t, "touchdown", specs[0].ID)

	spec, ok := SpecFor("intercepcion")
	require.True(t, ok)
	assert.True(t, spec.HasTouchdownCheckbox)
	assert.Equal(t, "numero_anotador", spec.ExtraTouchdownField)

	_, ok = SpecFor("volcada")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		play       Play
		wantFields []string
	}{
		{
			name: "valid touchdown",
			play: Play{Type: "touchdown", Fields: map[string]string{
				"equipo_posesion": "local", "numero_jugador": "7"}},
		},
		{
			name:       "missing required field",
			play:       Play{Type: "touchdown", Fields: map[string]string{"equipo_posesion": "local"}},
			wantFields: []string{"numero_jugador"},
		},
		{
			name:       "unknown play type",
			play:       Play{Type: "volcada"},
			wantFields: []string{"type"},
		},
		{
			name: "touchdown flag on a play without the checkbox",
			play: Play{Type: "sack", Touchdown: true, Fields: map[string]string{
				"equipo_posesion": "local", "numero_jugador": "55"}},
			wantFields: []string{"touchdown"},
		},
		{
			name: "ticked checkbox requires the scorer field",
			play: Play{Type: "intercepcion", Touchdown: true, Fields: map[string]string{
				"equipo_posesion": "visitante", "numero_jugador": "21"}},
			wantFields: []string{"numero_anotador"},
		},
		{
			name: "interception returned for touchdown",
			play: Play{Type: "intercepcion", Touchdown: true, Fields: map[string]string{
				"equipo_posesion": "visitante", "numero_jugador": "21", "numero_anotador": "21"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.play)
			require.Len(t, errs, len(tt.wantFields))
			for i, field := range tt.wantFields {
				assert.Equal(t, field, errs[i].Field)
			}
		})
	}
}

func TestPoints(t *testing.T) {
	tests := []struct {
		name string
		play Play
		want int
	}{
		{"touchdown", Play{Type: "touchdown"}, 6},
		{"one point conversion", Play{Type: "conversion_1pt"}, 1},
		{"two point conversion", Play{Type: "conversion_2pt"}, 2},
		{"field goal", Play{Type: "gol_de_campo"}, 3},
		{"safety", Play{Type: "safety"}, 2},
		{"plain interception", Play{Type: "intercepcion"}, 0},
		{"pick six", Play{Type: "intercepcion", Touchdown: true}, 6},
		{"flag ignored without checkbox", Play{Type: "sack", Touchdown: true}, 0},
		{"unknown type", Play{Type: "volcada"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Points(tt.play))
		})
	}
}
