// Package scoring holds the play-by-play scoring schema for the match
// scoring form: per-play-type required fields, the defensive-touchdown
// checkbox and point computation. It shares its validation pattern with the
// import pipeline but the two subsystems are independent on purpose.
package scoring

import (
	"fmt"
)

// touchdownPoints is what a touchdown is worth, whether scored directly or
// as the result of a turnover return.
const touchdownPoints = 6

// PlaySpec describes one play type: which fields the scoring form requires,
// whether the play can additionally end in a touchdown, and its base point
// value.
type PlaySpec struct {
	ID                   string   `json:"id"`
	Label                string   `json:"label"`
	RequiredFields       []string `json:"required_fields"`
	HasTouchdownCheckbox bool     `json:"has_touchdown_checkbox"`
	ExtraTouchdownField  string   `json:"extra_touchdown_field,omitempty"`
	Points               int      `json:"points"`
}

// playSpecs is the declarative per-type schema, in form display order.
var playSpecs = []PlaySpec{
	{ID: "touchdown", Label: "Touchdown",
		RequiredFields: []string{"equipo_posesion", "numero_jugador"}, Points: touchdownPoints},
	{ID: "conversion_1pt", Label: "Conversión de 1 punto",
		RequiredFields: []string{"equipo_posesion", "numero_jugador"}, Points: 1},
	{ID: "conversion_2pt", Label: "Conversión de 2 puntos",
		RequiredFields: []string{"equipo_posesion", "numero_jugador"}, Points: 2},
	{ID: "gol_de_campo", Label: "Gol de campo",
		RequiredFields: []string{"equipo_posesion", "numero_jugador"}, Points: 3},
	{ID: "safety", Label: "Safety",
		RequiredFields: []string{"equipo_posesion"}, Points: 2},
	{ID: "intercepcion", Label: "Intercepción",
		RequiredFields:       []string{"equipo_posesion", "numero_jugador"},
		HasTouchdownCheckbox: true, ExtraTouchdownField: "numero_anotador"},
	{ID: "sack", Label: "Sack",
		RequiredFields: []string{"equipo_posesion", "numero_jugador"}},
	{ID: "tackeada", Label: "Tackeada",
		RequiredFields: []string{"equipo_posesion", "numero_jugador"}},
	{ID: "incompleto", Label: "Pase incompleto",
		RequiredFields: []string{"equipo_posesion"}},
}

// Play is one recorded play as submitted by the scoring form.
type Play struct {
	Type      string            `json:"type"`
	Fields    map[string]string `json:"fields"`
	Touchdown bool              `json:"touchdown,omitempty"`
}

// FieldError is one validation failure for a play.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Specs returns the per-type schema in display order.
func Specs() []PlaySpec {
	out := make([]PlaySpec, len(playSpecs))
	copy(out, playSpecs)
	return out
}

// SpecFor returns the schema for a play type.
func SpecFor(id string) (PlaySpec, bool) {
	for _, spec := range playSpecs {
		if spec.ID == id {
			return spec, true
		}
	}
	return PlaySpec{}, false
}

// Validate checks a play against its type schema: every required field must
// be present and non-blank, and when the touchdown checkbox is ticked the
// extra field it unlocks becomes required too.
func Validate(p Play) []FieldError {
	spec, ok := SpecFor(p.Type)
	if !ok {
		return []FieldError{{Field: "type", Message: "tipo de jugada no reconocido: " + p.Type}}
	}

	var errs []FieldError
	for _, field := range spec.RequiredFields {
		if p.Fields[field] == "" {
			errs = append(errs, FieldError{Field: field, Message: "Campo requerido faltante"})
		}
	}

	if p.Touchdown {
		if !spec.HasTouchdownCheckbox {
			errs = append(errs, FieldError{Field: "touchdown", Message: "esta jugada no puede terminar en touchdown"})
		} else if spec.ExtraTouchdownField != "" && p.Fields[spec.ExtraTouchdownField] == "" {
			errs = append(errs, FieldError{Field: spec.ExtraTouchdownField, Message: "Campo requerido faltante"})
		}
	}

	return errs
}

// Points computes the score value of a play: the type's base points, plus a
// touchdown when the play's checkbox is ticked.
func Points(p Play) int {
	spec, ok := SpecFor(p.Type)
	if !ok {
		return 0
	}
	points := spec.Points
	if p.Touchdown && spec.HasTouchdownCheckbox {
		points += touchdownPoints
	}
	return points
}
