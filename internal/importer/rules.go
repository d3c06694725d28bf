package importer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// matchIDPattern is the wire format of match identifiers: 24 hex chars.
// Existence of the referenced match is checked server-side at import time.
var matchIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// dateLayouts are the accepted fecha_hora formats, most specific first.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// dateDriftWarn is how far a timestamp may sit from now before it draws a
// warning. Typos in the year are the usual culprit.
const dateDriftWarn = 365 * 24 * time.Hour

func rulesPartidos(row int, rec MappedRecord) []Finding {
	var findings []Finding

	local := asString(rec["equipo_local"])
	visitante := asString(rec["equipo_visitante"])
	if local != "" && visitante != "" && strings.EqualFold(local, visitante) {
		findings = append(findings, Finding{
			Row:      row,
			Severity: SeverityError,
			Field:    "equipos",
			Message:  "El equipo local y el visitante no pueden ser el mismo",
			Value:    local,
		})
	}

	if raw := rec["fecha_hora"]; !isBlank(raw) {
		findings = append(findings, checkDate(row, "fecha_hora", raw)...)
	}

	if raw := rec["estado"]; !isBlank(raw) {
		findings = append(findings, checkEnum(row, "estado", raw, MatchStatuses,
			"Estado no reconocido")...)
	}

	findings = append(findings, checkScore(row, "puntos_local", rec["puntos_local"])...)
	findings = append(findings, checkScore(row, "puntos_visitante", rec["puntos_visitante"])...)

	return findings
}

func rulesJugadas(row int, rec MappedRecord) []Finding {
	var findings []Finding

	if raw := rec["partido_id"]; !isBlank(raw) {
		if !matchIDPattern.MatchString(asString(raw)) {
			findings = append(findings, Finding{
				Row:        row,
				Severity:   SeverityError,
				Field:      "partido_id",
				Message:    "Identificador de partido inválido",
				Value:      asString(raw),
				Suggestion: "Se esperan 24 caracteres hexadecimales",
			})
		}
	}

	if raw := rec["tipo_jugada"]; !isBlank(raw) {
		findings = append(findings, checkEnum(row, "tipo_jugada", raw, PlayTypes,
			"Tipo de jugada no reconocido")...)
	}

	if raw := rec["equipo_posesion"]; !isBlank(raw) {
		findings = append(findings, checkEnum(row, "equipo_posesion", raw, PossessionTeams,
			"Equipo en posesión inválido")...)
	}

	findings = append(findings, checkBoundedInt(row, "numero_jugador", rec["numero_jugador"], 0, 99)...)
	findings = append(findings, checkBoundedInt(row, "periodo", rec["periodo"], 1, 4)...)
	findings = append(findings, checkBoundedInt(row, "minuto", rec["minuto"], 0, 60)...)
	findings = append(findings, checkBoundedInt(row, "segundo", rec["segundo"], 0, 59)...)
	findings = append(findings, checkBoundedInt(row, "puntos", rec["puntos"], 0, 8)...)

	return findings
}

func checkDate(row int, field string, raw any) []Finding {
	s := asString(raw)
	ts, ok := parseDate(s)
	if !ok {
		return []Finding{{
			Row:        row,
			Severity:   SeverityError,
			Field:      field,
			Message:    "Fecha y hora inválida",
			Value:      s,
			Suggestion: "Formato esperado: 2024-03-15 16:00",
		}}
	}
	if drift := time.Since(ts); drift > dateDriftWarn || drift < -dateDriftWarn {
		return []Finding{{
			Row:      row,
			Severity: SeverityWarning,
			Field:    field,
			Message:  "La fecha está a más de un año de distancia",
			Value:    s,
		}}
	}
	return nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func checkEnum(row int, field string, raw any, allowed []string, message string) []Finding {
	s := strings.ToLower(asString(raw))
	for _, v := range allowed {
		if s == v {
			return nil
		}
	}
	return []Finding{{
		Row:        row,
		Severity:   SeverityError,
		Field:      field,
		Message:    message,
		Value:      asString(raw),
		Suggestion: "Valores permitidos: " + strings.Join(allowed, ", "),
	}}
}

// checkScore validates an optional score column: non-negative integer or
// blank, with a warning past the range any real game reaches.
func checkScore(row int, field string, raw any) []Finding {
	if isBlank(raw) {
		return nil
	}
	n, ok := intValue(raw)
	if !ok || n < 0 {
		return []Finding{{
			Row:      row,
			Severity: SeverityError,
			Field:    field,
			Message:  "Debe ser un número entero no negativo",
			Value:    asString(raw),
		}}
	}
	if n > 150 {
		return []Finding{{
			Row:      row,
			Severity: SeverityWarning,
			Field:    field,
			Message:  "Marcador fuera del rango habitual",
			Value:    asString(raw),
		}}
	}
	return nil
}

// checkBoundedInt validates an optional counter column: non-negative
// integers are required, values outside [min, max] only warn.
func checkBoundedInt(row int, field string, raw any, min, max int) []Finding {
	if isBlank(raw) {
		return nil
	}
	n, ok := intValue(raw)
	if !ok || n < 0 {
		return []Finding{{
			Row:      row,
			Severity: SeverityError,
			Field:    field,
			Message:  "Debe ser un número entero no negativo",
			Value:    asString(raw),
		}}
	}
	if n < min || n > max {
		return []Finding{{
			Row:        row,
			Severity:   SeverityWarning,
			Field:      field,
			Message:    "Valor fuera del rango habitual",
			Value:      asString(raw),
			Suggestion: fmt.Sprintf("Rango esperado: %d-%d", min, max),
		}}
	}
	return nil
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

func intValue(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int(val), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
