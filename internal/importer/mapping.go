package importer

import (
	"strings"
)

// Mapping associates logical field keys with raw headers. An absent or empty
// entry means the field is unmapped.
type Mapping map[string]string

// FieldMappingStatus is the per-field outcome of ValidateMapping.
type FieldMappingStatus string

const (
	MappingOK    FieldMappingStatus = "success"
	MappingError FieldMappingStatus = "error"
	MappingInfo  FieldMappingStatus = "info"
)

// FieldMapping is the validity report for one schema field.
type FieldMapping struct {
	Field   string             `json:"field"`
	Header  string             `json:"header,omitempty"`
	Status  FieldMappingStatus `json:"status"`
	Message string             `json:"message,omitempty"`
}

// synonyms lists alternative header fragments accepted per field key, used
// as the last matching pass after exact and normalized containment.
var synonyms = map[string][]string{
	"equipo_local":     {"local", "home", "casa", "equipo1"},
	"equipo_visitante": {"visitante", "away", "visita", "equipo2"},
	"torneo":           {"tournament", "liga", "campeonato"},
	"fecha_hora":       {"fecha", "date", "hora", "datetime"},
	"estado":           {"status"},
	"puntos_local":     {"marcadorlocal", "scorelocal", "goleslocal"},
	"puntos_visitante": {"marcadorvisitante", "scorevisitante", "golesvisitante"},
	"sede":             {"estadio", "lugar", "venue", "campo"},
	"arbitro":          {"referee", "juez"},
	"partido_id":       {"partido", "match", "idpartido"},
	"tipo_jugada":      {"tipo", "jugada", "play", "accion"},
	"equipo_posesion":  {"posesion", "possession", "ofensiva"},
	"numero_jugador":   {"jugador", "numero", "player", "dorsal"},
	"periodo":          {"cuarto", "quarter"},
	"minuto":           {"min"},
	"segundo":          {"seg", "sec"},
	"puntos":           {"points", "pts"},
}

// AutoMap produces a best-effort mapping from raw headers to schema fields.
// Fields listed in skip keep whatever the caller already assigned; only
// unset fields are matched. Matching precedence per field, first hit wins:
// exact case-insensitive equality, normalized substring containment in
// either direction, then the synonym table. Fields with no match stay
// unmapped; whether that matters is decided at validation time.
func AutoMap(headers []string, fields []SchemaField, current Mapping, skip map[string]bool) Mapping {
	mapping := make(Mapping, len(fields))
	for k, v := range current {
		mapping[k] = v
	}

	for _, field := range fields {
		if skip[field.Key] {
			continue
		}
		if h := matchHeader(field.Key, headers); h != "" {
			mapping[field.Key] = h
		} else {
			delete(mapping, field.Key)
		}
	}
	return mapping
}

func matchHeader(key string, headers []string) string {
	// Pass 1: exact, case-insensitive.
	for _, h := range headers {
		if strings.EqualFold(h, key) {
			return h
		}
	}

	// Pass 2: normalized containment either direction.
	nk := normalizeForMatch(key)
	for _, h := range headers {
		nh := normalizeForMatch(h)
		if nh == "" {
			continue
		}
		if strings.Contains(nh, nk) || strings.Contains(nk, nh) {
			return h
		}
	}

	// Pass 3: synonym table.
	for _, syn := range synonyms[key] {
		for _, h := range headers {
			if strings.Contains(normalizeForMatch(h), syn) {
				return h
			}
		}
	}

	return ""
}

// normalizeForMatch strips separators and whitespace so "Equipo Local",
// "equipo-local" and "equipo_local" all compare equal.
func normalizeForMatch(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '_', '-', '.', '/':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateMapping reports per-field validity: success when mapped to an
// existing header, error when required and unmapped or mapped to a header
// absent from headers, info when optional and unmapped.
func ValidateMapping(mapping Mapping, headers []string, fields []SchemaField) []FieldMapping {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}

	out := make([]FieldMapping, 0, len(fields))
	for _, field := range fields {
		fm := FieldMapping{Field: field.Key, Header: mapping[field.Key]}
		switch {
		case fm.Header == "" && field.Required:
			fm.Status = MappingError
			fm.Message = "Campo requerido sin columna asignada"
		case fm.Header == "":
			fm.Status = MappingInfo
			fm.Message = "Campo opcional sin columna asignada"
		case !known[fm.Header]:
			fm.Status = MappingError
			fm.Message = "La columna asignada no existe en el archivo"
		default:
			fm.Status = MappingOK
		}
		out = append(out, fm)
	}
	return out
}

// MappingBlocked reports whether any field carries a mapping-level error.
func MappingBlocked(statuses []FieldMapping) bool {
	for _, s := range statuses {
		if s.Status == MappingError {
			return true
		}
	}
	return false
}
