package importer

// Kind identifies the category of domain entity being bulk-loaded.
// It determines the schema, the validation rule set and the remote endpoint.
type Kind string

const (
	KindPartidos Kind = "partidos"
	KindJugadas  Kind = "jugadas"
)

// SchemaField describes one logical field of an import kind.
// Instances are immutable; they are defined once per kind at registration.
type SchemaField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

// Match statuses (partidos.estado).
var MatchStatuses = []string{"programado", "en_juego", "finalizado", "cancelado"}

// Play types (jugadas.tipo_jugada). The scoring form keeps its own copy of
// this set; the two subsystems are intentionally independent.
var PlayTypes = []string{
	"touchdown",
	"conversion_1pt",
	"conversion_2pt",
	"gol_de_campo",
	"safety",
	"intercepcion",
	"sack",
	"tackeada",
	"incompleto",
}

// Possession flags (jugadas.equipo_posesion).
var PossessionTeams = []string{"local", "visitante"}

func partidosFields() []SchemaField {
	return []SchemaField{
		{Key: "equipo_local", Label: "Equipo local", Required: true,
			Description: "Nombre del equipo local", Example: "Tigres"},
		{Key: "equipo_visitante", Label: "Equipo visitante", Required: true,
			Description: "Nombre del equipo visitante", Example: "Leones"},
		{Key: "torneo", Label: "Torneo", Required: true,
			Description: "Torneo al que pertenece el partido", Example: "Liga Primavera"},
		{Key: "fecha_hora", Label: "Fecha y hora", Required: true,
			Description: "Fecha y hora programada (YYYY-MM-DD HH:MM)", Example: "2024-03-15 16:00"},
		{Key: "estado", Label: "Estado", Required: false,
			Description: "Estado del partido (programado, en_juego, finalizado, cancelado)", Example: "programado"},
		{Key: "puntos_local", Label: "Puntos local", Required: false,
			Description: "Marcador final del equipo local", Example: "21"},
		{Key: "puntos_visitante", Label: "Puntos visitante", Required: false,
			Description: "Marcador final del equipo visitante", Example: "14"},
		{Key: "sede", Label: "Sede", Required: false,
			Description: "Campo o estadio donde se juega", Example: "Campo Norte"},
		{Key: "arbitro", Label: "Árbitro", Required: false,
			Description: "Nombre del árbitro principal", Example: "J. Ramírez"},
	}
}

func jugadasFields() []SchemaField {
	return []SchemaField{
		{Key: "partido_id", Label: "Partido", Required: true,
			Description: "Identificador del partido (24 caracteres hexadecimales)", Example: "65a1b2c3d4e5f6a7b8c9d0e1"},
		{Key: "tipo_jugada", Label: "Tipo de jugada", Required: true,
			Description: "Tipo de jugada (touchdown, conversion_1pt, ...)", Example: "touchdown"},
		{Key: "equipo_posesion", Label: "Equipo en posesión", Required: true,
			Description: "Equipo con posesión del balón (local o visitante)", Example: "local"},
		{Key: "numero_jugador", Label: "Número de jugador", Required: false,
			Description: "Número del jugador que anota o ejecuta la jugada", Example: "7"},
		{Key: "periodo", Label: "Periodo", Required: false,
			Description: "Periodo del partido (1-4)", Example: "2"},
		{Key: "minuto", Label: "Minuto", Required: false,
			Description: "Minuto dentro del periodo", Example: "12"},
		{Key: "segundo", Label: "Segundo", Required: false,
			Description: "Segundo dentro del minuto", Example: "45"},
		{Key: "puntos", Label: "Puntos", Required: false,
			Description: "Puntos anotados por la jugada", Example: "6"},
	}
}

// FieldsFor returns the ordered field definitions for a kind, or nil when
// the kind is unknown. The returned slice is a fresh copy.
func FieldsFor(kind Kind) []SchemaField {
	spec, err := DefaultRegistry().Get(kind)
	if err != nil {
		return nil
	}
	return spec.FieldList()
}
