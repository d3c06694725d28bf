package importer

// Milestone is one of the staged progress marks the executor reports while
// the remote import is in flight. The sequence is a UX contract; it is not
// tied to real remote progress.
type Milestone string

const (
	MilestoneBegin      Milestone = "begin"
	MilestoneValidating Milestone = "validating"
	MilestoneMapping    Milestone = "mapping_entities"
	MilestoneSubmitting Milestone = "submitting"
	MilestoneDone       Milestone = "done"
)

// Progress is one reported milestone for one session.
type Progress struct {
	SessionID string    `json:"session_id"`
	Kind      Kind      `json:"kind"`
	Milestone Milestone `json:"milestone"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message"`
}

// ProgressReporter receives executor milestones. Implementations must not
// block; reports are fire-and-forget.
type ProgressReporter interface {
	Report(p Progress)
}

// ReporterFunc adapts a function to the ProgressReporter interface.
type ReporterFunc func(p Progress)

// Report implements ProgressReporter.
func (f ReporterFunc) Report(p Progress) { f(p) }

// NopReporter discards all progress reports.
var NopReporter ProgressReporter = ReporterFunc(func(Progress) {})

// executionMilestones is the fixed milestone script, in order.
var executionMilestones = []struct {
	Milestone Milestone
	Percent   float64
	Message   string
}{
	{MilestoneBegin, 5, "Iniciando importación"},
	{MilestoneValidating, 25, "Validando registros"},
	{MilestoneMapping, 50, "Resolviendo entidades en el servidor"},
	{MilestoneSubmitting, 75, "Enviando archivo"},
}

var doneMilestone = struct {
	Milestone Milestone
	Percent   float64
	Message   string
}{MilestoneDone, 100, "Importación finalizada"}
