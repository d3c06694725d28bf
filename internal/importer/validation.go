package importer

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Severity classifies a finding. Errors block the import; warnings are
// advisory and never gate anything.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one validation result entry for one row.
type Finding struct {
	Row        int          `json:"row"`
	Severity   Severity     `json:"severity"`
	Field      string       `json:"field"`
	Message    string       `json:"message"`
	Value      string       `json:"value,omitempty"`
	Suggestion string       `json:"suggestion,omitempty"`
	Record     MappedRecord `json:"record,omitempty"`
}

// MappedRecord is one record projected through the mapping: field key to
// raw value.
type MappedRecord map[string]any

// Stats aggregates one validation run.
type Stats struct {
	Total    int                `json:"total"`
	Valid    int                `json:"valid"`
	Errors   int                `json:"errors"`
	Warnings int                `json:"warnings"`
	Coverage map[string]float64 `json:"coverage"`
}

// ValidationResult is the output of one validation run. It is replaced
// wholesale on re-validation, never patched.
type ValidationResult struct {
	Findings  []Finding      `json:"findings"`
	Stats     Stats          `json:"stats"`
	Preview   []MappedRecord `json:"preview"`
	CanImport bool           `json:"can_import"`
}

// RuleFunc validates one mapped record. Implementations must be pure: no
// state shared across rows, same input always yields the same findings.
type RuleFunc func(row int, rec MappedRecord) []Finding

// previewLimit is how many clean records the result carries for user
// confirmation before execution.
const previewLimit = 5

// Validate runs the generic required-field rule and the kind's rule set over
// every record. Rows fan out over a bounded worker pool; per-row findings
// are collected by index so the output is deterministic regardless of
// scheduling.
func Validate(ctx context.Context, records []Record, mapping Mapping, spec *KindSpec) *ValidationResult {
	fields := spec.FieldList()
	effective := effectiveMapping(mapping, recordHeaders(records))

	rowFindings := make([][]Finding, len(records))
	mapped := make([]MappedRecord, len(records))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range records {
		g.Go(func() error {
			row := i + 1
			rec := project(records[i], effective, fields)
			findings := requiredFindings(row, rec, fields)
			findings = append(findings, spec.Rules(row, rec)...)
			for j := range findings {
				findings[j].Record = rec
			}
			mapped[i] = rec
			rowFindings[i] = findings
			return nil
		})
	}
	// Workers never return errors; findings are data, not failures.
	_ = g.Wait()

	result := &ValidationResult{Stats: Stats{
		Total:    len(records),
		Coverage: make(map[string]float64, len(fields)),
	}}

	covered := make(map[string]int, len(fields))
	for i := range records {
		findings := rowFindings[i]
		hasError := false
		for _, f := range findings {
			switch f.Severity {
			case SeverityError:
				result.Stats.Errors++
				hasError = true
			case SeverityWarning:
				result.Stats.Warnings++
			}
		}
		result.Findings = append(result.Findings, findings...)

		rec := mapped[i]
		for _, field := range fields {
			if !isBlank(rec[field.Key]) {
				covered[field.Key]++
			}
		}
		if !hasError {
			result.Stats.Valid++
			if len(result.Preview) < previewLimit {
				result.Preview = append(result.Preview, rec)
			}
		}
	}

	for _, field := range fields {
		if result.Stats.Total == 0 {
			result.Stats.Coverage[field.Key] = 0
			continue
		}
		result.Stats.Coverage[field.Key] = float64(covered[field.Key]) / float64(result.Stats.Total)
	}

	sort.SliceStable(result.Findings, func(a, b int) bool {
		return result.Findings[a].Row < result.Findings[b].Row
	})

	result.CanImport = result.Stats.Errors == 0 && result.Stats.Total > 0
	return result
}

// effectiveMapping drops entries pointing at headers the file does not
// have, so a desynced mapping degrades to "unmapped" instead of reading
// garbage. The desync itself is reported by ValidateMapping.
func effectiveMapping(mapping Mapping, headers map[string]bool) Mapping {
	out := make(Mapping, len(mapping))
	for field, header := range mapping {
		if header != "" && headers[header] {
			out[field] = header
		}
	}
	return out
}

func recordHeaders(records []Record) map[string]bool {
	headers := make(map[string]bool)
	for _, rec := range records {
		for h := range rec {
			headers[h] = true
		}
	}
	return headers
}

func project(rec Record, mapping Mapping, fields []SchemaField) MappedRecord {
	out := make(MappedRecord, len(fields))
	for _, field := range fields {
		if header, ok := mapping[field.Key]; ok {
			out[field.Key] = rec[header]
		}
	}
	return out
}

func requiredFindings(row int, rec MappedRecord, fields []SchemaField) []Finding {
	var findings []Finding
	for _, field := range fields {
		if !field.Required {
			continue
		}
		if isBlank(rec[field.Key]) {
			findings = append(findings, Finding{
				Row:      row,
				Severity: SeverityError,
				Field:    field.Key,
				Message:  "Campo requerido faltante",
			})
		}
	}
	return findings
}
