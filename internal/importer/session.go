package importer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of an import session.
type SessionStatus string

const (
	// StatusDraft covers every stage up to and including validation.
	StatusDraft SessionStatus = "draft"
	// StatusImported marks a spent session: the remote import ran and the
	// session must never be submitted again.
	StatusImported SessionStatus = "imported"
)

// SourceFile is the uploaded file, owned exclusively by its session. The
// original bytes are kept because execution submits the file itself, not
// the parsed records.
type SourceFile struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"-"`
}

// Session is the single mutable state container for one wizard run. It is
// transient: created when the wizard starts, discarded on reset or expiry,
// never persisted.
type Session struct {
	mu sync.RWMutex

	id         string
	status     SessionStatus
	kind       Kind
	source     *SourceFile
	headers    []string
	records    []Record
	skipped    int
	mapping    Mapping
	touched    map[string]bool
	validation *ValidationResult
	outcome    *ImportOutcome

	createdAt  time.Time
	lastActive time.Time
}

// NewSession creates an empty draft session.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		id:         uuid.NewString(),
		status:     StatusDraft,
		mapping:    make(Mapping),
		touched:    make(map[string]bool),
		createdAt:  now,
		lastActive: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the lifecycle status.
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Kind returns the chosen import kind, or "" before stage one completes.
func (s *Session) Kind() Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kind
}

// SetKind fixes the import kind. It may only be set once.
func (s *Session) SetKind(kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != "" && s.kind != kind {
		return NewStateError("select_kind", "el tipo de importación no puede cambiarse")
	}
	s.kind = kind
	s.lastActive = time.Now()
	return nil
}

// SetSource stores a freshly parsed upload. A re-upload replaces the
// previous file and discards mapping and validation, which referenced the
// old headers.
func (s *Session) SetSource(file *SourceFile, parsed *ParseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = file
	s.headers = parsed.Headers
	s.records = parsed.Records
	s.skipped = parsed.SkippedRows
	s.mapping = make(Mapping)
	s.touched = make(map[string]bool)
	s.validation = nil
	s.lastActive = time.Now()
}

// Source returns the uploaded file handle, or nil before upload.
func (s *Session) Source() *SourceFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Headers returns the raw header list in file order.
func (s *Session) Headers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	headers := make([]string, len(s.headers))
	copy(headers, s.headers)
	return headers
}

// Records returns the parsed records. The slice is shared; callers must
// treat it as read-only.
func (s *Session) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// SkippedRows returns the count of malformed rows dropped at parse time.
func (s *Session) SkippedRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped
}

// Mapping returns a copy of the current field-to-header mapping.
func (s *Session) Mapping() Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Mapping, len(s.mapping))
	for k, v := range s.mapping {
		out[k] = v
	}
	return out
}

// AutoMap recomputes the automatic mapping for every field the user has not
// touched. Idempotent; a rerun with the same headers yields the same result.
// Any change to the mapping invalidates the stored validation.
func (s *Session) AutoMap(fields []SchemaField) Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := AutoMap(s.headers, fields, s.mapping, s.touched)
	if !mappingsEqual(s.mapping, next) {
		s.validation = nil
	}
	s.mapping = next
	s.lastActive = time.Now()
	return s.copyMappingLocked()
}

// SetMappingField assigns a header to a field by hand, or unsets it when
// header is empty. Manual assignments survive AutoMap reruns. The stored
// validation is cleared synchronously: a stale result must never outlive a
// mapping edit.
func (s *Session) SetMappingField(field, header string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if header == "" {
		delete(s.mapping, field)
	} else {
		s.mapping[field] = header
	}
	s.touched[field] = true
	s.validation = nil
	s.lastActive = time.Now()
}

// Validation returns the result of the last validation run, or nil.
func (s *Session) Validation() *ValidationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validation
}

// SetValidation replaces the stored validation result wholesale.
func (s *Session) SetValidation(result *ValidationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validation = result
	s.lastActive = time.Now()
}

// ImportResult returns the outcome of the remote import, or nil.
func (s *Session) ImportResult() *ImportOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// SetImportResult records the remote outcome and marks the session spent.
func (s *Session) SetImportResult(outcome *ImportOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcome = outcome
	s.status = StatusImported
	s.lastActive = time.Now()
}

// CanImport reports whether the session is eligible for execution: a
// passing validation and no prior import. A spent session is never
// eligible, whatever the stored validation says.
func (s *Session) CanImport() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == StatusImported || s.outcome != nil {
		return false
	}
	return s.validation != nil && s.validation.CanImport
}

// LastActive returns the time of the last mutation, used for idle expiry.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) copyMappingLocked() Mapping {
	out := make(Mapping, len(s.mapping))
	for k, v := range s.mapping {
		out[k] = v
	}
	return out
}

func mappingsEqual(a, b Mapping) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
