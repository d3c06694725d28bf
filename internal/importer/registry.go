package importer

import (
	"fmt"
	"sync"
)

// KindSpec bundles everything one import kind needs: its schema, its rule
// set and the remote endpoint path. Adding a kind is one Register call.
type KindSpec struct {
	Kind         Kind
	Fields       []SchemaField
	Rules        RuleFunc
	EndpointPath string
}

// FieldList returns a copy of the ordered field definitions.
func (s *KindSpec) FieldList() []SchemaField {
	fields := make([]SchemaField, len(s.Fields))
	copy(fields, s.Fields)
	return fields
}

// Field returns the definition for a field key, if present.
func (s *KindSpec) Field(key string) (SchemaField, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return SchemaField{}, false
}

// TemplateHeaders returns the header row for a skeleton file of this kind.
func (s *KindSpec) TemplateHeaders() []string {
	headers := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		headers[i] = f.Key
	}
	return headers
}

// TemplateExample returns one example row matching TemplateHeaders.
func (s *KindSpec) TemplateExample() []string {
	row := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		row[i] = f.Example
	}
	return row
}

// KindRegistry manages registered import kinds in registration order.
type KindRegistry struct {
	mu    sync.RWMutex
	specs map[Kind]*KindSpec
	order []Kind
}

// NewKindRegistry creates an empty registry.
func NewKindRegistry() *KindRegistry {
	return &KindRegistry{specs: make(map[Kind]*KindSpec)}
}

// Register adds a kind to the registry.
func (r *KindRegistry) Register(spec *KindSpec) error {
	if spec == nil {
		return fmt.Errorf("cannot register nil kind spec")
	}
	if spec.Kind == "" {
		return fmt.Errorf("kind cannot be empty")
	}
	if spec.Rules == nil {
		return fmt.Errorf("kind %s has no rule set", spec.Kind)
	}
	if len(spec.Fields) == 0 {
		return fmt.Errorf("kind %s has no fields", spec.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Kind]; exists {
		return fmt.Errorf("kind %s already registered", spec.Kind)
	}
	r.specs[spec.Kind] = spec
	r.order = append(r.order, spec.Kind)
	return nil
}

// Get retrieves a kind spec.
func (r *KindRegistry) Get(kind Kind) (*KindSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, exists := r.specs[kind]
	if !exists {
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}
	return spec, nil
}

// Has checks whether a kind is registered.
func (r *KindRegistry) Has(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.specs[kind]
	return exists
}

// Kinds returns all registered kinds in registration order.
func (r *KindRegistry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, len(r.order))
	copy(kinds, r.order)
	return kinds
}

var (
	defaultRegistry     *KindRegistry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry with the built-in kinds.
func DefaultRegistry() *KindRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewKindRegistry()
		// Built-in kinds; Register only fails on duplicates or nil specs.
		_ = defaultRegistry.Register(&KindSpec{
			Kind:         KindPartidos,
			Fields:       partidosFields(),
			Rules:        rulesPartidos,
			EndpointPath: "/api/partidos/importar",
		})
		_ = defaultRegistry.Register(&KindSpec{
			Kind:         KindJugadas,
			Fields:       jugadasFields(),
			Rules:        rulesJugadas,
			EndpointPath: "/api/jugadas/importar",
		})
	})
	return defaultRegistry
}
