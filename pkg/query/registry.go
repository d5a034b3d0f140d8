package query

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// registry is the id-keyed store shared by SpecRegistry and DefinitionRegistry.
// Entries are populated at start-up and the registry is then sealed; lookups
// are safe for concurrent use.
type registry[T any] struct {
	kind   string
	mu     sync.RWMutex
	data   map[string]T
	sealed atomic.Bool
}

func newRegistry[T any](kind string) *registry[T] {
	return &registry[T]{
		kind: kind,
		data: make(map[string]T),
	}
}

func (r *registry[T]) register(id string, v T) error {
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %s %q", ErrSealed, r.kind, id)
	}
	if id == "" {
		return fmt.Errorf("%w: empty %s id", ErrInvalidID, r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[id]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateID, r.kind, id)
	}
	r.data[id] = v
	return nil
}

func (r *registry[T]) lookup(id string) (T, error) {
	r.mu.RLock()
	v, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrNotFound, r.kind, id)
	}
	return v, nil
}

func (r *registry[T]) ids() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// SpecRegistry stores specifications by id.
type SpecRegistry struct {
	reg *registry[*Specification]
}

// NewSpecRegistry creates an empty SpecRegistry.
func NewSpecRegistry() *SpecRegistry {
	return &SpecRegistry{reg: newRegistry[*Specification]("specification")}
}

// Register stores a copy of spec under spec.ID. It fails with ErrDuplicateID if
// the id is taken and ErrDuplicateConstraintName if two constraints share a name.
func (r *SpecRegistry) Register(spec Specification) error {
	seen := make(map[string]struct{}, len(spec.Constraints))
	for _, c := range spec.Constraints {
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: %q in specification %q", ErrDuplicateConstraintName, c.Name, spec.ID)
		}
		seen[c.Name] = struct{}{}
	}

	spec.Constraints = slices.Clone(spec.Constraints)
	return r.reg.register(spec.ID, &spec)
}

// Lookup returns a copy of the specification registered under id.
func (r *SpecRegistry) Lookup(id string) (*Specification, error) {
	spec, err := r.reg.lookup(id)
	if err != nil {
		return nil, err
	}
	clone := *spec
	clone.Constraints = slices.Clone(spec.Constraints)
	return &clone, nil
}

// IDs returns the registered ids in lexical order.
func (r *SpecRegistry) IDs() []string {
	return r.reg.ids()
}

// Seal prevents further registrations. Returns true if this call sealed the registry.
func (r *SpecRegistry) Seal() bool {
	return !r.reg.sealed.Swap(true)
}

// DefinitionRegistry stores query definitions by id.
type DefinitionRegistry struct {
	reg *registry[*Definition]
}

// NewDefinitionRegistry creates an empty DefinitionRegistry.
func NewDefinitionRegistry() *DefinitionRegistry {
	return &DefinitionRegistry{reg: newRegistry[*Definition]("definition")}
}

// Register stores a copy of def under def.ID. The spec reference and the
// assigned values are validated lazily, at normalization time.
func (r *DefinitionRegistry) Register(def Definition) error {
	def.Assignments = slices.Clone(def.Assignments)
	return r.reg.register(def.ID, &def)
}

// Lookup returns a copy of the definition registered under id.
func (r *DefinitionRegistry) Lookup(id string) (*Definition, error) {
	def, err := r.reg.lookup(id)
	if err != nil {
		return nil, err
	}
	clone := *def
	clone.Assignments = slices.Clone(def.Assignments)
	return &clone, nil
}

// IDs returns the registered ids in lexical order.
func (r *DefinitionRegistry) IDs() []string {
	return r.reg.ids()
}

// Seal prevents further registrations. Returns true if this call sealed the registry.
func (r *DefinitionRegistry) Seal() bool {
	return !r.reg.sealed.Swap(true)
}
