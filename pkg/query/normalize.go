package query

import (
	"github.com/jaxron/listgen/pkg/client/logger"
)

// DropReason tells why an assignment was left out of a normalized query.
type DropReason int

const (
	// DropInvalidValue marks a value outside its constraint's allowed set.
	DropInvalidValue DropReason = iota
	// DropUndeclared marks a parameter the specification does not declare.
	DropUndeclared
)

func (r DropReason) String() string {
	switch r {
	case DropInvalidValue:
		return "invalid value"
	case DropUndeclared:
		return "undeclared parameter"
	default:
		return "unknown"
	}
}

// Dropped describes an assignment excluded during normalization.
type Dropped struct {
	SpecID       string
	DefinitionID string
	Name         string
	Value        string
	Reason       DropReason
}

// DropFunc receives every assignment excluded during normalization.
type DropFunc func(Dropped)

// Normalize validates def against spec and returns the accepted assignments
// ordered by the specification's constraint order. Within a parameter the
// definition's order is kept. Values outside the allowed set are dropped.
func Normalize(def *Definition, spec *Specification) Pairs {
	return normalize(def, spec, nil)
}

func normalize(def *Definition, spec *Specification, report DropFunc) Pairs {
	pairs := make(Pairs, 0, len(def.Assignments))
	for _, c := range spec.Constraints {
		for _, a := range def.Assignments {
			if a.Name != c.Name {
				continue
			}
			if !c.Allowed.Contains(a.Value) {
				if report != nil {
					report(Dropped{
						SpecID:       spec.ID,
						DefinitionID: def.ID,
						Name:         a.Name,
						Value:        a.Value,
						Reason:       DropInvalidValue,
					})
				}
				continue
			}
			pairs = append(pairs, Pair{Name: a.Name, Value: a.Value})
		}
	}

	if report != nil {
		for _, a := range def.Assignments {
			if _, ok := spec.Constraint(a.Name); !ok {
				report(Dropped{
					SpecID:       spec.ID,
					DefinitionID: def.ID,
					Name:         a.Name,
					Value:        a.Value,
					Reason:       DropUndeclared,
				})
			}
		}
	}
	return pairs
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithDropHandler registers fn to be told about every dropped assignment.
// It does not change the normalized result.
func WithDropHandler(fn DropFunc) NormalizerOption {
	return func(n *Normalizer) {
		n.onDrop = fn
	}
}

// WithLogger sets the logger used to report dropped assignments.
func WithLogger(l logger.Logger) NormalizerOption {
	return func(n *Normalizer) {
		n.logger = l
	}
}

// Normalizer resolves a definition's specification and normalizes it.
type Normalizer struct {
	specs  *SpecRegistry
	onDrop DropFunc
	logger logger.Logger
}

// NewNormalizer creates a Normalizer that resolves spec references through specs.
func NewNormalizer(specs *SpecRegistry, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		specs:  specs,
		onDrop: nil,
		logger: &logger.NoOpLogger{},
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Normalize resolves def.SpecRef and normalizes def against it.
// It fails with ErrNotFound if the specification is not registered.
func (n *Normalizer) Normalize(def *Definition) (Pairs, error) {
	spec, err := n.specs.Lookup(def.SpecRef)
	if err != nil {
		return nil, err
	}
	return n.NormalizeWith(def, spec), nil
}

// NormalizeWith normalizes def against an explicit specification.
func (n *Normalizer) NormalizeWith(def *Definition, spec *Specification) Pairs {
	return normalize(def, spec, n.report)
}

func (n *Normalizer) report(d Dropped) {
	n.logger.WithFields(
		logger.String("spec", d.SpecID),
		logger.String("definition", d.DefinitionID),
		logger.String("name", d.Name),
		logger.String("value", d.Value),
		logger.String("reason", d.Reason.String()),
	).Warn("Dropped assignment")

	if n.onDrop != nil {
		n.onDrop(d)
	}
}
