package query

// URLBuilder turns a definition id into a request URL.
type URLBuilder struct {
	specs      *SpecRegistry
	defs       *DefinitionRegistry
	normalizer *Normalizer
}

// NewURLBuilder creates a URLBuilder over the given registries. The options
// are passed on to the underlying Normalizer.
func NewURLBuilder(specs *SpecRegistry, defs *DefinitionRegistry, opts ...NormalizerOption) *URLBuilder {
	return &URLBuilder{
		specs:      specs,
		defs:       defs,
		normalizer: NewNormalizer(specs, opts...),
	}
}

// Pairs resolves the definition and its specification and returns the
// normalized query together with the specification it was checked against.
func (b *URLBuilder) Pairs(definitionID string) (Pairs, *Specification, error) {
	def, err := b.defs.Lookup(definitionID)
	if err != nil {
		return nil, nil, err
	}

	spec, err := b.specs.Lookup(def.SpecRef)
	if err != nil {
		return nil, nil, err
	}

	return b.normalizer.NormalizeWith(def, spec), spec, nil
}

// Build returns spec.BaseURL + "?" + the encoded query for the definition.
// ErrNotFound is returned unchanged from any failed lookup.
func (b *URLBuilder) Build(definitionID string) (string, error) {
	pairs, spec, err := b.Pairs(definitionID)
	if err != nil {
		return "", err
	}
	return spec.BaseURL + "?" + pairs.Encode(), nil
}
