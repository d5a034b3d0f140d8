package query

// Constraint is one specification entry: a parameter name and the values it accepts.
type Constraint struct {
	Name    string
	Allowed Allowed
}

// Specification describes a valid query shape for one remote endpoint. The
// order of Constraints is the order parameters appear in the encoded query.
type Specification struct {
	ID          string
	BaseURL     string
	Constraints []Constraint
}

// Constraint returns the constraint declared for name, if any.
func (s *Specification) Constraint(name string) (Constraint, bool) {
	for _, c := range s.Constraints {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// Assignment sets a parameter to a value. A definition may carry several
// assignments with the same name.
type Assignment struct {
	Name  string
	Value string
}

// Definition is a named set of assignments against the specification SpecRef.
// Neither SpecRef nor the values are checked until the definition is normalized.
type Definition struct {
	ID          string
	SpecRef     string
	Assignments []Assignment
}
