package query

import (
	"slices"
	"strings"
)

// Allowed is the closed set of values a parameter accepts. It is either a
// single literal (SingleValue) or a finite set of literals (ValueSet); both
// forms answer membership through Contains.
type Allowed struct {
	values []string
	single bool
}

// SingleValue returns an Allowed that accepts exactly v.
func SingleValue(v string) Allowed {
	return Allowed{values: []string{v}, single: true}
}

// ValueSet returns an Allowed that accepts any of vs.
func ValueSet(vs ...string) Allowed {
	return Allowed{values: slices.Clone(vs), single: false}
}

// Contains reports whether v is an acceptable value.
func (a Allowed) Contains(v string) bool {
	return slices.Contains(a.values, v)
}

// IsSingle reports whether a was built with SingleValue.
func (a Allowed) IsSingle() bool {
	return a.single
}

// Values returns a copy of the accepted values in declaration order.
func (a Allowed) Values() []string {
	return slices.Clone(a.values)
}

func (a Allowed) String() string {
	if a.single {
		return a.values[0]
	}
	return "{" + strings.Join(a.values, ",") + "}"
}
