package query

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrDuplicateID             = errors.New("duplicate id")
	ErrDuplicateConstraintName = errors.New("duplicate constraint name")
	ErrInvalidID               = errors.New("invalid id")
	ErrSealed                  = errors.New("registry is sealed")
)
