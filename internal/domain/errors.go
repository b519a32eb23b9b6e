package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid caller input.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates the entity state no longer permits the operation.
	ErrConflict = errors.New("conflict")
)
