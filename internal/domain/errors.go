package domain

import "errors"

var (
	// ErrValidation marks bad input shape or values. Wrap with context:
	// fmt.Errorf("%w: empty item list", ErrValidation).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown order or user.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied marks a non-admin attempting an admin action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAlreadyDecided marks a decide call on an order that has already
	// left the new/processing states.
	ErrAlreadyDecided = errors.New("order already decided")
)
