package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrMissingOption = errors.New("missing storage option")
	ErrCorrupt       = errors.New("stored history is not a snapshot array")
)
