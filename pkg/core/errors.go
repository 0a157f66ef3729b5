package core

import "errors"

// Common errors.
var (
	ErrNotFound    = errors.New("entry not found")
	ErrReadOnly    = errors.New("repository is in read-only mode")
	ErrInvalidID   = errors.New("invalid entry ID")
	ErrInvalidKind = errors.New("invalid entry kind")
	ErrUnsupported = errors.New("operation not supported by repository")
)
