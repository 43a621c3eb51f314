package types

import "errors"

// Sentinel errors handlers branch on when mapping to HTTP statuses.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrForbidden = errors.New("not authorized")
)
