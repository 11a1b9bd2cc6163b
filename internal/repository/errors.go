package repository

import "errors"

// Sentinel errors returned by repositories so callers do not depend on
// database/sql or driver error types.
var (
	ErrEmailExists = errors.New("email already exists")
	ErrNotFound    = errors.New("record not found")
)
