// Package apperr holds the error kinds shared by the services and mapped to
// status codes at the HTTP boundary. Services wrap them with %w.
package apperr

import "errors"

var (
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("already exists")
	ErrNotFound    = errors.New("not found")
	ErrAuth        = errors.New("invalid credentials")
	ErrForbidden   = errors.New("forbidden")
	ErrIngestion   = errors.New("ingestion failed")
	ErrRateLimited = errors.New("too many attempts")
)
