package models

import "errors"

// Sentinel errors shared by the services. Wrap them with fmt.Errorf and %w
// and test with errors.Is; the HTTP layer maps each to a status code.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)
