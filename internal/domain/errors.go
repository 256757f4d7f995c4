package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrUnsupportedFormat rejects an upload whose extension is not .csv, .xlsx or .xls.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrInvalidEmail marks a row whose email address failed validation.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrIllegalTransition marks a status change outside the verification state machine.
	ErrIllegalTransition = errors.New("illegal status transition")
)
