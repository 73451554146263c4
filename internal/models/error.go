package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Submission outcome errors, surfaced by the submission guard in check order.
	ErrClosed             = errors.New("attendance for this event is closed")
	ErrInvalidOrExpired   = errors.New("invalid or expired token or session")
	ErrDuplicateDevice    = errors.New("a submission from this device was already accepted")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotEligible        = errors.New("student is not eligible for this event")
	ErrAlreadyMarked      = errors.New("student is already marked present")
)
