// Package common defines shared constants and sentinel errors used across
// the storage gateway. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("not enough permissions")
	ErrorConflict     = errors.New("conflict")
	ErrorValidation   = errors.New("validation error")

	// Content availability errors. ErrorGone is permanent and must stay
	// distinguishable from ErrorNotDownloadable so clients do not retry it.
	ErrorGone                = errors.New("content permanently unavailable")
	ErrorNotDownloadable     = errors.New("content not downloadable in its current state")
	ErrorUnknownAvailability = errors.New("content availability unknown")

	// External collaborators.
	ErrorUpstreamUnavailable = errors.New("upstream service unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
