package services

import "errors"

// Sentinel errors shared across services. Handlers map these onto HTTP
// status codes in one place.
var (
	// ErrNotFound means the referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller does not own the referenced entity
	ErrForbidden = errors.New("forbidden")

	// ErrConflict means the operation lost a race or hit an entity whose
	// state no longer allows it
	ErrConflict = errors.New("conflict")

	// ErrValidation means the request content is invalid
	ErrValidation = errors.New("validation failed")

	// ErrGateway means the payment gateway rejected or failed the call
	ErrGateway = errors.New("payment gateway error")
)
