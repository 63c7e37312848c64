package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
//   - ErrNotFound: entity does not exist in the store
//   - ErrAlreadyExists: a unique constraint rejected the write (duplicate vote,
//     duplicate email, duplicate house name)
//   - ErrInvalidState: entity in the wrong state for the requested write
//   - ErrExpired: token has expired
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidState  = errors.New("invalid state")
	ErrExpired       = errors.New("expired")
	ErrUnavailable   = errors.New("unavailable")
)
