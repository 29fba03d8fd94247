package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: key does not exist in the store
//   - ErrExpired: code or session is past its expiry
//   - ErrAlreadyUsed: the record was consumed by another caller
//   - ErrUnavailable: backing store could not be reached
//
// For protocol failures (bad client, bad grant) use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
