package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Transports and stores return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: resource does not exist at the backend
// - ErrConflict: write collided with existing state
// - ErrPreconditionFailed: compare-and-swap expectation did not hold
// - ErrUnavailable: backend or transport temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrUnavailable        = errors.New("unavailable")
)
