package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidKind     = errors.New("invalid kind: must be shipment, order, or sample")
	ErrInvalidChannel  = errors.New("invalid channel: must be email or whatsapp")
	ErrMissingEntityID = errors.New("record id must not be empty")
	ErrBatchEmpty      = errors.New("batch must contain at least one target")
	ErrBatchTooLarge   = errors.New("batch exceeds maximum of 500 targets")

	// ErrTargetMissingID is a caller-contract violation: every dispatch target
	// must reference an entity.
	ErrTargetMissingID = errors.New("notification target has no entity id")

	// Address validation outcomes, recorded on report entries rather than returned.
	ErrMissingAddress = errors.New("missing address")
	ErrInvalidAddress = errors.New("invalid address format")
)
