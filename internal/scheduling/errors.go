package scheduling

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrAvailabilityCheckFailed = errors.New("availability check failed")
	ErrInvalidState            = errors.New("invalid state")
	ErrValidation              = errors.New("validation error")
	// ErrApprovalRequired is returned when a change classified critico is
	// applied without an explicit override.
	ErrApprovalRequired = errors.New("approval required")
)
