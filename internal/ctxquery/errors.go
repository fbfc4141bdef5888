package ctxquery

import "errors"

// Sentinel errors for the context query facade.
var (
	// ErrFacilityDisabled is returned when configuration disables the
	// facade globally.
	ErrFacilityDisabled = errors.New("ctxquery: facility disabled")

	// ErrInvalidScope is returned for a scope outside the fixed
	// {grimoires, skills, notes, reality, all} vocabulary.
	ErrInvalidScope = errors.New("ctxquery: invalid scope")

	// ErrPathOutsideRoot is returned when a candidate path's canonical
	// form resolves outside the project root.
	ErrPathOutsideRoot = errors.New("ctxquery: path outside project root")
)
