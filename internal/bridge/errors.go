package bridge

import (
	"context"
	"errors"
)

var (
	// ErrProtectedBranch is returned when preflight finds the current
	// branch is main or master (or a configured protected branch).
	ErrProtectedBranch = errors.New("bridge: refusing to run on a protected branch")

	// ErrSprintPlanMissing is returned when the sprint-plan document the
	// engine is meant to iterate against does not exist.
	ErrSprintPlanMissing = errors.New("bridge: sprint plan document not found")

	// ErrInvalidDepth is returned for a depth outside [MinDepth, MaxDepth].
	ErrInvalidDepth = errors.New("bridge: depth out of range")

	// ErrTotalTimeout is returned when the engine's total wall-clock
	// budget is exhausted; the caller should exit with code 1 and the
	// state is left resumable.
	ErrTotalTimeout = errors.New("bridge: total timeout exceeded")

	// ErrIterationTimeout is returned when a single iteration exceeds
	// its per-iteration budget.
	ErrIterationTimeout = errors.New("bridge: iteration timeout exceeded")

	// ErrInvalidResumeState is returned when --resume is given but the
	// persisted state's phase has no defined resume behavior.
	ErrInvalidResumeState = errors.New("bridge: no resume policy for this phase")
)

// ErrorKind classifies an error for exit-code and retry decisions, per
// the five kinds every engine error is sorted into.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindTransientInfra ErrorKind = "transient_infra"
	KindTimeout        ErrorKind = "timeout"
	KindUserAbort      ErrorKind = "user_abort"
	KindInternal       ErrorKind = "internal"
)

// Classify sorts err into one of the five error kinds. Sentinel errors
// this package defines are classified directly; anything else defaults
// to internal, the conservative (non-retryable) choice.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProtectedBranch), errors.Is(err, ErrSprintPlanMissing), errors.Is(err, ErrInvalidDepth):
		return KindValidation
	case errors.Is(err, ErrTotalTimeout), errors.Is(err, ErrIterationTimeout):
		return KindTimeout
	case errors.Is(err, ErrInvalidResumeState):
		return KindValidation
	case errors.Is(err, context.Canceled):
		return KindUserAbort
	default:
		var transient *TransientInfraError
		if errors.As(err, &transient) {
			return KindTransientInfra
		}
		return KindInternal
	}
}

// TransientInfraError wraps a recoverable infrastructure failure (a
// sentinel watch that couldn't be established, a circuit-broken
// cross-repo probe) that degrades gracefully rather than aborting the
// run.
type TransientInfraError struct {
	Op  string
	Err error
}

func (e *TransientInfraError) Error() string {
	return "bridge: transient infra failure during " + e.Op + ": " + e.Err.Error()
}

func (e *TransientInfraError) Unwrap() error {
	return e.Err
}
