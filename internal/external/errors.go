package external

import "errors"

var (
	// ErrModelTimeout is returned by a ModelAdapter when the subprocess or
	// RPC deadline elapses before the model responds.
	ErrModelTimeout = errors.New("external: model invocation timed out")

	// ErrBudgetExceeded is returned when a model response is discarded for
	// exceeding its token budget.
	ErrBudgetExceeded = errors.New("external: token budget exceeded")

	// ErrInvalidKeyPath is returned when a config key path contains
	// characters outside [.a-zA-Z0-9_].
	ErrInvalidKeyPath = errors.New("external: invalid config key path")

	// ErrFixtureNotFound is returned when FixtureModelAdapter has no
	// recorded fixture for the requested (role, model) pair.
	ErrFixtureNotFound = errors.New("external: no fixture for role/model")
)
