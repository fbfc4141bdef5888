package bridge

// StateStore is the narrow slice of the state store the engine needs
// to persist and resume a run: the current phase, the iteration
// trajectory, and the artifact manifest. The concrete implementation
// lives in internal/state; the engine depends only on this interface
// so it can be driven by a fake in tests.
type StateStore interface {
	// Phase returns the persisted phase and iteration a resume should
	// continue from.
	Phase() (phase Phase, iteration int, err error)

	// UpdatePhase persists a new current phase and iteration.
	UpdatePhase(phase Phase, iteration int) error

	// AppendIteration persists one iteration's record.
	AppendIteration(rec IterationRecord) error

	// SaveInterrupt persists enough state to resume after a crash or
	// ctrl-C mid-phase; reason is a short human-readable cause.
	SaveInterrupt(phase Phase, iteration int, reason string) error
}
