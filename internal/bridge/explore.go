package bridge

import (
	"context"
	"errors"
	"path/filepath"
)

// sentinelName is the file the dispatcher touches in Workspace to
// signal a vision-sprint has finished.
const sentinelName = ".bridge/vision-sprint.done"

// runExploration is the optional RESEARCHING + EXPLORING phase: one
// divergent research pass, then a vision-sprint that blocks on a
// sentinel the dispatcher creates when its own work is done. A timeout
// here is non-fatal: it's recorded on the result and the run proceeds
// to FINALIZING regardless, per the EXPLORING resume policy (skip +
// record reason).
func (e *Engine) runExploration(ctx context.Context, iteration int) (timedOut bool, err error) {
	if !e.Config.ExplorationEnabled {
		return false, nil
	}

	e.emit(SignalResearchIteration, iteration)
	e.emit(SignalInquiryMode, iteration)

	e.emit(SignalVisionSprint, iteration)
	e.emit(SignalVisionSprintSentinel, iteration)

	sentinelPath := filepath.Join(e.Workspace, sentinelName)
	onFallback := func(transientErr error) {
		if e.Events != nil {
			_ = e.Events.Emit("bridge", "warning", "sentinel_watch_degraded", map[string]any{"error": transientErr.Error()})
		}
	}
	waitErr := waitForSentinel(ctx, sentinelPath, e.Config.ExplorationTimeout, onFallback)
	if waitErr == nil {
		return false, nil
	}
	if errors.Is(waitErr, context.DeadlineExceeded) {
		e.emit(SignalVisionSprintTimeout, iteration)
		return true, nil
	}
	return false, waitErr
}
