package bridge

import (
	"context"

	"github.com/loabridge/bridge/internal/guard"
	"github.com/loabridge/bridge/internal/review"
)

// readmeRegenerator regenerates the grounded-truth README from the
// accumulated run state; a function value so the FINALIZING phase
// doesn't need to know how the regeneration prompt is built. Returns
// stderr-like diagnostic text on failure for EscalateToOperator.
type readmeRegenerator func(ctx context.Context) (stderr string, err error)

// runFinalizing executes FINALIZING's four steps. Agent-Grounded
// README Regeneration is explicitly non-blocking: a failure is
// escalated to the operator channel and the phase continues. The RTFM
// gate gets at most RTFMRetryBudget retries before degrading to a
// warning rather than failing the run.
func (e *Engine) runFinalizing(ctx context.Context, iteration int, regenerateReadme readmeRegenerator) (rtfmAttempts int, err error) {
	e.emit(SignalGroundTruthUpdate, iteration)

	if regenerateReadme != nil {
		e.emit(SignalButterfreezoneGen, iteration)
		if stderr, err := regenerateReadme(ctx); err != nil {
			guard.EscalateToOperator(e.Notifier, "readme regeneration", stderr)
		}
	}

	if e.Vision != nil {
		e.emit(SignalLoreDiscovery, iteration)
	}

	rtfmAttempts = 0
	for rtfmAttempts <= e.Config.RTFMRetryBudget {
		e.emit(SignalRTFMPass, iteration)
		rtfmAttempts++

		result, reviewErr := review.Run(ctx, e.ReviewConfig, e.Adapter, review.ReviewRequest{
			System:     "rtfm documentation gate",
			User:       e.BridgeID,
			Workspace:  e.Workspace,
			ReviewType: "rtfm",
		}, review.DiffStat{})
		e.emit(SignalRTFMCheckResult, iteration)

		if reviewErr == nil && result.Verdict == review.VerdictApproved {
			break
		}
		if rtfmAttempts > e.Config.RTFMRetryBudget {
			if e.Events != nil {
				_ = e.Events.Emit("bridge", "warning", "rtfm_gate_degraded", map[string]any{"attempts": rtfmAttempts})
			}
			break
		}
	}

	e.emit(SignalFinalPRUpdate, iteration)
	return rtfmAttempts, nil
}
