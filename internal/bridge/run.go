package bridge

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/loabridge/bridge/internal/types"
)

// RunOptions are the per-invocation knobs that aren't part of the
// engine's static Config: whether this call resumes a prior run, and
// the phase/iteration a resume continues from.
type RunOptions struct {
	Resume           bool
	ResumePhase      Phase
	ResumeIteration  int
	RegenerateReadme readmeRegenerator
}

// Run drives the full phase graph: JACK_IN, up to Config.Depth
// ITERATING passes (or until the convergence predicate flatlines),
// the optional RESEARCHING/EXPLORING passes, FINALIZING, and
// JACKED_OUT. On a protected branch, a missing sprint plan, or an
// out-of-range depth it returns before JACK_IN with a KindValidation
// error. On a total or per-iteration timeout it transitions to HALTED,
// persists state for a future --resume, and returns a KindTimeout
// error.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	log := e.log()
	log.Info("bridge run starting",
		zap.String("bridge_id", e.BridgeID),
		zap.Int("max_depth", e.Config.MaxDepth),
		zap.Bool("resume", opts.Resume),
	)

	if _, err := Preflight(ctx, e.Config, e.VCS); err != nil {
		log.Warn("preflight rejected run", zap.Error(err))
		return RunResult{}, err
	}

	totalCtx, cancel := context.WithTimeout(ctx, e.Config.TotalTimeout)
	defer cancel()

	startIteration := 1
	skipToFinalizing := false
	explorationSkip := ""
	if opts.Resume {
		if opts.ResumePhase == PhaseExploring {
			skipToFinalizing = true
			startIteration = opts.ResumeIteration
			explorationSkip = "resumed mid-EXPLORING; skipped straight to FINALIZING"
		} else {
			startIteration = resumeFrom(opts.ResumePhase, opts.ResumeIteration)
		}
	}

	if e.Store != nil {
		_ = e.Store.UpdatePhase(PhaseJackIn, startIteration)
	}

	traj := &trajectory{}
	var records []IterationRecord
	var prior []IterationRecord

	iteration := startIteration
	converged := false
	iterationsRun := startIteration - 1

	for ; !skipToFinalizing && iteration <= e.Config.MaxDepth; iteration++ {
		iterCtx, iterCancel := context.WithTimeout(totalCtx, e.Config.PerIterationTimeout)
		var priorFindings = latestFindings(prior)
		rec, err := e.runIteration(iterCtx, iteration, priorFindings)
		iterCancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("iteration timed out", zap.Int("iteration", iteration))
				e.haltFor(PhaseIterating, iteration, "iteration timeout")
				return RunResult{FinalPhase: PhaseHalted, IterationsRun: iteration - 1, Records: records}, ErrIterationTimeout
			}
			log.Error("iteration failed", zap.Int("iteration", iteration), zap.Error(err))
			return RunResult{}, err
		}

		log.Info("iteration complete",
			zap.Int("iteration", iteration),
			zap.Float64("score", rec.Score),
			zap.Int("findings", len(rec.Findings)),
		)

		records = append(records, rec)
		prior = append(prior, rec)
		if e.Store != nil {
			_ = e.Store.AppendIteration(rec)
			_ = e.Store.UpdatePhase(PhaseIterating, iteration)
		}

		traj.add(rec.Score)
		if iteration >= e.Config.MinDepth && traj.converged(e.Config.FlatlineThreshold, e.Config.FlatlineConsecutive) {
			converged = true
			iteration++
			log.Info("convergence reached", zap.Int("iteration", iteration-1))
			break
		}

		if totalCtx.Err() != nil {
			log.Warn("total timeout reached", zap.Int("iteration", iteration))
			e.haltFor(PhaseIterating, iteration, "total timeout")
			return RunResult{FinalPhase: PhaseHalted, IterationsRun: iteration, Records: records}, ErrTotalTimeout
		}
	}
	if !skipToFinalizing {
		iterationsRun = iteration - 1
	}

	visionSprintTimedOut := false
	if !skipToFinalizing {
		timedOut, err := e.runExploration(totalCtx, iterationsRun)
		if err != nil {
			return RunResult{}, err
		}
		if timedOut {
			visionSprintTimedOut = true
			explorationSkip = "vision sprint timed out; skipped to FINALIZING"
		}
	}

	rtfmAttempts, err := e.runFinalizing(totalCtx, iterationsRun, opts.RegenerateReadme)
	if err != nil {
		return RunResult{}, err
	}

	if e.Store != nil {
		_ = e.Store.UpdatePhase(PhaseJackedOut, iterationsRun)
	}

	log.Info("bridge run finished",
		zap.Int("iterations_run", iterationsRun),
		zap.Bool("converged", converged),
	)

	return RunResult{
		FinalPhase:           PhaseJackedOut,
		IterationsRun:        iterationsRun,
		Trajectory:           traj.scores,
		Converged:            converged,
		ExplorationSkip:      explorationSkip,
		RTFMAttempts:         rtfmAttempts,
		VisionSprintTimedOut: visionSprintTimedOut,
		Records:              records,
	}, nil
}

// haltFor persists enough state for a future --resume before the
// caller returns HALTED to the dispatcher.
func (e *Engine) haltFor(phase Phase, iteration int, reason string) {
	if e.Store != nil {
		_ = e.Store.SaveInterrupt(phase, iteration, reason)
	}
}

// resumeFrom implements the ITERATING/HALTED resume policies: HALTED
// continues at the next iteration after the last completed one,
// ITERATING continues at the in-progress iteration. EXPLORING's policy
// (skip straight to FINALIZING) is handled by the caller before this
// is reached.
func resumeFrom(phase Phase, iteration int) int {
	if phase == PhaseHalted {
		return iteration + 1
	}
	return iteration
}

// latestFindings returns the most recent iteration's findings, or nil
// for the first iteration.
func latestFindings(prior []IterationRecord) []types.Finding {
	if len(prior) == 0 {
		return nil
	}
	return prior[len(prior)-1].Findings
}
