package bridge

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/loabridge/bridge/internal/ctxquery"
	"github.com/loabridge/bridge/internal/review"
	"github.com/loabridge/bridge/internal/types"
	"github.com/loabridge/bridge/internal/vision"
)

// loreIDPattern matches a lore reference the way it appears in prose
// or a diff (e.g. "vision-elevated-42"), for the Lore Reference Scan.
var loreIDPattern = regexp.MustCompile(`vision-elevated-\d+`)

// runIteration executes one ITERATING pass: sprint execution signal,
// optional cross-repo and vision-relevance context gathering, a
// Context Load, the Multi-Model Review, an optional Lore Reference
// Scan, Vision Capture, and the severity-weighted score that feeds the
// convergence check. It never returns a terminal error for anything
// scoped to "optional" in the phase graph — cross-repo, vision check,
// and lore scan failures degrade to a warning logged via the event
// sink and otherwise don't interrupt the iteration.
func (e *Engine) runIteration(ctx context.Context, iteration int, priorFindings []types.Finding) (IterationRecord, error) {
	if iteration == 1 {
		e.emit(SignalRunSprintPlan, iteration)
	} else {
		e.emit(SignalGenerateSprintFromFindings, iteration)
		e.emit(SignalRunPerSprint, iteration)
	}

	branchDirty := len(priorFindings) > 0
	source, finishWorktree, err := beginIteration(e.RepoRoot, e.Config.WorktreeMode, branchDirty, func(string, ...any) {})
	if err != nil {
		return IterationRecord{}, err
	}

	diff := ""
	if e.VCS != nil {
		diff, _ = e.VCS.Diff(ctx, "HEAD~1", "HEAD")
	}
	stat := diffStatFromText(diff)

	if e.CrossRepo != nil && len(e.CrossRepoRepos) > 0 && e.CrossRepoQuery != nil {
		e.emit(SignalCrossRepoQuery, iteration)
		e.CrossRepo.Probe(ctx, e.CrossRepoRepos, e.BridgeID, e.CrossRepoQuery)
	}

	var relevant []vision.Entry
	if e.Vision != nil {
		e.emit(SignalVisionCheck, iteration)
		relevant, _ = e.Vision.RelevanceQuery(vision.TagsForPaths(stat.Paths), 0)
	}

	var localCtx []ctxquery.Result
	if e.LocalContext != nil {
		localCtx, _ = e.LocalContext.Query(ctx, e.BridgeID, ctxquery.ScopeAll, ctxquery.DefaultTokenBudget)
	}

	e.emit(SignalBridgebuilderReview, iteration)
	result, err := review.Run(ctx, e.ReviewConfig, e.Adapter, e.reviewRequest(iteration, relevant, localCtx), stat)
	if err != nil {
		e.log().Warn("review failed, abandoning worktree",
			zap.Int("iteration", iteration),
			zap.Error(err),
		)
		_ = abandonIteration(e.RepoRoot, source)
		return IterationRecord{}, fmt.Errorf("bridgebuilder review: %w", err)
	}

	if e.Vision != nil {
		e.emit(SignalLoreReferenceScan, iteration)
		for _, ref := range loreIDPattern.FindAllString(diff, -1) {
			_, _, _ = e.Vision.RecordReference(ref, e.BridgeID)
		}

		e.emit(SignalVisionCapture, iteration)
		if _, err := e.Vision.CaptureFindings(result.Findings, e.BridgeID); err != nil && e.Events != nil {
			_ = e.Events.Emit("bridge", "warning", "vision_capture_failed", map[string]any{"error": err.Error()})
		}
	}

	score := e.Config.SeverityWeights.Score(result.Findings)

	e.emit(SignalFlatlineCheck, iteration)
	if err := finishWorktree(); err != nil {
		return IterationRecord{}, &TransientInfraError{Op: "merge worktree", Err: err}
	}

	return IterationRecord{
		Iteration: iteration,
		Findings:  result.Findings,
		Score:     score,
		Verdict:   string(result.Verdict),
		Source:    source,
	}, nil
}

// reviewRequest builds the ReviewRequest for one iteration's
// Multi-Model Review, embedding any relevant vision entries and local
// context results directly in the user prompt so the reviewer sees
// them without a second round trip.
func (e *Engine) reviewRequest(iteration int, relevant []vision.Entry, localCtx []ctxquery.Result) review.ReviewRequest {
	user := fmt.Sprintf("iteration %d for %s", iteration, e.BridgeID)
	for _, v := range relevant {
		user += "\nrelevant vision: " + v.ID + " " + v.Title
	}
	for _, r := range localCtx {
		user += "\ncontext: " + r.Source
	}
	return review.ReviewRequest{
		System:     "bridgebuilder review",
		User:       user,
		Workspace:  e.Workspace,
		ReviewType: "iteration",
	}
}
