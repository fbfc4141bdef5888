package bridge

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/loabridge/bridge/internal/external"
)

// PreflightWarning is a non-blocking preflight finding: the run
// proceeds, but the warning is surfaced to the operator.
type PreflightWarning struct {
	Check   string
	Message string
}

// Preflight validates the engine can safely start: the current branch
// isn't protected, the sprint-plan document exists, and depth is in
// range. Optional-tool health (e.g. a beads binary) is reported as a
// warning, never a blocker.
func Preflight(ctx context.Context, cfg Config, vcs external.VCSClient) ([]PreflightWarning, error) {
	branch, err := vcs.CurrentBranch(ctx)
	if err != nil {
		return nil, &TransientInfraError{Op: "preflight: read current branch", Err: err}
	}
	for _, protected := range cfg.ProtectedBranches {
		if branch == protected {
			return nil, fmt.Errorf("%w: %s", ErrProtectedBranch, branch)
		}
	}

	if cfg.SprintPlanPath != "" {
		if _, err := os.Stat(cfg.SprintPlanPath); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSprintPlanMissing, cfg.SprintPlanPath)
		}
	}

	if cfg.Depth < cfg.MinDepth || cfg.Depth > cfg.MaxDepth {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidDepth, cfg.Depth, cfg.MinDepth, cfg.MaxDepth)
	}

	var warnings []PreflightWarning
	if _, err := lookPathBeads(); err != nil {
		warnings = append(warnings, PreflightWarning{
			Check:   "beads",
			Message: "beads binary not found on PATH; lore discovery falls back to grep-only scanning",
		})
	}
	return warnings, nil
}

// lookPathBeads is a var so tests can stub it without touching the
// real PATH.
var lookPathBeads = func() (string, error) {
	return exec.LookPath("beads")
}
