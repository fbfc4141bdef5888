package bridge

import (
	"time"

	"github.com/loabridge/bridge/internal/rpi"
)

// worktreeTimeout bounds every git subprocess the worktree helpers
// below shell out to.
const worktreeTimeout = 30 * time.Second

// beginIteration applies cfg.WorktreeMode: "always" isolates every
// iteration's sprint execution in a fresh worktree, "never" always
// runs in place, and "auto" isolates only once a prior iteration on
// the current branch has left it dirty enough that a worktree's
// clean-room guarantee matters (callers pass branchDirty from their
// own VCS status check).
func beginIteration(repoRoot string, mode WorktreeMode, branchDirty bool, verbosef func(string, ...any)) (IterationSource, func() error, error) {
	isolate := mode == WorktreeAlways || (mode == WorktreeAuto && branchDirty)
	if !isolate {
		return IterationSource{}, func() error { return nil }, nil
	}

	path, runID, err := rpi.CreateWorktree(repoRoot, worktreeTimeout, verbosef)
	if err != nil {
		return IterationSource{}, nil, &TransientInfraError{Op: "create worktree", Err: err}
	}

	cleanup := func() error {
		return rpi.MergeWorktree(repoRoot, path, runID, worktreeTimeout, verbosef)
	}
	return IterationSource{WorktreePath: path, RunID: runID}, cleanup, nil
}

// abandonIteration removes a worktree without merging it back, used
// when an iteration fails and its changes should not land.
func abandonIteration(repoRoot string, src IterationSource) error {
	if src.WorktreePath == "" {
		return nil
	}
	return rpi.RemoveWorktree(repoRoot, src.WorktreePath, src.RunID, worktreeTimeout)
}
