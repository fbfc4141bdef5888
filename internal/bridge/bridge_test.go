package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loabridge/bridge/internal/ctxquery"
	"github.com/loabridge/bridge/internal/external"
)

func TestClassifyKnownSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"protected branch", ErrProtectedBranch, KindValidation},
		{"sprint plan missing", ErrSprintPlanMissing, KindValidation},
		{"invalid depth", ErrInvalidDepth, KindValidation},
		{"total timeout", ErrTotalTimeout, KindTimeout},
		{"iteration timeout", ErrIterationTimeout, KindTimeout},
		{"invalid resume state", ErrInvalidResumeState, KindValidation},
		{"context canceled", context.Canceled, KindUserAbort},
		{"unknown error", errors.New("boom"), KindInternal},
		{"transient infra", &TransientInfraError{Op: "x", Err: errors.New("y")}, KindTransientInfra},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestTransientInfraErrorUnwrap(t *testing.T) {
	cause := errors.New("dial failed")
	err := &TransientInfraError{Op: "probe", Err: cause}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	if err.Error() == "" {
		t.Error("Error() returned empty string")
	}
}

func TestTrajectoryConvergedNeedsEnoughHistory(t *testing.T) {
	traj := &trajectory{}
	traj.add(10)
	traj.add(10)
	if traj.converged(0.05, 2) {
		t.Error("converged with only 2 points and consecutive=2, want false (need consecutive+1 points)")
	}
}

func TestTrajectoryConvergedOnFlatline(t *testing.T) {
	traj := &trajectory{}
	traj.add(20)
	traj.add(20.5)
	traj.add(20.4)
	if !traj.converged(0.05, 2) {
		t.Error("converged() = false, want true for two small consecutive deltas")
	}
}

func TestTrajectoryNotConvergedOnLargeDelta(t *testing.T) {
	traj := &trajectory{}
	traj.add(5)
	traj.add(5)
	traj.add(40)
	if traj.converged(0.05, 2) {
		t.Error("converged() = true, want false after a large jump")
	}
}

func TestTrajectoryZeroPeakConvergesOnceEnoughPoints(t *testing.T) {
	traj := &trajectory{}
	traj.add(0)
	traj.add(0)
	traj.add(0)
	if !traj.converged(0.05, 2) {
		t.Error("converged() = false, want true when every score is zero")
	}
}

func TestDiffStatFromTextCountsFilesAndLines(t *testing.T) {
	diff := `diff --git a/foo.go b/foo.go
index 1234567..89abcde 100644
--- a/foo.go
+++ b/foo.go
@@ -1,2 +1,3 @@
 package foo
-func old() {}
+func new() {}
+func another() {}
diff --git a/bar.go b/bar.go
index aaaaaaa..bbbbbbb 100644
--- a/bar.go
+++ b/bar.go
@@ -1 +1 @@
-var x = 1
+var x = 2
`
	stat := diffStatFromText(diff)
	if stat.FilesChanged != 2 {
		t.Errorf("FilesChanged = %d, want 2", stat.FilesChanged)
	}
	if stat.LinesChanged != 4 {
		t.Errorf("LinesChanged = %d, want 4", stat.LinesChanged)
	}
}

func TestDiffStatFromTextEmptyDiff(t *testing.T) {
	stat := diffStatFromText("")
	if stat.FilesChanged != 0 || stat.LinesChanged != 0 {
		t.Errorf("stat = %+v, want zero value", stat)
	}
}

func TestResumeFromHaltedContinuesAtNextIteration(t *testing.T) {
	if got := resumeFrom(PhaseHalted, 3); got != 4 {
		t.Errorf("resumeFrom(HALTED, 3) = %d, want 4", got)
	}
}

func TestResumeFromIteratingContinuesAtSameIteration(t *testing.T) {
	if got := resumeFrom(PhaseIterating, 3); got != 3 {
		t.Errorf("resumeFrom(ITERATING, 3) = %d, want 3", got)
	}
}

type fakeVCS struct {
	branch string
	err    error
}

func (f *fakeVCS) CurrentBranch(ctx context.Context) (string, error) { return f.branch, f.err }
func (f *fakeVCS) Diff(ctx context.Context, from, to string) (string, error) {
	return "", nil
}
func (f *fakeVCS) Tags(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeVCS) CommitsSinceTag(ctx context.Context, tag string) ([]external.CommitMeta, error) {
	return nil, nil
}
func (f *fakeVCS) ReadRemoteFile(ctx context.Context, repo, ref, path string) ([]byte, error) {
	return nil, nil
}

func TestPreflightRejectsProtectedBranch(t *testing.T) {
	cfg := DefaultConfig()
	_, err := Preflight(context.Background(), cfg, &fakeVCS{branch: "main"})
	if !errors.Is(err, ErrProtectedBranch) {
		t.Errorf("Preflight() error = %v, want ErrProtectedBranch", err)
	}
}

func TestPreflightRejectsMissingSprintPlan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SprintPlanPath = filepath.Join(t.TempDir(), "does-not-exist.md")
	_, err := Preflight(context.Background(), cfg, &fakeVCS{branch: "feature/x"})
	if !errors.Is(err, ErrSprintPlanMissing) {
		t.Errorf("Preflight() error = %v, want ErrSprintPlanMissing", err)
	}
}

func TestPreflightRejectsDepthOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Depth = 99
	_, err := Preflight(context.Background(), cfg, &fakeVCS{branch: "feature/x"})
	if !errors.Is(err, ErrInvalidDepth) {
		t.Errorf("Preflight() error = %v, want ErrInvalidDepth", err)
	}
}

func TestPreflightPassesOnCleanBranch(t *testing.T) {
	cfg := DefaultConfig()
	warnings, err := Preflight(context.Background(), cfg, &fakeVCS{branch: "feature/x"})
	if err != nil {
		t.Fatalf("Preflight() error = %v, want nil", err)
	}
	_ = warnings
}

func TestPreflightSurfacesVCSFailureAsTransient(t *testing.T) {
	cfg := DefaultConfig()
	_, err := Preflight(context.Background(), cfg, &fakeVCS{err: errors.New("git not found")})
	var transient *TransientInfraError
	if !errors.As(err, &transient) {
		t.Errorf("Preflight() error = %v, want *TransientInfraError", err)
	}
}

func TestWaitForSentinelReturnsImmediatelyIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel")
	if err := os.WriteFile(path, []byte("done"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := waitForSentinel(context.Background(), path, time.Second, nil); err != nil {
		t.Errorf("waitForSentinel() = %v, want nil", err)
	}
}

func TestWaitForSentinelTimesOutWhenNeverCreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel")
	err := waitForSentinel(context.Background(), path, 50*time.Millisecond, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("waitForSentinel() = %v, want context.DeadlineExceeded", err)
	}
}

func TestWaitForSentinelDetectsFileCreatedAfterStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel")
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, []byte("done"), 0o644)
	}()
	if err := waitForSentinel(context.Background(), path, 2*time.Second, nil); err != nil {
		t.Errorf("waitForSentinel() = %v, want nil", err)
	}
}

func TestCrossRepoProbeIsolatesFailingRepo(t *testing.T) {
	probe := NewCrossRepoProbe(4, 100*time.Millisecond)
	results := probe.Probe(context.Background(), []string{"ok-repo", "bad-repo"}, "query", func(ctx context.Context, repo, q string) ([]ctxquery.Result, error) {
		if repo == "bad-repo" {
			return nil, errors.New("unreachable")
		}
		return []ctxquery.Result{{Source: repo}}, nil
	})
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	byRepo := map[string]CrossRepoResult{}
	for _, r := range results {
		byRepo[r.Repo] = r
	}
	if byRepo["ok-repo"].Err != nil {
		t.Errorf("ok-repo.Err = %v, want nil", byRepo["ok-repo"].Err)
	}
	if byRepo["bad-repo"].Err == nil {
		t.Error("bad-repo.Err = nil, want an error")
	}
}

type fakeSignaler struct {
	events []string
}

func (f *fakeSignaler) Emit(name string, iteration int) {
	f.events = append(f.events, name)
}

type fakeAdapter struct{}

func (f *fakeAdapter) Invoke(ctx context.Context, req external.ModelRequest) (external.ModelResponse, error) {
	raw := []byte(`{"findings":[],"verdict":"APPROVED"}`)
	return external.ModelResponse{Verdict: "APPROVED", Findings: nil, Raw: raw}, nil
}

func TestRunStopsAtMaxDepthWithoutConverging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinDepth = 1
	cfg.MaxDepth = 2
	cfg.TotalTimeout = time.Minute
	cfg.PerIterationTimeout = time.Minute
	cfg.FlatlineThreshold = -1 // never converges

	e := New(cfg)
	e.Signaler = &fakeSignaler{}
	e.Adapter = &fakeAdapter{}
	e.Workspace = t.TempDir()
	e.RepoRoot = e.Workspace

	result, err := e.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.IterationsRun != 2 {
		t.Errorf("IterationsRun = %d, want 2", result.IterationsRun)
	}
	if result.Converged {
		t.Error("Converged = true, want false")
	}
	if result.FinalPhase != PhaseJackedOut {
		t.Errorf("FinalPhase = %q, want JACKED_OUT", result.FinalPhase)
	}
}

type recordingStore struct {
	phase       Phase
	iteration   int
	records     []IterationRecord
	interrupted bool
}

func (s *recordingStore) Phase() (Phase, int, error) { return s.phase, s.iteration, nil }
func (s *recordingStore) UpdatePhase(phase Phase, iteration int) error {
	s.phase, s.iteration = phase, iteration
	return nil
}
func (s *recordingStore) AppendIteration(rec IterationRecord) error {
	s.records = append(s.records, rec)
	return nil
}
func (s *recordingStore) SaveInterrupt(phase Phase, iteration int, reason string) error {
	s.interrupted = true
	return nil
}

func TestRunPersistsIterationsToStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinDepth = 1
	cfg.MaxDepth = 1
	cfg.TotalTimeout = time.Minute
	cfg.PerIterationTimeout = time.Minute

	store := &recordingStore{}
	e := New(cfg)
	e.Signaler = &fakeSignaler{}
	e.Adapter = &fakeAdapter{}
	e.Store = store
	e.Workspace = t.TempDir()
	e.RepoRoot = e.Workspace

	if _, err := e.Run(context.Background(), RunOptions{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(store.records) != 1 {
		t.Fatalf("len(store.records) = %d, want 1", len(store.records))
	}
	if store.phase != PhaseJackedOut {
		t.Errorf("store.phase = %q, want JACKED_OUT", store.phase)
	}
}

func TestRunResumeFromExploringSkipsIteration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinDepth = 1
	cfg.MaxDepth = 3
	cfg.TotalTimeout = time.Minute
	cfg.PerIterationTimeout = time.Minute

	e := New(cfg)
	e.Signaler = &fakeSignaler{}
	e.Adapter = &fakeAdapter{}
	e.Workspace = t.TempDir()
	e.RepoRoot = e.Workspace

	result, err := e.Run(context.Background(), RunOptions{
		Resume:          true,
		ResumePhase:     PhaseExploring,
		ResumeIteration: 2,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.IterationsRun != 1 {
		t.Errorf("IterationsRun = %d, want 1 (the pre-resume count)", result.IterationsRun)
	}
	if result.ExplorationSkip == "" {
		t.Error("ExplorationSkip is empty, want a recorded skip reason")
	}
}
