package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loabridge/bridge/internal/bridge"
	"github.com/loabridge/bridge/internal/pathlock"
	"github.com/loabridge/bridge/internal/types"
)

func newStore(t *testing.T, bridgeID string) (*Store, *pathlock.Paths) {
	t.Helper()
	root := t.TempDir()
	paths := &pathlock.Paths{
		ProjectRoot: root,
		StateDir:    filepath.Join(root, ".bridge", "state"),
		LockDir:     filepath.Join(root, ".bridge", "locks"),
	}
	return New(paths, bridgeID), paths
}

func TestInitCreatesDocumentInJackIn(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	phase, iteration, err := s.Phase()
	if err != nil {
		t.Fatal(err)
	}
	if phase != bridge.PhaseJackIn || iteration != 0 {
		t.Errorf("Phase() = (%v, %d), want (JACK_IN, 0)", phase, iteration)
	}
}

func TestInitRejectsExistingDocument(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	if err := s.Init("main", 3, 0.05); err != ErrAlreadyExists {
		t.Errorf("Init() second call = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdatePhasePersists(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdatePhase(bridge.PhaseIterating, 2); err != nil {
		t.Fatal(err)
	}
	phase, iteration, err := s.Phase()
	if err != nil {
		t.Fatal(err)
	}
	if phase != bridge.PhaseIterating || iteration != 2 {
		t.Errorf("Phase() = (%v, %d), want (ITERATING, 2)", phase, iteration)
	}
}

func TestAppendIterationRecordsCountsAndScore(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	rec := bridge.IterationRecord{
		Iteration: 1,
		Score:     4.5,
		Verdict:   "CHANGES_REQUIRED",
		Findings: []types.Finding{
			{Severity: types.SeverityBlocker, Title: "one"},
			{Severity: types.SeverityInfo, Title: "two"},
		},
		Source: bridge.IterationSource{WorktreePath: "/tmp/wt", RunID: "run-1"},
	}
	if err := s.AppendIteration(rec); err != nil {
		t.Fatal(err)
	}
	doc, err := s.load()
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Iterations) != 1 {
		t.Fatalf("Iterations len = %d, want 1", len(doc.Iterations))
	}
	got := doc.Iterations[0]
	if got.FindingsCount != 2 || got.BlockerCount != 1 || got.Score != 4.5 || got.RunID != "run-1" {
		t.Errorf("iteration summary = %+v, unexpected", got)
	}
}

func TestSaveInterruptSetsStateAndReason(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveInterrupt(bridge.PhaseIterating, 2, "iteration timeout"); err != nil {
		t.Fatal(err)
	}
	doc, err := s.load()
	if err != nil {
		t.Fatal(err)
	}
	if doc.State != StatusInterrupted || doc.InterruptedReason != "iteration timeout" || doc.Timestamps.Interrupted == nil {
		t.Errorf("document after SaveInterrupt = %+v, unexpected", doc)
	}
}

func TestGetResolvesDotPath(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get("branch")
	if err != nil {
		t.Fatal(err)
	}
	if v != "main" {
		t.Errorf("Get(branch) = %v, want main", v)
	}
}

func TestGetUnknownFieldReturnsErrInvalidField(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("nonexistent.field"); err != ErrInvalidField {
		t.Errorf("Get() err = %v, want ErrInvalidField", err)
	}
}

func TestSetCoercesBareLiteralTypes(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("depth", "4"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("per_sprint", "true"); err != nil {
		t.Fatal(err)
	}
	doc, err := s.load()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Depth != 4 {
		t.Errorf("Depth = %d, want 4 (int, not string)", doc.Depth)
	}
	if !doc.PerSprint {
		t.Errorf("PerSprint = false, want true")
	}
}

func TestSetStringLiteralStaysString(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("branch", "feature/x"); err != nil {
		t.Fatal(err)
	}
	doc, err := s.load()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Branch != "feature/x" {
		t.Errorf("Branch = %q, want feature/x", doc.Branch)
	}
}

func TestAddArtifactThenValidateArtifactsCleanOnNoChange(t *testing.T) {
	s, paths := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(paths.ProjectRoot, "README.md"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.AddArtifact("readme", "README.md"); err != nil {
		t.Fatal(err)
	}
	result, err := s.ValidateArtifacts()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid || len(result.Drift) != 0 {
		t.Errorf("ValidateArtifacts() = %+v, want clean", result)
	}
}

func TestValidateArtifactsDetectsModifiedAndMissing(t *testing.T) {
	s, paths := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	readmePath := filepath.Join(paths.ProjectRoot, "README.md")
	otherPath := filepath.Join(paths.ProjectRoot, "other.md")
	if err := os.WriteFile(readmePath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(otherPath, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.AddArtifact("readme", "README.md"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddArtifact("other", "other.md"); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(readmePath, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(otherPath); err != nil {
		t.Fatal(err)
	}

	result, err := s.ValidateArtifacts()
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Fatal("ValidateArtifacts() Valid = true, want false")
	}
	statuses := map[string]string{}
	for _, d := range result.Drift {
		statuses[d.Name] = d.Status
	}
	if statuses["readme"] != "modified" {
		t.Errorf("readme drift status = %q, want modified", statuses["readme"])
	}
	if statuses["other"] != "missing" {
		t.Errorf("other drift status = %q, want missing", statuses["other"])
	}
}

func TestCleanupRemovesDocumentAndBackup(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdatePhase(bridge.PhaseIterating, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.path()); !os.IsNotExist(err) {
		t.Errorf("state document still exists after Cleanup")
	}
	if _, err := os.Stat(s.backupPath()); !os.IsNotExist(err) {
		t.Errorf("state backup still exists after Cleanup")
	}
}

func TestCheckVersionCurrentSchemaIsNoop(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	v, err := s.CheckVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != CurrentSchemaVersion {
		t.Errorf("CheckVersion() = %d, want %d", v, CurrentSchemaVersion)
	}
}

func TestCheckVersionRejectsNewerSchema(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if err := s.Init("main", 3, 0.05); err != nil {
		t.Fatal(err)
	}
	doc, err := s.load()
	if err != nil {
		t.Fatal(err)
	}
	doc.SchemaVersion = CurrentSchemaVersion + 1
	if err := s.writeValidated(doc); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CheckVersion(); err != ErrSchemaTooNew {
		t.Errorf("CheckVersion() err = %v, want ErrSchemaTooNew", err)
	}
}

func TestPhaseOnMissingDocumentReturnsErrNotFound(t *testing.T) {
	s, _ := newStore(t, "bridge-1")
	if _, _, err := s.Phase(); err != ErrNotFound {
		t.Errorf("Phase() err = %v, want ErrNotFound", err)
	}
}
