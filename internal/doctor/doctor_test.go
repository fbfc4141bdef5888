package doctor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/loabridge/bridge/internal/events"
	"github.com/loabridge/bridge/internal/external"
	"github.com/loabridge/bridge/internal/pathlock"
)

func lookPathStub(found map[string]bool) func(string) (string, error) {
	return func(name string) (string, error) {
		if found[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
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

func TestRunAllHealthyWhenEverythingPresent(t *testing.T) {
	root := t.TempDir()
	paths := &pathlock.Paths{
		ProjectRoot: root,
		StateDir:    filepath.Join(root, ".bridge", "state"),
		EventDir:    filepath.Join(root, ".bridge", "events"),
		LockDir:     filepath.Join(root, ".bridge", "locks"),
		VisionDir:   filepath.Join(root, ".bridge", "visions"),
	}
	if err := paths.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	sink := events.New(paths.EventDir)
	d := New("1.0.0", paths, sink, &fakeVCS{branch: "feature/x"})
	d.lookPath = lookPathStub(map[string]bool{"git": true, "gh": true, "beads": true})

	report := d.Run(context.Background())
	if report.Status != StatusOK || report.ExitCode != 0 {
		t.Errorf("Run() = %+v, want HEALTHY/0", report)
	}
	if report.Issues != 0 || report.Warnings != 0 {
		t.Errorf("Run() issues/warnings = %d/%d, want 0/0", report.Issues, report.Warnings)
	}
}

func TestRunDegradedOnMissingOptionalTool(t *testing.T) {
	d := New("1.0.0", nil, nil, &fakeVCS{branch: "main"})
	d.lookPath = lookPathStub(map[string]bool{"git": true, "gh": false, "beads": false})

	report := d.Run(context.Background())
	if report.Status != StatusWarning || report.ExitCode != 2 {
		t.Errorf("Run() = %+v, want DEGRADED/2", report)
	}
	if len(report.Recommendations) == 0 {
		t.Error("Run() Recommendations empty, want at least one hint")
	}
}

func TestRunUnhealthyOnMissingRequiredDependency(t *testing.T) {
	d := New("1.0.0", nil, nil, &fakeVCS{branch: "main"})
	d.lookPath = lookPathStub(map[string]bool{"git": false, "gh": true, "beads": true})

	report := d.Run(context.Background())
	if report.Status != StatusIssue || report.ExitCode != 1 {
		t.Errorf("Run() = %+v, want UNHEALTHY/1", report)
	}
}

func TestRunVCSFailureIsIssue(t *testing.T) {
	d := New("1.0.0", nil, nil, &fakeVCS{err: errors.New("not a git repo")})
	d.lookPath = lookPathStub(map[string]bool{"git": true, "gh": true, "beads": true})

	report := d.Run(context.Background())
	if report.Status != StatusIssue {
		t.Errorf("Run() Status = %v, want issue", report.Status)
	}
	if report.Checks[CategoryProjectState]["branch"].Status != StatusIssue {
		t.Errorf("project_state/branch = %+v, want issue", report.Checks[CategoryProjectState]["branch"])
	}
}

func TestRunNeverMutatesProjectDirectories(t *testing.T) {
	root := t.TempDir()
	paths := &pathlock.Paths{ProjectRoot: root, StateDir: filepath.Join(root, "state")}
	d := New("1.0.0", paths, nil, nil)
	d.lookPath = lookPathStub(nil)

	d.Run(context.Background())

	entries, err := filepath.Glob(filepath.Join(root, "*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Run() created entries under project root: %v", entries)
	}
}

func TestRenderJSONRoundTrips(t *testing.T) {
	d := New("1.0.0", nil, nil, &fakeVCS{branch: "main"})
	d.lookPath = lookPathStub(map[string]bool{"git": true, "gh": true, "beads": true})
	report := d.Run(context.Background())

	var buf bytes.Buffer
	if err := RenderJSON(&buf, report); err != nil {
		t.Fatal(err)
	}
	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Status != report.Status || decoded.ExitCode != report.ExitCode {
		t.Errorf("round-tripped report = %+v, want %+v", decoded, report)
	}
}

func TestRenderTablePlainWhenNotATerminal(t *testing.T) {
	d := New("1.0.0", nil, nil, &fakeVCS{branch: "main"})
	d.lookPath = lookPathStub(map[string]bool{"git": true, "gh": true, "beads": true})
	report := d.Run(context.Background())

	var buf bytes.Buffer
	RenderTable(&buf, report)
	if buf.Len() == 0 {
		t.Error("RenderTable() wrote nothing")
	}
	if bytes.Contains(buf.Bytes(), []byte("\x1b[")) {
		t.Error("RenderTable() to a non-file writer emitted ANSI escapes")
	}
}
