package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/loabridge/bridge/internal/events"
	"github.com/loabridge/bridge/internal/external"
	"github.com/loabridge/bridge/internal/pathlock"
)

// Doctor wires the fixed check set to whatever collaborators happen to
// be configured for this project. Every field is optional except
// Version: a nil Paths/Events/VCS degrades its category's checks to a
// single informational entry rather than panicking, since `doctor`
// must run even against a half-initialized project.
type Doctor struct {
	Version string
	Paths   *pathlock.Paths
	Events  *events.Sink
	VCS     external.VCSClient

	// lookPath is overridable in tests; defaults to exec.LookPath.
	lookPath func(string) (string, error)
}

// New returns a Doctor for the given project paths, event sink, and
// VCS client (any of which may be nil).
func New(version string, paths *pathlock.Paths, sink *events.Sink, vcs external.VCSClient) *Doctor {
	return &Doctor{Version: version, Paths: paths, Events: sink, VCS: vcs, lookPath: exec.LookPath}
}

// Run executes every check and aggregates the result: any `issue`
// rolls the whole report up to UNHEALTHY (exit 1); else any `warning`
// rolls it up to DEGRADED (exit 2); otherwise HEALTHY (exit 0). Run
// never mutates anything on disk.
func (d *Doctor) Run(ctx context.Context) Report {
	if d.lookPath == nil {
		d.lookPath = exec.LookPath
	}

	checks := map[string]map[string]Check{
		CategoryDependencies:  d.dependencyChecks(),
		CategoryOptionalTools: d.optionalToolChecks(),
		CategoryFramework:     d.frameworkChecks(),
		CategoryProjectState:  d.projectStateChecks(ctx),
		CategoryEventBus:      d.eventBusChecks(),
		CategoryBeads:         d.beadsChecks(),
	}

	report := Report{
		Version:   d.Version,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
	for _, category := range categoryOrder {
		for _, check := range checks[category] {
			switch check.Status {
			case StatusIssue:
				report.Issues++
			case StatusWarning:
				report.Warnings++
			}
		}
	}

	switch {
	case report.Issues > 0:
		report.Status = StatusIssue
		report.ExitCode = 1
	case report.Warnings > 0:
		report.Status = StatusWarning
		report.ExitCode = 2
	default:
		report.Status = StatusOK
		report.ExitCode = 0
	}
	report.Recommendations = recommendationsFor(checks)
	return report
}

func (d *Doctor) dependencyChecks() map[string]Check {
	checks := map[string]Check{}
	for _, bin := range []string{"git"} {
		if _, err := d.lookPath(bin); err != nil {
			checks[bin] = Check{Status: StatusIssue, Detail: bin + " not found on PATH"}
			continue
		}
		checks[bin] = Check{Status: StatusOK, Detail: bin + " available"}
	}
	return checks
}

func (d *Doctor) optionalToolChecks() map[string]Check {
	checks := map[string]Check{}
	for bin, hint := range map[string]string{
		"gh": "needed for GitHub trail / final PR update signals",
	} {
		if _, err := d.lookPath(bin); err != nil {
			checks[bin] = Check{Status: StatusWarning, Detail: fmt.Sprintf("%s not found — %s", bin, hint)}
			continue
		}
		checks[bin] = Check{Status: StatusOK, Detail: bin + " available"}
	}
	return checks
}

func (d *Doctor) frameworkChecks() map[string]Check {
	if d.Paths == nil {
		return map[string]Check{
			"project_root": {Status: StatusWarning, Detail: "no project root resolved — run 'bridge jack-in' from inside a project"},
		}
	}
	checks := map[string]Check{
		"project_root": {Status: StatusOK, Detail: d.Paths.ProjectRoot},
	}
	for name, dir := range map[string]string{
		"state_dir":  d.Paths.StateDir,
		"event_dir":  d.Paths.EventDir,
		"lock_dir":   d.Paths.LockDir,
		"vision_dir": d.Paths.VisionDir,
	} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			checks[name] = Check{Status: StatusInfo, Detail: dir + " not yet created"}
			continue
		}
		checks[name] = Check{Status: StatusOK, Detail: dir}
	}
	return checks
}

func (d *Doctor) projectStateChecks(ctx context.Context) map[string]Check {
	if d.VCS == nil {
		return map[string]Check{
			"branch": {Status: StatusInfo, Detail: "no VCS client configured"},
		}
	}
	branch, err := d.VCS.CurrentBranch(ctx)
	if err != nil {
		return map[string]Check{
			"branch": {Status: StatusIssue, Detail: "failed to read current branch: " + err.Error()},
		}
	}
	return map[string]Check{
		"branch": {Status: StatusOK, Detail: branch},
	}
}

func (d *Doctor) eventBusChecks() map[string]Check {
	if d.Events == nil {
		return map[string]Check{
			"sink": {Status: StatusInfo, Detail: "no event sink configured"},
		}
	}
	depth, err := d.Events.DeadLetterDepth()
	if err != nil {
		return map[string]Check{
			"dead_letter_queue": {Status: StatusWarning, Detail: "failed to read dead-letter queue: " + err.Error()},
		}
	}
	if depth > 0 {
		return map[string]Check{
			"dead_letter_queue": {Status: StatusWarning, Detail: fmt.Sprintf("%d entries in the dead-letter queue", depth)},
		}
	}
	return map[string]Check{
		"dead_letter_queue": {Status: StatusOK, Detail: "empty"},
	}
}

func (d *Doctor) beadsChecks() map[string]Check {
	if _, err := d.lookPath("beads"); err != nil {
		return map[string]Check{
			"beads": {Status: StatusWarning, Detail: "beads binary not found — lore discovery falls back to grep-only scanning"},
		}
	}
	return map[string]Check{
		"beads": {Status: StatusOK, Detail: "available"},
	}
}

// recommendationsFor collects a short actionable hint per non-ok,
// non-info check, in category order so the list reads top to bottom
// the same way the table does.
func recommendationsFor(checks map[string]map[string]Check) []string {
	var recs []string
	for _, category := range categoryOrder {
		for _, name := range sortedKeys(checks[category]) {
			c := checks[category][name]
			if c.Status == StatusWarning || c.Status == StatusIssue {
				recs = append(recs, fmt.Sprintf("%s/%s: %s", category, name, c.Detail))
			}
		}
	}
	return recs
}
