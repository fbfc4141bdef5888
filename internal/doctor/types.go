// Package doctor is a read-only health aggregator: a fixed set of
// checks grouped into categories, rolled up into a single
// HEALTHY/DEGRADED/UNHEALTHY verdict and exit code. Nothing under this
// package ever mutates project state — every check only reads.
package doctor

import "time"

// Status is one check's outcome. The four-way split (as opposed to
// the teacher's three-way pass/warn/fail) adds INFO for checks that
// are neither a pass nor a concern, just a fact worth surfacing (a
// detected version, an optional feature's current setting).
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusIssue   Status = "issue"
	StatusInfo    Status = "info"
)

// Check is one named probe's result.
type Check struct {
	Status  Status `json:"status"`
	Detail  string `json:"detail"`
	Version string `json:"version,omitempty"`
}

// Category names, fixed per the reporter's scope.
const (
	CategoryDependencies  = "dependencies"
	CategoryOptionalTools = "optional_tools"
	CategoryFramework     = "framework"
	CategoryProjectState  = "project_state"
	CategoryEventBus      = "event_bus"
	CategoryBeads         = "beads"
)

// categoryOrder fixes the table rendering order; map iteration alone
// would make table output nondeterministic between runs.
var categoryOrder = []string{
	CategoryDependencies,
	CategoryOptionalTools,
	CategoryFramework,
	CategoryProjectState,
	CategoryEventBus,
	CategoryBeads,
}

// Report is the full JSON/table-rendered output of one Run.
type Report struct {
	Status          Status                    `json:"status"`
	ExitCode        int                       `json:"exit_code"`
	Version         string                    `json:"version"`
	Timestamp       time.Time                 `json:"timestamp"`
	Checks          map[string]map[string]Check `json:"checks"`
	Recommendations []string                  `json:"recommendations"`
	Issues          int                       `json:"issues"`
	Warnings        int                       `json:"warnings"`
}
