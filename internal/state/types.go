// Package state persists one JSON document per bridge run: schema
// version, phase, iteration ledger, artifact checksums, and
// timestamps. Every mutation goes through a single read-validate-write
// cycle under an internal/pathlock document lock, with a one-deep
// rolling backup and struct-tag validation before anything hits disk,
// generalizing the teacher's phased-state file and its ledger's
// atomic-write discipline into the bridge-agnostic shape the engine's
// StateStore interface needs.
package state

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// CurrentSchemaVersion is the schema_version this package writes.
// CheckVersion migrates anything older up to it.
const CurrentSchemaVersion = 1

// Status is the document's state field — every bridge.Phase value plus
// INTERRUPTED, which the engine's Phase itself has no node for since
// it's a document-level concept (save-then-exit), not a phase the
// engine transitions through.
type Status string

const (
	StatusJackIn      Status = "JACK_IN"
	StatusIterating   Status = "ITERATING"
	StatusResearching Status = "RESEARCHING"
	StatusExploring   Status = "EXPLORING"
	StatusFinalizing  Status = "FINALIZING"
	StatusJackedOut   Status = "JACKED_OUT"
	StatusHalted      Status = "HALTED"
	StatusInterrupted Status = "INTERRUPTED"
)

// IterationSummary is one entry in Document.Iterations: enough to
// reconstruct the trajectory and audit where a sprint ran without
// carrying the full finding bodies (those live in the event sink and
// the vision registry).
type IterationSummary struct {
	Iteration      int     `json:"iteration"`
	Score          float64 `json:"score"`
	Verdict        string  `json:"verdict"`
	FindingsCount  int     `json:"findings_count"`
	BlockerCount   int     `json:"blocker_count"`
	WorktreePath   string  `json:"worktree_path,omitempty"`
	RunID          string  `json:"run_id,omitempty"`
	Excluded       bool    `json:"excluded,omitempty"`
}

// Artifact records a tracked file's expected checksum as of the last
// AddArtifact call.
type Artifact struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// Timestamps tracks the document's lifecycle. LastActivity is bumped
// on every mutation; Interrupted is set only by SaveInterrupt.
type Timestamps struct {
	Started      time.Time  `json:"started"`
	LastActivity time.Time  `json:"last_activity"`
	Interrupted  *time.Time `json:"interrupted,omitempty"`
}

// Document is the full on-disk shape, schema_version 1.
type Document struct {
	SchemaVersion     int                  `json:"schema_version" validate:"gte=1"`
	BridgeID          string               `json:"bridge_id" validate:"required,bridgeid"`
	State             Status               `json:"state" validate:"required,oneof=JACK_IN ITERATING RESEARCHING EXPLORING FINALIZING JACKED_OUT HALTED INTERRUPTED"`
	Iteration         int                  `json:"iteration" validate:"gte=0"`
	Depth             int                  `json:"depth" validate:"gte=0,lte=50"`
	PerSprint         bool                 `json:"per_sprint"`
	FlatlineThreshold float64              `json:"flatline_threshold" validate:"gte=0"`
	Branch            string               `json:"branch"`
	Iterations        []IterationSummary   `json:"iterations"`
	Metrics           map[string]any       `json:"metrics,omitempty"`
	Finalization      map[string]any       `json:"finalization,omitempty"`
	Artifacts         map[string]Artifact  `json:"artifacts,omitempty"`
	InterruptedPhase  string               `json:"interrupted_phase,omitempty"`
	InterruptedReason string               `json:"interrupted_reason,omitempty"`
	Timestamps        Timestamps           `json:"timestamps"`
}

// bridgeIDPattern mirrors pathlock's resource-name character class —
// the bridge_id becomes part of the state file's path.
var bridgeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("bridgeid", func(fl validator.FieldLevel) bool {
		return bridgeIDPattern.MatchString(fl.Field().String())
	})
	return v
}
