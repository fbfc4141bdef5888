// Package bridge implements the outer iteration engine: the phase
// graph (JACK_IN → ITERATING → RESEARCHING → EXPLORING → FINALIZING →
// JACKED_OUT), its signal interface, convergence predicate, timeouts,
// and resume policy. The engine never invokes a model itself — it
// emits SIGNAL lines for an outer dispatcher and calls into
// internal/review, internal/vision, and internal/ctxquery for the
// work each phase represents.
package bridge

import (
	"time"

	"github.com/loabridge/bridge/internal/taxonomy"
	"github.com/loabridge/bridge/internal/types"
)

// Phase is one node of the engine's phase graph.
type Phase string

const (
	PhaseJackIn     Phase = "JACK_IN"
	PhaseIterating  Phase = "ITERATING"
	PhaseResearching Phase = "RESEARCHING"
	PhaseExploring  Phase = "EXPLORING"
	PhaseFinalizing Phase = "FINALIZING"
	PhaseJackedOut  Phase = "JACKED_OUT"
	PhaseHalted     Phase = "HALTED"
)

// Signal names the engine emits on stdout as `SIGNAL:<name>:<iteration>`.
const (
	SignalGenerateSprintFromFindings = "GENERATE_SPRINT_FROM_FINDINGS"
	SignalRunSprintPlan              = "RUN_SPRINT_PLAN"
	SignalRunPerSprint                = "RUN_PER_SPRINT"
	SignalCrossRepoQuery              = "CROSS_REPO_QUERY"
	SignalVisionCheck                 = "VISION_CHECK"
	SignalBridgebuilderReview         = "BRIDGEBUILDER_REVIEW"
	SignalLoreReferenceScan           = "LORE_REFERENCE_SCAN"
	SignalVisionCapture               = "VISION_CAPTURE"
	SignalGithubTrail                 = "GITHUB_TRAIL"
	SignalFlatlineCheck               = "FLATLINE_CHECK"
	SignalResearchIteration           = "RESEARCH_ITERATION"
	SignalInquiryMode                 = "INQUIRY_MODE"
	SignalVisionSprint                = "VISION_SPRINT"
	SignalVisionSprintTimeout         = "VISION_SPRINT_TIMEOUT"
	SignalVisionSprintSentinel        = "VISION_SPRINT_SENTINEL"
	SignalGroundTruthUpdate           = "GROUND_TRUTH_UPDATE"
	SignalButterfreezoneGen           = "BUTTERFREEZONE_GEN"
	SignalLoreDiscovery               = "LORE_DISCOVERY"
	SignalRTFMPass                    = "RTFM_PASS"
	SignalRTFMCheckResult             = "RTFM_CHECK_RESULT"
	SignalFinalPRUpdate               = "FINAL_PR_UPDATE"
)

// WorktreeMode controls whether sprint execution is isolated in a git
// worktree.
type WorktreeMode string

const (
	WorktreeAuto   WorktreeMode = "auto"
	WorktreeAlways WorktreeMode = "always"
	WorktreeNever  WorktreeMode = "never"
)

// Config holds every engine threshold and policy knob, mirroring
// embedded/config/default.yaml's engine.* section.
type Config struct {
	MinDepth int
	MaxDepth int
	Depth    int

	PerIterationTimeout time.Duration
	TotalTimeout        time.Duration

	FlatlineThreshold   float64
	FlatlineConsecutive int

	ExplorationEnabled bool
	ExplorationTimeout time.Duration

	RTFMRetryBudget int

	ProtectedBranches []string

	SeverityWeights taxonomy.Weights

	WorktreeMode WorktreeMode

	// SprintPlanPath is the path preflight asserts exists.
	SprintPlanPath string
}

// DefaultConfig returns thresholds matching
// embedded/config/default.yaml's engine.* section.
func DefaultConfig() Config {
	return Config{
		MinDepth:            1,
		MaxDepth:            5,
		Depth:               3,
		PerIterationTimeout: 4 * time.Hour,
		TotalTimeout:        24 * time.Hour,
		FlatlineThreshold:   0.05,
		FlatlineConsecutive: 2,
		ExplorationEnabled:  false,
		ExplorationTimeout:  10 * time.Minute,
		RTFMRetryBudget:     1,
		ProtectedBranches:   []string{"main", "master"},
		SeverityWeights:     taxonomy.DefaultWeights,
		WorktreeMode:        WorktreeAuto,
	}
}

// IterationRecord is what one ITERATING pass contributes to state: its
// findings, the severity-weighted score they produce, and where the
// sprint execution ran.
type IterationRecord struct {
	Iteration int             `json:"iteration"`
	Findings  []types.Finding `json:"findings"`
	Score     float64         `json:"score"`
	Verdict   string          `json:"verdict"`
	Source    IterationSource `json:"source"`
	Excluded  bool            `json:"excluded,omitempty"`
}

// IterationSource records where an iteration's sprint execution ran
// (worktree-isolated or in-place) for audit/debugging.
type IterationSource struct {
	WorktreePath string `json:"worktree_path,omitempty"`
	RunID        string `json:"run_id,omitempty"`
}

// RunResult is the outcome of a complete Run call.
type RunResult struct {
	FinalPhase        Phase             `json:"final_phase"`
	IterationsRun     int               `json:"iterations_run"`
	Trajectory        []float64         `json:"trajectory"`
	Converged         bool              `json:"converged"`
	ExplorationSkip   string            `json:"exploration_skip_reason,omitempty"`
	RTFMAttempts      int               `json:"rtfm_attempts"`
	VisionSprintTimedOut bool           `json:"vision_sprint_timed_out,omitempty"`
	Records           []IterationRecord `json:"records"`
}
