// Package review implements the multi-pass reviewer: adaptive
// diff-signal triage, a reasoning-sandwich driver (plan, find, verify),
// three-tier token estimation, and budget-preserving truncation.
package review

import (
	"time"

	"github.com/loabridge/bridge/internal/types"
)

// Classification is the adaptive triage outcome, deterministic or
// model-derived, that decides how many passes a review gets.
type Classification string

const (
	ClassificationLow    Classification = "low"
	ClassificationMedium Classification = "medium"
	ClassificationHigh   Classification = "high"
)

// Verdict is the reviewer's final outcome.
type Verdict string

const (
	VerdictApproved        Verdict = "APPROVED"
	VerdictChangesRequired Verdict = "CHANGES_REQUIRED"
	VerdictDecisionNeeded  Verdict = "DECISION_NEEDED"
)

// DiffStat is the deterministic input to diff-signal classification.
type DiffStat struct {
	FilesChanged int
	LinesChanged int
	Paths        []string
}

// Pass1Output is Pass 1's planning output: scope, dependency, risk, and
// test-gap analysis, plus the signals the dual-signal gate reads.
type Pass1Output struct {
	Plan               string   `json:"plan,omitempty"`
	RiskAreas          []string `json:"risk_areas,omitempty"`
	ScopeTokenEstimate int      `json:"scope_token_estimate,omitempty"`
	TestGaps           []string `json:"test_gaps,omitempty"`
}

// PassMetadata records how a review actually ran: which fallback (if
// any) fired, and under which classification.
type PassMetadata struct {
	Mode                        string         `json:"mode,omitempty"`
	Verification                string         `json:"verification,omitempty"`
	DeterministicClassification Classification `json:"deterministic_classification"`
	ModelClassification         Classification `json:"model_classification,omitempty"`
	GateClassification          Classification `json:"gate_classification"`
	TimeBudgetFallback          bool           `json:"time_budget_fallback,omitempty"`
	ConcurrencyKey              string         `json:"concurrency_key"`
}

// ReviewResult is the final JSON review.
type ReviewResult struct {
	Verdict      Verdict         `json:"verdict"`
	Findings     []types.Finding `json:"findings,omitempty"`
	PassMetadata PassMetadata    `json:"pass_metadata"`
}

// ReviewRequest is the input to Run. OutputFile, if set, receives the
// final ReviewResult as JSON once Run completes; per-pass prompts and
// raw model outputs go to Workspace/.bridge/review-tmp regardless.
type ReviewRequest struct {
	System     string
	User       string
	Workspace  string
	OutputFile string
	ReviewType string
}

// Config holds every adaptive threshold and budget, mirroring
// embedded/config/default.yaml's review.* keys.
type Config struct {
	SinglePassHighThresholdFiles   int
	SinglePassHighThresholdLines   int
	SinglePassMediumThresholdFiles int
	SinglePassMediumThresholdLines int

	ModelRiskAreaHighThreshold     int
	ModelScopeTokenHighThreshold   int
	ModelRiskAreaMediumThreshold   int
	ModelScopeTokenMediumThreshold int

	Pass1OutputTokens int
	Pass2InputTokens  int
	Pass2OutputTokens int
	Pass3InputTokens  int
	PerPassTimeout    time.Duration

	// ExtendedBudgetMultiplier scales pass2/pass3 token budgets when the
	// dual-signal gate forces a high classification.
	ExtendedBudgetMultiplier float64

	Pass1Model string
	Pass2Model string
	Pass3Model string
}

// DefaultConfig returns thresholds matching
// embedded/config/default.yaml's review.* section. The model-side
// dual-signal thresholds (ModelRiskArea*/ModelScopeToken*) have no
// equivalent pinned value in that file: the signals themselves
// (risk_area count, scope token estimate) are well defined but their
// cutoffs are an open configuration point, so these defaults are this
// package's own decision, documented in DESIGN.md.
func DefaultConfig() Config {
	return Config{
		SinglePassHighThresholdFiles:   15,
		SinglePassHighThresholdLines:   2000,
		SinglePassMediumThresholdFiles: 3,
		SinglePassMediumThresholdLines: 200,

		ModelRiskAreaHighThreshold:     3,
		ModelScopeTokenHighThreshold:   8000,
		ModelRiskAreaMediumThreshold:   1,
		ModelScopeTokenMediumThreshold: 3000,

		Pass1OutputTokens: 4000,
		Pass2InputTokens:  16000,
		Pass2OutputTokens: 8000,
		Pass3InputTokens:  16000,
		PerPassTimeout:    10 * time.Minute,

		ExtendedBudgetMultiplier: 1.5,

		Pass1Model: "xhigh",
		Pass2Model: "high",
		Pass3Model: "xhigh",
	}
}
