// Package external defines the narrow, swappable contracts the rest of
// the engine talks to instead of a concrete model, config, or VCS
// implementation: ModelAdapter, ConfigLoader, and VCSClient. The core
// must never depend on live model availability for its own
// correctness, so every contract here has a fixture- or wrapper-backed
// implementation suitable for tests and for operators without network
// access.
package external

import (
	"context"

	"github.com/loabridge/bridge/internal/types"
)

// Role identifies which seat in the reasoning sandwich a model
// invocation is filling.
type Role string

const (
	RoleAttacker  Role = "attacker"
	RoleEvaluator Role = "evaluator"
	RoleDefender  Role = "defender"
	RoleReview    Role = "review"
)

// ModelRequest is the input to a ModelAdapter invocation.
type ModelRequest struct {
	Role        Role
	Model       string
	PromptFile  string
	OutputFile  string
	TokenBudget int // 0 = unlimited
	Timeout     int // seconds
}

// ModelResponse is the parsed output of a model invocation. Raw holds
// the full decoded JSON body so callers needing fields beyond the
// common ones (e.g. reviewer-specific pass metadata) can re-unmarshal
// it themselves.
type ModelResponse struct {
	TokensUsed int             `json:"tokens_used"`
	Verdict    string          `json:"verdict,omitempty"`
	Findings   []types.Finding `json:"findings,omitempty"`
	Raw        []byte          `json:"-"`
}

// ModelAdapter invokes a model for one role/prompt pair. Exit-code
// semantics (0 success, 1 timeout/invocation failure, 2 budget
// exceeded) are translated into a nil error, ErrModelTimeout-wrapping
// error, or ErrBudgetExceeded-wrapping error respectively — callers
// should use errors.Is rather than inspect a process exit code.
type ModelAdapter interface {
	Invoke(ctx context.Context, req ModelRequest) (ModelResponse, error)
}
