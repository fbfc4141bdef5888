package guard

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// autonomousEnvVars lists the operator/environment signals that put the
// guard into autonomous mode, mirrored in
// embedded/config/default.yaml's guard.autonomous_env_vars. Each entry
// is either "NAME=value" (must match exactly) or bare "NAME" (present
// with any non-empty value is enough).
var autonomousEnvVars = []string{
	"LOA_RUN_MODE=autonomous",
	"CLAWDBOT_GATEWAY_TOKEN",
	"LOA_OPERATOR=ai",
}

// IsAutonomous reports whether the current process environment matches
// any configured autonomous-mode signal.
func IsAutonomous() bool {
	return isAutonomousEnv(os.Environ)
}

func isAutonomousEnv(environ func() []string) bool {
	env := make(map[string]string)
	for _, kv := range environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	for _, signal := range autonomousEnvVars {
		if i := strings.IndexByte(signal, '='); i >= 0 {
			name, want := signal[:i], signal[i+1:]
			if env[name] == want {
				return true
			}
			continue
		}
		if v, ok := env[signal]; ok && v != "" {
			return true
		}
	}
	return false
}

// AuditSink is the narrow interface CommandGuard needs from
// internal/events: append one record, never fail the caller's
// decision even if the audit write itself fails.
type AuditSink interface {
	Emit(emitter, eventType, event string, data any) error
}

// CommandGuard evaluates shell command strings against a Policy,
// applying interactive-vs-autonomous bypass semantics and auditing
// every non-ALLOW decision.
type CommandGuard struct {
	Policy     *Policy
	Audit      AuditSink
	Autonomous func() bool
}

// NewCommandGuard returns a CommandGuard using IsAutonomous for mode
// detection.
func NewCommandGuard(policy *Policy, audit AuditSink) *CommandGuard {
	return &CommandGuard{Policy: policy, Audit: audit, Autonomous: IsAutonomous}
}

// Evaluate looks up command against the policy's rules in order,
// returning the first match's decision and reason, or the policy's
// default decision if nothing matches.
func (g *CommandGuard) Evaluate(command string) (Decision, string) {
	for _, r := range g.Policy.Rules {
		if r.Pattern.MatchString(command) {
			return r.Decision, r.Reason
		}
	}
	return g.Policy.DefaultDecision, ""
}

// Check evaluates command and applies mode-dependent bypass semantics.
// In autonomous mode, bypass is never honored — requesting it on a
// non-ALLOW command returns ErrBypassNotHonored rather than silently
// proceeding. In interactive mode, bypass is permitted but still
// audited. A nil Policy (guard engine absent) fails closed in
// autonomous mode and fails open with a warning in interactive mode.
func (g *CommandGuard) Check(command string, bypass bool) (Decision, error) {
	autonomous := g.Autonomous != nil && g.Autonomous()

	if g.Policy == nil {
		if autonomous {
			g.audit(command, DecisionBlock, "guard engine unavailable: fail-closed in autonomous mode")
			return DecisionBlock, fmt.Errorf("guard: policy unavailable in autonomous mode")
		}
		g.audit(command, DecisionWarn, "guard engine unavailable: fail-open in interactive mode")
		return DecisionAllow, nil
	}

	decision, reason := g.Evaluate(command)

	if decision != DecisionAllow {
		if bypass {
			if autonomous {
				g.audit(command, decision, reason+" (bypass refused: autonomous mode)")
				return decision, ErrBypassNotHonored
			}
			g.audit(command, DecisionWarn, reason+" (bypassed by operator)")
			return DecisionAllow, nil
		}
		g.audit(command, decision, reason)
	}

	if decision == DecisionBlock {
		return decision, fmt.Errorf("guard: command blocked: %s", reason)
	}
	return decision, nil
}

func (g *CommandGuard) audit(command string, decision Decision, reason string) {
	if g.Audit == nil {
		return
	}
	data, err := json.Marshal(map[string]string{
		"command":  command,
		"decision": string(decision),
		"reason":   reason,
	})
	if err != nil {
		return
	}
	_ = g.Audit.Emit("guard", "command_decision", string(decision), json.RawMessage(data))
}
