package guard

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/loabridge/bridge/embedded"
)

func compilePolicyPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}

// LoadPolicy reads a command-guard policy from path; when path does
// not exist, it falls back to the compiled-in default policy
// (embedded.CommandGuardPolicy), matching the project-override /
// compiled-in-default convention used throughout this repo.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return parsePolicy(embedded.CommandGuardPolicy)
		}
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return parsePolicy(data)
}

func parsePolicy(data []byte) (*Policy, error) {
	var raw rawPolicy
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	policy := &Policy{DefaultDecision: raw.DefaultDecision}
	if policy.DefaultDecision == "" {
		policy.DefaultDecision = DecisionAllow
	}

	for _, r := range raw.Rules {
		re, err := compilePolicyPattern(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile rule pattern %q: %w", r.Pattern, err)
		}
		policy.Rules = append(policy.Rules, Rule{Pattern: re, Decision: r.Decision, Reason: r.Reason})
	}
	return policy, nil
}
