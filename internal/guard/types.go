package guard

import "regexp"

// Decision is the outcome of a destructive-command policy lookup.
type Decision string

const (
	DecisionAllow Decision = "ALLOW"
	DecisionWarn  Decision = "WARN"
	DecisionBlock Decision = "BLOCK"
)

// rawRule is the YAML shape of one policy rule, pattern as a plain
// string pending compilation.
type rawRule struct {
	Pattern  string   `yaml:"pattern"`
	Decision Decision `yaml:"decision"`
	Reason   string   `yaml:"reason"`
}

// rawPolicy is the YAML shape of the whole command-guard policy file.
type rawPolicy struct {
	Rules           []rawRule `yaml:"rules"`
	DefaultDecision Decision  `yaml:"default_decision"`
}

// Rule is one compiled, evaluated-in-order policy entry.
type Rule struct {
	Pattern  *regexp.Regexp
	Decision Decision
	Reason   string
}

// Policy is a compiled, ready-to-evaluate command-guard policy.
type Policy struct {
	Rules           []Rule
	DefaultDecision Decision
}
