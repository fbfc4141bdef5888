// Package guard implements the Secret & Command Guards: credential
// redaction (plain text and structure-aware JSON), a mode-0600
// curl-auth-header writer, and a policy-driven destructive-command
// guard with autonomous-mode fail-closed semantics.
package guard

import (
	"fmt"
	"regexp"
)

const maxOperatorPatternLen = 200

// secretPatterns is the fixed, ordered list of credential shapes
// redacted before any operator-supplied pattern runs. Order matters:
// more specific prefixes are checked before the generic compact-token
// catch-all so a provider key isn't partially matched by it first.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),  // Anthropic
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),        // OpenAI-style
	regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),        // GitHub personal access token
	regexp.MustCompile(`gho_[A-Za-z0-9]{36}`),        // GitHub OAuth token
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`), // GitHub fine-grained PAT
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),           // AWS access key ID
	regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`), // Slack token
	regexp.MustCompile(`[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`), // compact 3-part token (JWT-shaped)
}

const redactedPlaceholder = "[REDACTED]"

// CompileOperatorPattern validates and compiles an operator-supplied
// redaction pattern, bounded to 200 characters.
func CompileOperatorPattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > maxOperatorPatternLen {
		return nil, ErrPatternTooLong
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile operator pattern: %w", err)
	}
	return re, nil
}

// Redact applies the fixed secret-pattern list followed by any
// operator-supplied patterns as a global substitution over plain text.
func Redact(text string, extra []*regexp.Regexp) string {
	out := text
	for _, p := range secretPatterns {
		out = p.ReplaceAllString(out, redactedPlaceholder)
	}
	for _, p := range extra {
		out = p.ReplaceAllString(out, redactedPlaceholder)
	}
	return out
}
