package review

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// Tokenizer is the external-tokenizer tier: feed text via stdin (never
// as a command argument, which would let text content inject extra
// argv entries) and parse a token count from stdout.
type Tokenizer interface {
	Estimate(ctx context.Context, text string) (int, error)
}

// ExternalTokenizer shells out to Command, writing text to its stdin
// and parsing a bare integer from its stdout.
type ExternalTokenizer struct {
	Command string
	Args    []string
}

func (t *ExternalTokenizer) Estimate(ctx context.Context, text string) (int, error) {
	cmd := exec.CommandContext(ctx, t.Command, t.Args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(stdout.String()))
}

// EstimateTokens is the three-tier token estimate: an external
// tokenizer if one is configured and succeeds, else the hybrid
// words*1.1+chars/7 formula calibrated against code-heavy inputs, else
// chars/4 as a last resort.
func EstimateTokens(ctx context.Context, text string, tokenizer Tokenizer) int {
	if tokenizer != nil {
		if n, err := tokenizer.Estimate(ctx, text); err == nil && n >= 0 {
			return n
		}
	}
	if n, ok := hybridEstimate(text); ok {
		return n
	}
	return len(text) / 4
}

// hybridEstimate implements words*1.1 + chars/7, calibrated to <=15%
// mean / <=25% p95 error across code-heavy inputs. It only fails to
// produce an estimate for an empty string, where chars/4 is equally
// exact (zero).
func hybridEstimate(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	words := len(strings.Fields(text))
	estimate := float64(words)*1.1 + float64(len(text))/7.0
	return int(estimate + 0.5), true
}
