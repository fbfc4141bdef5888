package review

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/loabridge/bridge/internal/external"
	"github.com/loabridge/bridge/internal/types"
)

// logger is package-scoped like internal/pathlock's and
// internal/guard's: Run is a free function called straight from
// internal/bridge with no logger otherwise threaded through.
var logger = zap.NewNop()

// SetLogger installs l as the package-wide logger for pass-mode and
// fallback decisions. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// decodeJSON unmarshals raw into v, tolerating an empty body (a
// fixture adapter may not set Raw in hand-built test responses).
func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Run drives the reasoning-sandwich review: Pass 1 (plan) always
// executes first; its own output and the deterministic diff signal
// jointly decide whether Pass 2 (find) and Pass 3 (verify) run
// separately, run with extended budgets, or are skipped in favor of a
// single combined pass. Passes never run concurrently — each depends
// on the previous one's output.
func Run(ctx context.Context, cfg Config, adapter external.ModelAdapter, req ReviewRequest, stat DiffStat) (ReviewResult, error) {
	if req.ReviewType == "" {
		return ReviewResult{}, ErrInvalidReviewType
	}

	start := time.Now()
	globalBudget := 3 * cfg.PerPassTimeout
	key := ConcurrencyKey()

	deterministic := ClassifyDiff(stat, cfg)
	meta := PassMetadata{
		DeterministicClassification: deterministic,
		ConcurrencyKey:              key,
	}

	pass1Resp, pass1Out, err := runPass1(ctx, adapter, req, cfg, key)
	if err != nil {
		logger.Warn("pass 1 failed, falling back to single combined pass",
			zap.String("concurrency_key", key), zap.Error(err))
		meta.Mode = "single-pass-fallback"
		resp, fbErr := runCombinedPass(ctx, adapter, req, cfg, key, combinedFallbackPrompt(req))
		if fbErr != nil {
			return ReviewResult{}, fmt.Errorf("single-pass fallback after pass 1 failure: %w", fbErr)
		}
		return finalize(req, ReviewResult{Verdict: resolveVerdict(resp), Findings: resp.Findings, PassMetadata: meta})
	}
	_ = pass1Resp

	modelClass := ClassifyModelSignal(pass1Out, cfg)
	meta.ModelClassification = modelClass
	gate := DualSignalGate(deterministic, modelClass)
	meta.GateClassification = gate

	if remaining(start, globalBudget) < cfg.PerPassTimeout {
		meta.TimeBudgetFallback = true
		meta.Mode = "single-pass-fallback"
		resp, err := runCombinedPass(ctx, adapter, req, cfg, key, combinedPrompt(req, pass1Out))
		if err != nil {
			return ReviewResult{}, fmt.Errorf("single-pass fallback after time-budget check: %w", err)
		}
		return finalize(req, ReviewResult{Verdict: resolveVerdict(resp), Findings: resp.Findings, PassMetadata: meta})
	}

	if gate == ClassificationLow {
		meta.Mode = "single-pass"
		resp, err := runCombinedPass(ctx, adapter, req, cfg, key, combinedPrompt(req, pass1Out))
		if err != nil {
			return ReviewResult{}, fmt.Errorf("adaptive single pass: %w", err)
		}
		return finalize(req, ReviewResult{Verdict: resolveVerdict(resp), Findings: resp.Findings, PassMetadata: meta})
	}

	extended := gate == ClassificationHigh
	pass2Resp, err := runPass2WithRetry(ctx, adapter, req, cfg, key, pass1Out, extended)
	if err != nil {
		logger.Error("pass 2 aborted after retry", zap.String("concurrency_key", key), zap.Error(err))
		return ReviewResult{}, ErrPass2Aborted
	}

	if remaining(start, globalBudget) < cfg.PerPassTimeout {
		meta.TimeBudgetFallback = true
		meta.Verification = "skipped"
		return finalize(req, ReviewResult{Verdict: verdictFromFindings(pass2Resp.Findings), Findings: pass2Resp.Findings, PassMetadata: meta})
	}

	pass3Resp, err := runPass3(ctx, adapter, req, cfg, key, pass2Resp.Findings, extended)
	if err != nil {
		meta.Verification = "skipped"
		return finalize(req, ReviewResult{Verdict: verdictFromFindings(pass2Resp.Findings), Findings: pass2Resp.Findings, PassMetadata: meta})
	}

	return finalize(req, ReviewResult{Verdict: resolveVerdict(pass3Resp), Findings: pass3Resp.Findings, PassMetadata: meta})
}

func remaining(start time.Time, budget time.Duration) time.Duration {
	return budget - time.Since(start)
}

// finalize persists result to req.OutputFile, if set, before returning
// it to the caller.
func finalize(req ReviewRequest, result ReviewResult) (ReviewResult, error) {
	if req.OutputFile == "" {
		return result, nil
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return result, fmt.Errorf("marshal review result: %w", err)
	}
	if err := writePassFile(req.OutputFile, redactText(string(data))); err != nil {
		return result, fmt.Errorf("write review result: %w", err)
	}
	return result, nil
}

// tokenEstimator adapts EstimateTokens to TruncateText's func(string) int
// shape, threading ctx through for the external-tokenizer tier. No
// tokenizer is configured here, so it always resolves through the
// hybrid/chars-per-4 fallback chain.
func tokenEstimator(ctx context.Context) func(string) int {
	return func(s string) int {
		return EstimateTokens(ctx, s, nil)
	}
}

func tempPath(workspace, key string, suffix string) string {
	return filepath.Join(workspace, ".bridge", "review-tmp", key+suffix)
}

func runPass1(ctx context.Context, adapter external.ModelAdapter, req ReviewRequest, cfg Config, key string) (external.ModelResponse, Pass1Output, error) {
	promptPath := tempPath(req.Workspace, key, "-pass1.prompt")
	if err := writePassFile(promptPath, redactText(req.System+"\n\n"+req.User)); err != nil {
		return external.ModelResponse{}, Pass1Output{}, err
	}

	passCtx, cancel := context.WithTimeout(ctx, cfg.PerPassTimeout)
	defer cancel()

	resp, err := adapter.Invoke(passCtx, external.ModelRequest{
		Role:        external.RoleReview,
		Model:       cfg.Pass1Model,
		PromptFile:  promptPath,
		OutputFile:  tempPath(req.Workspace, key, "-pass1.output.json"),
		TokenBudget: cfg.Pass1OutputTokens,
		Timeout:     int(cfg.PerPassTimeout.Seconds()),
	})
	if err != nil {
		return external.ModelResponse{}, Pass1Output{}, err
	}

	var out Pass1Output
	_ = decodeJSON(resp.Raw, &out)
	return resp, out, nil
}

func runPass2WithRetry(ctx context.Context, adapter external.ModelAdapter, req ReviewRequest, cfg Config, key string, pass1Out Pass1Output, extended bool) (external.ModelResponse, error) {
	resp, err := runPass2(ctx, adapter, req, cfg, key, pass1Out, extended)
	if err == nil {
		return resp, nil
	}
	logger.Warn("pass 2 failed, retrying once", zap.String("concurrency_key", key), zap.Error(err))
	return runPass2(ctx, adapter, req, cfg, key, pass1Out, extended)
}

func runPass2(ctx context.Context, adapter external.ModelAdapter, req ReviewRequest, cfg Config, key string, pass1Out Pass1Output, extended bool) (external.ModelResponse, error) {
	promptPath := tempPath(req.Workspace, key, "-pass2.prompt")
	content := req.System + "\n\n" + req.User + "\n\nPlan:\n" + pass1Out.Plan
	content = TruncateText(content, cfg.Pass2InputTokens, tokenEstimator(ctx))
	if err := writePassFile(promptPath, redactText(content)); err != nil {
		return external.ModelResponse{}, err
	}

	budget := cfg.Pass2OutputTokens
	if extended {
		budget = int(float64(budget) * cfg.ExtendedBudgetMultiplier)
	}

	passCtx, cancel := context.WithTimeout(ctx, cfg.PerPassTimeout)
	defer cancel()

	return adapter.Invoke(passCtx, external.ModelRequest{
		Role:        external.RoleReview,
		Model:       cfg.Pass2Model,
		PromptFile:  promptPath,
		OutputFile:  tempPath(req.Workspace, key, "-pass2.output.json"),
		TokenBudget: budget,
		Timeout:     int(cfg.PerPassTimeout.Seconds()),
	})
}

func runPass3(ctx context.Context, adapter external.ModelAdapter, req ReviewRequest, cfg Config, key string, findings []types.Finding, extended bool) (external.ModelResponse, error) {
	promptPath := tempPath(req.Workspace, key, "-pass3.prompt")
	content := req.System + "\n\nVerify every file:line reference in these findings; remove speculative ones:\n"
	for _, f := range findings {
		content += "- " + f.Title + " (" + f.Location() + ")\n"
	}
	content = TruncateText(content, cfg.Pass3InputTokens, tokenEstimator(ctx))
	if err := writePassFile(promptPath, redactText(content)); err != nil {
		return external.ModelResponse{}, err
	}

	budget := cfg.Pass3InputTokens
	if extended {
		budget = int(float64(budget) * cfg.ExtendedBudgetMultiplier)
	}

	passCtx, cancel := context.WithTimeout(ctx, cfg.PerPassTimeout)
	defer cancel()

	return adapter.Invoke(passCtx, external.ModelRequest{
		Role:        external.RoleReview,
		Model:       cfg.Pass3Model,
		PromptFile:  promptPath,
		OutputFile:  tempPath(req.Workspace, key, "-pass3.output.json"),
		TokenBudget: budget,
		Timeout:     int(cfg.PerPassTimeout.Seconds()),
	})
}

func runCombinedPass(ctx context.Context, adapter external.ModelAdapter, req ReviewRequest, cfg Config, key string, content string) (external.ModelResponse, error) {
	promptPath := tempPath(req.Workspace, key, "-combined.prompt")
	if err := writePassFile(promptPath, redactText(content)); err != nil {
		return external.ModelResponse{}, err
	}

	passCtx, cancel := context.WithTimeout(ctx, cfg.PerPassTimeout)
	defer cancel()

	return adapter.Invoke(passCtx, external.ModelRequest{
		Role:        external.RoleReview,
		Model:       cfg.Pass1Model,
		PromptFile:  promptPath,
		OutputFile:  tempPath(req.Workspace, key, "-combined.output.json"),
		TokenBudget: cfg.Pass2OutputTokens,
		Timeout:     int(cfg.PerPassTimeout.Seconds()),
	})
}

func combinedFallbackPrompt(req ReviewRequest) string {
	return req.System + "\n\n" + req.User + "\n\n(pass 1 failed; plan, find, and verify in a single response)"
}

func combinedPrompt(req ReviewRequest, pass1Out Pass1Output) string {
	return req.System + "\n\n" + req.User + "\n\nPlan:\n" + pass1Out.Plan + "\n\n(single-pass: find and verify together)"
}

func resolveVerdict(resp external.ModelResponse) Verdict {
	if v, ok := parseVerdict(resp.Verdict); ok {
		return v
	}
	return verdictFromFindings(resp.Findings)
}

func parseVerdict(s string) (Verdict, bool) {
	switch Verdict(s) {
	case VerdictApproved, VerdictChangesRequired, VerdictDecisionNeeded:
		return Verdict(s), true
	default:
		return "", false
	}
}

func verdictFromFindings(findings []types.Finding) Verdict {
	hasSeverity := func(sev types.Severity) bool {
		for _, f := range findings {
			if f.Severity == sev {
				return true
			}
		}
		return false
	}
	switch {
	case hasSeverity(types.SeverityBlocker):
		return VerdictChangesRequired
	case hasSeverity(types.SeverityDisputed):
		return VerdictDecisionNeeded
	default:
		return VerdictApproved
	}
}
