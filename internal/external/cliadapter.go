package external

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// CLIModelAdapter invokes a model by shelling out to a runtime command
// that accepts a prompt via "-p" and writes its JSON response to a
// file, the same invocation shape as the teacher's
// spawnRuntimeDirectImpl ("claude -p <prompt>"). Command defaults to
// "claude" when empty, the same default the teacher's own
// effectiveRuntimeCommand falls back to.
type CLIModelAdapter struct {
	// Command is the runtime binary to exec. Empty defaults to "claude".
	Command string

	// Dir is the working directory the subprocess runs in (a worktree
	// path during an isolated iteration, the repo root otherwise).
	Dir string
}

func (a *CLIModelAdapter) command() string {
	if a.Command == "" {
		return "claude"
	}
	return a.Command
}

// Invoke reads req.PromptFile, execs the runtime command with the
// prompt text and an instruction to write JSON to req.OutputFile, and
// decodes that file as a ModelResponse. A context deadline exceeded
// while the subprocess is running is reported as ErrModelTimeout, the
// same translation spawnRuntimeDirectImpl performs for its own
// caller-visible timeout error.
func (a *CLIModelAdapter) Invoke(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	prompt, err := os.ReadFile(req.PromptFile)
	if err != nil {
		return ModelResponse{}, fmt.Errorf("read prompt file: %w", err)
	}

	cmd := exec.CommandContext(ctx, a.command(), "-p", string(prompt),
		"--output-format", "json", "--output-file", req.OutputFile)
	cmd.Dir = a.Dir
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return ModelResponse{}, fmt.Errorf("%w: %s", ErrModelTimeout, a.command())
	}
	if runErr != nil {
		return ModelResponse{}, fmt.Errorf("%s invocation failed: %w", a.command(), runErr)
	}

	data, err := os.ReadFile(req.OutputFile)
	if err != nil {
		return ModelResponse{}, fmt.Errorf("read model output: %w", err)
	}

	var resp ModelResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ModelResponse{}, fmt.Errorf("parse model output: %w", err)
	}
	resp.Raw = data

	if req.TokenBudget > 0 && resp.TokensUsed > req.TokenBudget {
		return resp, ErrBudgetExceeded
	}
	return resp, nil
}
