package external

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// fakeRuntimeScript writes a shell script standing in for the "claude"
// binary: it locates its --output-file argument and writes body there,
// the same contract CLIModelAdapter expects from a real runtime.
func fakeRuntimeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake runtime script is a POSIX shell script")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-claude")
	script := "#!/bin/sh\n" +
		"while [ \"$#\" -gt 0 ]; do\n" +
		"  if [ \"$1\" = \"--output-file\" ]; then\n" +
		"    shift\n" +
		"    cat > \"$1\" <<'EOF'\n" + body + "\nEOF\n" +
		"    exit 0\n" +
		"  fi\n" +
		"  shift\n" +
		"done\n" +
		"exit 1\n"
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLIModelAdapterInvokeParsesOutputFile(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(promptPath, []byte("review this diff"), 0o600); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(dir, "output.json")

	script := fakeRuntimeScript(t, `{"tokens_used": 42, "verdict": "APPROVED"}`)
	adapter := &CLIModelAdapter{Command: script, Dir: dir}

	resp, err := adapter.Invoke(context.Background(), ModelRequest{
		Role:       RoleReview,
		PromptFile: promptPath,
		OutputFile: outputPath,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.TokensUsed != 42 || resp.Verdict != "APPROVED" {
		t.Errorf("resp = %+v, want tokens 42 verdict APPROVED", resp)
	}
}

func TestCLIModelAdapterInvokeBudgetExceeded(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	_ = os.WriteFile(promptPath, []byte("x"), 0o600)
	outputPath := filepath.Join(dir, "output.json")

	script := fakeRuntimeScript(t, `{"tokens_used": 500, "verdict": "APPROVED"}`)
	adapter := &CLIModelAdapter{Command: script, Dir: dir}

	_, err := adapter.Invoke(context.Background(), ModelRequest{
		PromptFile:  promptPath,
		OutputFile:  outputPath,
		TokenBudget: 100,
	})
	if err == nil {
		t.Fatal("Invoke() error = nil, want ErrBudgetExceeded")
	}
}

func TestCLIModelAdapterInvokeMissingPromptFile(t *testing.T) {
	adapter := &CLIModelAdapter{Command: "irrelevant"}
	_, err := adapter.Invoke(context.Background(), ModelRequest{
		PromptFile: filepath.Join(t.TempDir(), "missing.txt"),
		OutputFile: filepath.Join(t.TempDir(), "out.json"),
	})
	if err == nil {
		t.Fatal("Invoke() error = nil, want read-prompt-file error")
	}
}

func TestCLIModelAdapterDefaultCommandIsClaude(t *testing.T) {
	a := &CLIModelAdapter{}
	if a.command() != "claude" {
		t.Errorf("command() = %q, want claude", a.command())
	}
}

func TestCLIModelAdapterInvokeTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake runtime script is a POSIX shell script")
	}
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	_ = os.WriteFile(promptPath, []byte("x"), 0o600)
	outputPath := filepath.Join(dir, "output.json")

	path := filepath.Join(dir, "slow-claude")
	script := "#!/bin/sh\nsleep 5\n"
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		t.Fatal(err)
	}

	adapter := &CLIModelAdapter{Command: path, Dir: dir}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.Invoke(ctx, ModelRequest{PromptFile: promptPath, OutputFile: outputPath})
	if err == nil {
		t.Fatal("Invoke() error = nil, want ErrModelTimeout")
	}
}
