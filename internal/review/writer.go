package review

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/loabridge/bridge/internal/guard"
)

// redactText runs guard.Redact over a pass's text before it is written
// to disk or fed to the next pass, so a prompt or model output can
// never leak a credential into an artifact or the next pass's input.
func redactText(text string) string {
	return guard.Redact(text, nil)
}

// writePassFile atomically writes a (already-redacted) pass prompt or
// output to path, following the same temp-file-then-rename pattern
// used throughout this repo's packages (grounded on
// cmd/ao/rpi_phased_processing.go's writePhasedStateAtomic).
func writePassFile(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create pass file directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".review-pass-*.tmp")
	if err != nil {
		return fmt.Errorf("create tmp pass file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		_ = tmp.Close()
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return fmt.Errorf("write tmp pass file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync tmp pass file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tmp pass file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename tmp pass file: %w", err)
	}
	cleanup = false
	return nil
}
