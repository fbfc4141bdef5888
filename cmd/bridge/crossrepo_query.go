package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/loabridge/bridge/internal/ctxquery"
)

type ghSearchHit struct {
	Path        string `json:"path"`
	TextMatches []struct {
		Fragment string `json:"fragment"`
	} `json:"textMatches"`
}

// ghSearchCodeQuery probes a single remote repo for query via `gh
// search code`, the same gh-CLI-shelling pattern GitVCSClient.
// ReadRemoteFile uses for its own GitHub API call. Every hit becomes
// one grep-tier ctxquery.Result so the engine's cross-repo probe and
// its local Context Query Facade share a result shape.
func ghSearchCodeQuery(ctx context.Context, repo, query string) ([]ctxquery.Result, error) {
	cmd := exec.CommandContext(ctx, "gh", "search", "code", query,
		"--repo", repo, "--json", "path,textMatches", "--limit", "5")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("gh search code in %s: %w", repo, err)
	}

	var hits []ghSearchHit
	if err := json.Unmarshal(stdout.Bytes(), &hits); err != nil {
		return nil, fmt.Errorf("parse gh search code output: %w", err)
	}

	results := make([]ctxquery.Result, 0, len(hits))
	for _, h := range hits {
		content := h.Path
		if len(h.TextMatches) > 0 {
			content = h.TextMatches[0].Fragment
		}
		results = append(results, ctxquery.Result{
			Source:  repo + ":" + h.Path,
			Content: content,
			Tier:    ctxquery.TierGrep,
		})
	}
	return results, nil
}
