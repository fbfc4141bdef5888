package external

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var fixtureKeySanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// FixtureModelAdapter reads canned JSON fixtures keyed by (role, model)
// from a directory instead of invoking a live model. It is the "MAY be
// a mock reading fixtures" allowance made concrete, and is what every
// reviewer/bridge test constructs instead of a real adapter.
type FixtureModelAdapter struct {
	Dir string
}

// fixtureFileName builds a filesystem-safe name for a (role, model)
// pair, collapsing any character outside [a-zA-Z0-9_-] to avoid path
// traversal via a hostile model identifier.
func fixtureFileName(role Role, model string) string {
	key := fixtureKeySanitizer.ReplaceAllString(string(role)+"__"+model, "_")
	return key + ".json"
}

// Invoke reads Dir/<role>__<model>.json and decodes it as a
// ModelResponse. A missing fixture returns ErrFixtureNotFound. If the
// fixture's tokens_used exceeds req.TokenBudget (when TokenBudget > 0),
// Invoke returns ErrBudgetExceeded alongside the parsed response so
// callers can still inspect what would have been produced.
func (a *FixtureModelAdapter) Invoke(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	path := filepath.Join(a.Dir, fixtureFileName(req.Role, req.Model))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ModelResponse{}, fmt.Errorf("%w: %s", ErrFixtureNotFound, path)
		}
		return ModelResponse{}, fmt.Errorf("read fixture: %w", err)
	}

	var resp ModelResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ModelResponse{}, fmt.Errorf("parse fixture: %w", err)
	}
	resp.Raw = data

	if req.TokenBudget > 0 && resp.TokensUsed > req.TokenBudget {
		return resp, ErrBudgetExceeded
	}
	return resp, nil
}
