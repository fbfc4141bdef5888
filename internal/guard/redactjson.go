package guard

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// RedactJSON applies Redact to every string value in a JSON document,
// walking maps and slices structurally so only values are rewritten —
// object keys are never touched. It then verifies the reachable scalar
// leaf count is unchanged; a mismatch means the walk dropped or
// duplicated a value and is a fatal redaction failure.
func RedactJSON(data []byte, extra []*regexp.Regexp) ([]byte, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal for redaction: %w", err)
	}

	before := countScalars(parsed)
	redacted := redactValue(parsed, extra)
	after := countScalars(redacted)
	if before != after {
		return nil, ErrScalarCardinalityChanged
	}

	out, err := json.Marshal(redacted)
	if err != nil {
		return nil, fmt.Errorf("marshal redacted document: %w", err)
	}
	return out, nil
}

func redactValue(v any, extra []*regexp.Regexp) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = redactValue(val, extra) // keys are never rewritten
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = redactValue(val, extra)
		}
		return out
	case string:
		return Redact(t, extra)
	default:
		return v // numbers, bools, null pass through unchanged
	}
}

// countScalars counts reachable leaf values (strings, numbers, bools,
// null) — i.e. everything that is not itself a map or slice.
func countScalars(v any) int {
	switch t := v.(type) {
	case map[string]any:
		n := 0
		for _, val := range t {
			n += countScalars(val)
		}
		return n
	case []any:
		n := 0
		for _, val := range t {
			n += countScalars(val)
		}
		return n
	default:
		return 1
	}
}
