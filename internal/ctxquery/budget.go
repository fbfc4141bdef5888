package ctxquery

import (
	"sort"
	"strings"
)

// estimateTokens approximates token count as words * 1.3, the same
// estimator context.BudgetTracker uses for checkpoint accounting, just
// expressed per-string rather than per-session.
func estimateTokens(s string) float64 {
	words := len(strings.Fields(s))
	return float64(words) * 1.3
}

// fitBudget sorts results by descending score and accumulates them
// while the running token estimate stays under budget. A single result
// that alone exceeds the budget is dropped, not truncated mid-content.
func fitBudget(results []Result, budget int) []Result {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	var out []Result
	var used float64
	limit := float64(budget)
	for _, r := range results {
		cost := estimateTokens(r.Content)
		if used+cost > limit {
			break
		}
		used += cost
		out = append(out, r)
	}
	return out
}
