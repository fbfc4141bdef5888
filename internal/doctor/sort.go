package doctor

import "sort"

// sortedKeys returns m's keys in lexical order, so table rows and
// recommendations are stable across runs despite Go's randomized map
// iteration.
func sortedKeys(m map[string]Check) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
