package bridge

import (
	"strings"

	"github.com/loabridge/bridge/internal/review"
)

// diffStatFromText summarizes a unified diff into the deterministic
// inputs review.ClassifyDiff needs, without requiring a second git
// invocation: external.VCSClient.Diff already returns the full text.
func diffStatFromText(diff string) review.DiffStat {
	var stat review.DiffStat
	seen := make(map[string]bool)
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			fields := strings.Fields(line)
			if len(fields) >= 3 {
				path := strings.TrimPrefix(fields[2], "a/")
				if !seen[path] {
					seen[path] = true
					stat.Paths = append(stat.Paths, path)
				}
			}
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			stat.LinesChanged++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			stat.LinesChanged++
		}
	}
	stat.FilesChanged = len(stat.Paths)
	return stat
}
