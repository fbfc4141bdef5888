package ctxquery

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/loabridge/bridge/internal/pathlock"
)

// searchExtensions bounds the grep tier to text artifacts; the facade is
// a documentation/context reader, not a general-purpose code search.
var searchExtensions = map[string]bool{
	".md": true, ".txt": true, ".yaml": true, ".yml": true,
	".go": true, ".json": true,
}

// snippetRadius is how many characters of context surround a match on
// either side when building a snippet.
const snippetRadius = 120

// grepQuery implements tier 3: always available, OR-pattern keyword
// matching over every file under roots, with per-file path-safety
// enforcement and one Result per matching file (its best-scoring line).
func grepQuery(paths *pathlock.Paths, roots []string, keywords []string) ([]Result, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	var results []Result
	for _, root := range roots {
		if root == "" {
			continue
		}
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // unreadable entries are skipped, not fatal
			}
			if info.IsDir() {
				if isExcludedDir(info.Name()) && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if !searchExtensions[filepath.Ext(path)] {
				return nil
			}
			if _, serr := canonicalize(paths, path); serr != nil {
				return nil // outside project root: skip, never fatal the walk
			}

			r, ok := grepFile(paths, path, keywords)
			if ok {
				results = append(results, r)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func grepFile(paths *pathlock.Paths, path string, keywords []string) (Result, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, false
	}
	defer func() {
		_ = f.Close()
	}()

	rel, err := filepath.Rel(paths.ProjectRoot, path)
	if err != nil {
		rel = path
	}

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var bestLine string
	bestScore := 0
	for scanner.Scan() {
		line := scanner.Text()
		lower := strings.ToLower(line)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestLine = line
		}
	}
	if bestScore == 0 {
		return Result{}, false
	}

	return Result{
		Source:  rel,
		Score:   float64(bestScore) / float64(len(keywords)),
		Content: snippet(bestLine, snippetRadius),
		Tier:    TierGrep,
	}, true
}

// snippet trims a line to at most 2*radius characters, centred as best
// effort (matches are not located within the line twice, so this simply
// caps the string length rather than re-searching for the match offset).
func snippet(line string, radius int) string {
	if len(line) <= 2*radius {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(line[:2*radius])
}
