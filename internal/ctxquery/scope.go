package ctxquery

import (
	"os"
	"path/filepath"

	"github.com/loabridge/bridge/internal/pathlock"
	"github.com/loabridge/bridge/pkg/vault"
)

// scopeRoots maps each concrete scope to the directory it searches.
// "reality" is the project's own source tree (what the docs describe),
// as distinct from "grimoires" (design docs), "skills", and "notes"
// (an Obsidian vault when one is detected, else a project-local notes/
// directory).
func scopeRoots(paths *pathlock.Paths) map[Scope]string {
	notesDir := vault.DetectVault(paths.ProjectRoot)
	if notesDir == "" {
		notesDir = filepath.Join(paths.ProjectRoot, "notes")
	}
	return map[Scope]string{
		ScopeGrimoires: paths.GrimoireDir,
		ScopeSkills:    filepath.Join(paths.ProjectRoot, "skills"),
		ScopeNotes:     notesDir,
		ScopeReality:   paths.ProjectRoot,
	}
}

// rootsForScope resolves a (validated) scope to the directories a grep
// pass should walk; ScopeAll walks every known scope root.
func rootsForScope(paths *pathlock.Paths, s Scope) []string {
	roots := scopeRoots(paths)
	if s == ScopeAll {
		out := make([]string, 0, len(roots))
		for _, r := range roots {
			out = append(out, r)
		}
		return out
	}
	if r, ok := roots[s]; ok {
		return []string{r}
	}
	return nil
}

// excludedDirs are never walked even under ScopeReality/ScopeAll: bridge
// internal state, VCS metadata.
var excludedDirs = map[string]bool{
	pathlock.RootMarker: true,
	".git":               true,
	"node_modules":       true,
}

func isExcludedDir(name string) bool {
	return excludedDirs[name]
}

// canonicalize resolves path to its real, absolute form (following
// symlinks) and rejects anything that escapes paths.ProjectRoot, per
// the per-file path-safety invariant canonicalize enforces.
func canonicalize(paths *pathlock.Paths, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = abs
		} else {
			return "", err
		}
	}
	root, err := filepath.EvalSymlinks(paths.ProjectRoot)
	if err != nil {
		root = filepath.Clean(paths.ProjectRoot)
	}
	rootWithSep := root + string(filepath.Separator)
	if resolved != root && (len(resolved) < len(rootWithSep) || resolved[:len(rootWithSep)] != rootWithSep) {
		return "", ErrPathOutsideRoot
	}
	return resolved, nil
}
