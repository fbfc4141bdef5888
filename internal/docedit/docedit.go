// Package docedit provides section-aware, idempotent, validated mutation
// of markdown documents, writing every change through a sibling temp file
// and an atomic rename — never in place.
package docedit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/loabridge/bridge/internal/pathlock"
)

// MaxDocumentSize is the validation ceiling for a single document write.
const MaxDocumentSize = 10 * 1024 * 1024

var headerPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// Outcome reports what an Append/Update/InsertAfter call actually did,
// distinguishing a successful no-op (duplicate content) from a write.
type Outcome struct {
	Written  bool
	Warning  string
	Duplicate bool
}

// Editor mutates markdown documents rooted at Paths.ProjectRoot.
type Editor struct {
	Paths *pathlock.Paths
}

// New returns an Editor scoped to paths.
func New(paths *pathlock.Paths) *Editor {
	return &Editor{Paths: paths}
}

// AppendSection implements append_section: if sectionTitle
// is empty, appends to the end of the document; otherwise locates the
// section and inserts content immediately before the next header of equal
// or higher level (or creates the section if absent).
func (e *Editor) AppendSection(relPath, sectionTitle, content string) (Outcome, error) {
	path, err := e.Paths.Under(relPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}

	original, err := readOrEmpty(path)
	if err != nil {
		return Outcome{}, err
	}

	if isDuplicate(original, content) {
		return Outcome{Duplicate: true}, nil
	}

	lines := splitLines(original)
	var newLines []string
	if sectionTitle == "" {
		newLines = appendToEnd(lines, content)
	} else {
		idx, level, found := findSection(lines, sectionTitle)
		if !found {
			newLines = appendNewSection(lines, sectionTitle, content)
		} else {
			end := sectionEnd(lines, idx, level)
			newLines = insertBefore(lines, end, content)
		}
	}

	candidate := joinLines(newLines)
	if err := ValidateContent(path, candidate, e.Paths.ProjectRoot); err != nil {
		return Outcome{}, err
	}
	if err := atomicWrite(path, candidate); err != nil {
		return Outcome{}, err
	}
	return Outcome{Written: true}, nil
}

// UpdateSection implements update_section: replaces the entire body of
// sectionTitle with content. Fails with ErrSectionNotFound if absent.
func (e *Editor) UpdateSection(relPath, sectionTitle, content string) (Outcome, error) {
	path, err := e.Paths.Under(relPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}

	original, err := readOrEmpty(path)
	if err != nil {
		return Outcome{}, err
	}

	lines := splitLines(original)
	idx, level, found := findSection(lines, sectionTitle)
	if !found {
		return Outcome{}, ErrSectionNotFound
	}
	end := sectionEnd(lines, idx, level)

	newLines := make([]string, 0, len(lines))
	newLines = append(newLines, lines[:idx+1]...)
	newLines = append(newLines, splitLines(strings.TrimRight(content, "\n"))...)
	newLines = append(newLines, lines[end:]...)

	candidate := joinLines(newLines)
	if err := ValidateContent(path, candidate, e.Paths.ProjectRoot); err != nil {
		return Outcome{}, err
	}
	if err := atomicWrite(path, candidate); err != nil {
		return Outcome{}, err
	}
	return Outcome{Written: true}, nil
}

// InsertAfter implements insert_after: locates the first literal
// occurrence of markerLine and inserts content on the following line. If
// the marker is not found, appends to the end and returns a warning
// rather than an error.
func (e *Editor) InsertAfter(relPath, markerLine, content string) (Outcome, error) {
	path, err := e.Paths.Under(relPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}

	original, err := readOrEmpty(path)
	if err != nil {
		return Outcome{}, err
	}

	if isDuplicate(original, content) {
		return Outcome{Duplicate: true}, nil
	}

	lines := splitLines(original)
	out := Outcome{Written: true}
	var newLines []string
	found := false
	for _, l := range lines {
		newLines = append(newLines, l)
		if !found && l == markerLine {
			newLines = append(newLines, splitLines(strings.TrimRight(content, "\n"))...)
			found = true
		}
	}
	if !found {
		newLines = appendToEnd(lines, content)
		out.Warning = fmt.Sprintf("marker line not found, appended to end: %q", markerLine)
	}

	candidate := joinLines(newLines)
	if err := ValidateContent(path, candidate, e.Paths.ProjectRoot); err != nil {
		return Outcome{}, err
	}
	if err := atomicWrite(path, candidate); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// Validate reads the document at relPath and runs ValidateContent.
func (e *Editor) Validate(relPath string) error {
	path, err := e.Paths.Under(relPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return ValidateContent(path, string(data), e.Paths.ProjectRoot)
}

// ValidateContent performs the size/readability/path-safety checks and,
// for markdown files, the structural checks applied before a write lands.
func ValidateContent(path, content, projectRoot string) error {
	if len(content) > MaxDocumentSize {
		return ErrTooLarge
	}
	if strings.Contains(content, "\x00") {
		return ErrPathTraversal
	}
	if strings.Contains(path, "..") {
		return ErrPathTraversal
	}
	absRoot, err := filepath.Abs(projectRoot)
	if err == nil {
		absPath, err := filepath.Abs(path)
		if err == nil {
			rootWithSep := filepath.Clean(absRoot) + string(filepath.Separator)
			if !strings.HasPrefix(absPath, rootWithSep) && absPath != filepath.Clean(absRoot) {
				return ErrPathTraversal
			}
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".md") {
		return validateMarkdownStructure(content)
	}
	return nil
}

func validateMarkdownStructure(content string) error {
	if strings.Count(content, "```")%2 != 0 {
		return ErrUnbalancedFences
	}
	lines := splitLines(content)
	if len(lines) > 0 && lines[0] == "---" {
		closed := false
		for _, l := range lines[1:] {
			if l == "---" {
				closed = true
				break
			}
		}
		if !closed {
			return ErrUnclosedFrontmatter
		}
	}
	seen := make(map[string]struct{})
	for _, l := range lines {
		if m := headerPattern.FindStringSubmatch(l); m != nil {
			title := strings.TrimSpace(m[2])
			key := m[1] + "|" + title
			if _, ok := seen[key]; ok {
				return ErrDuplicateHeader
			}
			seen[key] = struct{}{}
		}
	}
	return nil
}

func readOrEmpty(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// isDuplicate implements the idempotency invariant: an append is a no-op
// if the first non-blank line of content already appears verbatim
// somewhere in the document.
func isDuplicate(document, content string) bool {
	firstLine := firstNonBlankLine(content)
	if firstLine == "" {
		return false
	}
	existing := make(map[string]struct{})
	for _, l := range splitLines(document) {
		existing[l] = struct{}{}
	}
	_, ok := existing[firstLine]
	return ok
}

func firstNonBlankLine(s string) string {
	for _, l := range splitLines(s) {
		if strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}

func appendToEnd(lines []string, content string) []string {
	out := append([]string{}, lines...)
	if len(out) > 0 && out[len(out)-1] != "" {
		out = append(out, "")
	}
	out = append(out, splitLines(strings.TrimRight(content, "\n"))...)
	return out
}

func appendNewSection(lines []string, sectionTitle, content string) []string {
	out := append([]string{}, lines...)
	if len(out) > 0 && out[len(out)-1] != "" {
		out = append(out, "")
	}
	out = append(out, "## "+sectionTitle, "")
	out = append(out, splitLines(strings.TrimRight(content, "\n"))...)
	return out
}

// findSection returns the line index of the header matching sectionTitle
// (any level), its header level, and whether it was found.
func findSection(lines []string, sectionTitle string) (idx, level int, found bool) {
	for i, l := range lines {
		if m := headerPattern.FindStringSubmatch(l); m != nil {
			if strings.TrimSpace(m[2]) == sectionTitle {
				return i, len(m[1]), true
			}
		}
	}
	return 0, 0, false
}

// sectionEnd returns the line index of the next header at level <= the
// section's own level, or len(lines) if none follows.
func sectionEnd(lines []string, startIdx, level int) int {
	for i := startIdx + 1; i < len(lines); i++ {
		if m := headerPattern.FindStringSubmatch(lines[i]); m != nil {
			if len(m[1]) <= level {
				return i
			}
		}
	}
	return len(lines)
}

func insertBefore(lines []string, idx int, content string) []string {
	out := make([]string, 0, len(lines)+4)
	out = append(out, lines[:idx]...)
	if idx > 0 && lines[idx-1] != "" {
		out = append(out, "")
	}
	out = append(out, splitLines(strings.TrimRight(content, "\n"))...)
	if idx < len(lines) {
		out = append(out, "")
	}
	out = append(out, lines[idx:]...)
	return out
}

// atomicWrite writes content to a sibling temp file and renames it into
// place, per the teacher's storage.FileStorage.atomicWrite pattern.
func atomicWrite(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".docedit-tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}
	success = true
	return nil
}
