package vision

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	titleLinePattern = regexp.MustCompile(`^# Vision:\s*(.*)$`)
	fieldLinePattern = regexp.MustCompile(`^\*\*(\w+)\*\*:\s*(.*)$`)
)

func entryFilePath(visionDir, id string) string {
	return filepath.Join(visionDir, id+".md")
}

// readEntryFile parses an entry file back into an Entry. Refs is not
// stored in the entry file (the index is its sole source of truth for
// reference counts) and is left at zero; callers that need Refs must
// merge it in from the index.
func readEntryFile(visionDir, id string) (Entry, error) {
	path := entryFilePath(visionDir, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return parseEntryFile(id, string(data))
}

func parseEntryFile(id, content string) (Entry, error) {
	lines := strings.Split(content, "\n")
	e := Entry{ID: id}

	section := ""
	var insight, potential strings.Builder

	for i, line := range lines {
		if i == 0 {
			if m := titleLinePattern.FindStringSubmatch(line); m != nil {
				e.Title = strings.TrimSpace(m[1])
			}
			continue
		}
		if m := fieldLinePattern.FindStringSubmatch(line); m != nil && section == "" {
			switch m[1] {
			case "ID":
				// Already known from the filename; ignore.
			case "Source":
				e.Source = m[2]
			case "PR":
				if n, err := strconv.Atoi(m[2]); err == nil {
					e.PRNumber = n
				}
			case "Date":
				if t, err := time.Parse("2006-01-02T15:04:05Z", m[2]); err == nil {
					e.Date = t
				}
			case "Status":
				e.Status = Status(m[2])
			case "Tags":
				if m[2] != "" {
					e.Tags = strings.Split(m[2], ",")
				}
			}
			continue
		}
		switch strings.TrimSpace(line) {
		case "## Insight":
			section = "insight"
			continue
		case "## Potential":
			section = "potential"
			continue
		case "## Connection Points":
			section = "connections"
			continue
		}
		switch section {
		case "insight":
			insight.WriteString(line)
			insight.WriteString("\n")
		case "potential":
			potential.WriteString(line)
			potential.WriteString("\n")
		}
	}

	e.Insight = strings.TrimSpace(insight.String())
	e.Potential = strings.TrimSpace(potential.String())
	return e, nil
}

// writeStatusLine rewrites only the "**Status**:" line of an entry file,
// leaving everything else — including Insight/Potential text — untouched.
func writeStatusLine(visionDir, id string, status Status) error {
	path := entryFilePath(visionDir, id)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	found := false
	for i, line := range lines {
		if strings.HasPrefix(line, "**Status**:") {
			lines[i] = fmt.Sprintf("**Status**: %s", status)
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	return atomicWrite(path, strings.Join(lines, "\n"))
}

// atomicWrite writes content to a sibling temp file and renames it into
// place, the same pattern used throughout the bridge's storage layer.
func atomicWrite(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".vision-tmp-")
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
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	success = true
	return nil
}
