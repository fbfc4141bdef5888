package vision

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// IndexFile is the name of the master index under the visions directory.
const IndexFile = "index.md"

type indexRow struct {
	ID     string
	Title  string
	Source string
	Status Status
	Tags   string
	Refs   int
}

// parseIndex reads the pipe-delimited table from the index file. A
// missing file parses as zero rows with the Refs column not yet added,
// matching a freshly initialised registry. hasRefs reports whether the
// Refs column has been lazily added.
func parseIndex(path string) (rows []indexRow, hasRefs bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "| vision-") {
			continue
		}
		cells := splitRow(trimmed)
		if len(cells) < 5 {
			continue
		}
		row := indexRow{
			ID:     cells[0],
			Title:  cells[1],
			Source: cells[2],
			Status: Status(cells[3]),
			Tags:   cells[4],
		}
		if len(cells) >= 6 {
			hasRefs = true
			row.Refs, _ = strconv.Atoi(cells[5])
		}
		rows = append(rows, row)
	}
	return rows, hasRefs, nil
}

// splitRow splits a pipe-delimited markdown table row into trimmed cells,
// discarding the empty leading/trailing fields produced by the outer
// pipes.
func splitRow(line string) []string {
	parts := strings.Split(line, "|")
	var cells []string
	for i, p := range parts {
		if i == 0 || i == len(parts)-1 {
			if strings.TrimSpace(p) == "" {
				continue
			}
		}
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// renderIndex rebuilds the full index file, recounting the Statistics
// block from the row Status values rather than trusting any cached
// counter.
func renderIndex(rows []indexRow, hasRefs bool) string {
	var b strings.Builder
	b.WriteString("# Vision Index\n\n")

	if hasRefs {
		b.WriteString("| ID | Title | Source | Status | Tags | Refs |\n")
		b.WriteString("|----|-------|--------|--------|------|------|\n")
	} else {
		b.WriteString("| ID | Title | Source | Status | Tags |\n")
		b.WriteString("|----|-------|--------|--------|------|\n")
	}
	for _, r := range rows {
		if hasRefs {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %d |\n", r.ID, r.Title, r.Source, r.Status, r.Tags, r.Refs)
		} else {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", r.ID, r.Title, r.Source, r.Status, r.Tags)
		}
	}

	counts := map[Status]int{}
	for _, r := range rows {
		counts[r.Status]++
	}
	b.WriteString("\n## Statistics\n\n")
	for _, s := range []Status{StatusCaptured, StatusExploring, StatusProposed, StatusImplemented, StatusDeferred} {
		fmt.Fprintf(&b, "- %s: %d\n", s, counts[s])
	}
	fmt.Fprintf(&b, "- Total: %d\n", len(rows))
	return b.String()
}

func findRow(rows []indexRow, id string) (int, bool) {
	for i, r := range rows {
		if r.ID == id {
			return i, true
		}
	}
	return 0, false
}
