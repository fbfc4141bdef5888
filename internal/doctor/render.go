package doctor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	issueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func glyph(status Status) string {
	switch status {
	case StatusOK:
		return "✓"
	case StatusWarning:
		return "!"
	case StatusIssue:
		return "✗"
	default:
		return "·"
	}
}

func styleFor(status Status) lipgloss.Style {
	switch status {
	case StatusOK:
		return okStyle
	case StatusWarning:
		return warningStyle
	case StatusIssue:
		return issueStyle
	default:
		return infoStyle
	}
}

// colorEnabled mirrors the teacher's plain-text fallback: no color
// when NO_COLOR is set (https://no-color.org) or stdout isn't a
// terminal, since ANSI codes in a redirected/piped doctor run would
// just be noise in a log file.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

// RenderTable writes the human-readable doctor table: one line per
// check, a blank line, then the rolled-up status summary.
func RenderTable(w io.Writer, report Report) {
	color := colorEnabled(w)

	maxName := 0
	for _, category := range categoryOrder {
		for name := range report.Checks[category] {
			label := category + "/" + name
			if len(label) > maxName {
				maxName = len(label)
			}
		}
	}

	fmt.Fprintln(w, "bridge doctor")
	fmt.Fprintln(w, strings.Repeat("-", len("bridge doctor")))
	for _, category := range categoryOrder {
		checks := report.Checks[category]
		for _, name := range sortedKeys(checks) {
			c := checks[name]
			label := category + "/" + name
			padding := strings.Repeat(" ", maxName-len(label))
			g := glyph(c.Status)
			if color {
				g = styleFor(c.Status).Render(g)
			}
			fmt.Fprintf(w, "%s %s%s  %s\n", g, label, padding, c.Detail)
		}
	}
	fmt.Fprintln(w)
	summary := fmt.Sprintf("%s (%d issue(s), %d warning(s))", report.Status, report.Issues, report.Warnings)
	if color {
		summary = styleFor(report.Status).Render(summary)
	}
	fmt.Fprintln(w, summary)
}

// RenderJSON writes report as indented JSON, matching the shape
// {status, exit_code, version, timestamp, checks, recommendations,
// issues, warnings}.
func RenderJSON(w io.Writer, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal doctor report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
