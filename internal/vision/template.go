package vision

import (
	"strings"
	"text/template"

	"github.com/loabridge/bridge/embedded"
)

// entryTemplate parses once; Vision Entry content is substituted as plain
// template data (never re-parsed as a template itself), so finding text
// can never introduce template directives or escape into a shell.
var entryTemplate = template.Must(template.New("vision_entry").Parse(embedded.VisionEntryTemplate))

// entryTemplateData is the exact, flattened field set the template sees —
// kept separate from Entry so formatting (dates, joined tags) lives here
// rather than leaking into the storage type.
type entryTemplateData struct {
	ID         string
	Title      string
	Source     string
	Date       string
	PRNumber   int
	Status     Status
	TagsJoined string
	Insight    string
	Potential  string
	FindingID  string
}

func renderEntry(e Entry, findingID string) (string, error) {
	data := entryTemplateData{
		ID:         e.ID,
		Title:      e.Title,
		Source:     e.Source,
		Date:       e.Date.UTC().Format("2006-01-02T15:04:05Z"),
		PRNumber:   e.PRNumber,
		Status:     e.Status,
		TagsJoined: e.TagsJoined(),
		Insight:    e.Insight,
		Potential:  e.Potential,
		FindingID:  findingID,
	}
	var buf strings.Builder
	if err := entryTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
