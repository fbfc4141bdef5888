package vision

import (
	"regexp"
	"strings"
	"time"
)

var (
	idPattern  = regexp.MustCompile(`^vision-\d{3}$`)
	tagPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// Status is a Vision Entry's lifecycle stage. Transitions form a DAG:
// Captured -> Exploring -> Proposed -> {Implemented, Deferred}. Every
// other status is terminal.
type Status string

const (
	StatusCaptured    Status = "Captured"
	StatusExploring   Status = "Exploring"
	StatusProposed    Status = "Proposed"
	StatusImplemented Status = "Implemented"
	StatusDeferred    Status = "Deferred"
)

// allowedTransitions maps each non-terminal status to the set of statuses
// it may transition into.
var allowedTransitions = map[Status][]Status{
	StatusCaptured:  {StatusExploring},
	StatusExploring: {StatusProposed},
	StatusProposed:  {StatusImplemented, StatusDeferred},
}

func isTransitionAllowed(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Entry is a single vision finding: stored as its own markdown file under
// the visions directory and mirrored as one row in the master index.
type Entry struct {
	ID        string
	Title     string
	Source    string
	Date      time.Time
	PRNumber  int
	Status    Status
	Tags      []string
	Refs      int
	Insight   string
	Potential string
}

// TagsJoined renders Tags as a comma-separated list for the entry file and
// index row.
func (e Entry) TagsJoined() string {
	return strings.Join(e.Tags, ",")
}

func validateVisionID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidVisionID
	}
	return nil
}

func validateTag(tag string) error {
	if !tagPattern.MatchString(tag) {
		return ErrInvalidTag
	}
	return nil
}

// knownTagVocabulary is the fixed set of work-context tag names a
// vision entry or a relevance query may use.
var knownTagVocabulary = []string{
	"architecture", "security", "constraints", "multi-model",
	"testing", "philosophy", "orchestration", "configuration", "eventing",
}

// TagsForPaths maps a set of file paths to the fixed tag vocabulary by
// keyword heuristics, for use as the "work context" in RelevanceQuery.
func TagsForPaths(paths []string) []string {
	seen := make(map[string]struct{})
	var tags []string
	add := func(tag string) {
		if _, ok := seen[tag]; !ok {
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	for _, p := range paths {
		lower := strings.ToLower(p)
		switch {
		case strings.Contains(lower, "secret"), strings.Contains(lower, "guard"), strings.Contains(lower, "auth"), strings.Contains(lower, "credential"):
			add("security")
		case strings.Contains(lower, "_test."), strings.Contains(lower, "/test/"), strings.Contains(lower, "tests/"):
			add("testing")
		}
		switch {
		case strings.Contains(lower, "config"):
			add("configuration")
		case strings.Contains(lower, "event"):
			add("eventing")
		case strings.Contains(lower, "review"), strings.Contains(lower, "model"):
			add("multi-model")
		case strings.Contains(lower, "bridge"), strings.Contains(lower, "orchestr"):
			add("orchestration")
		case strings.Contains(lower, "design"), strings.Contains(lower, "architecture"):
			add("architecture")
		case strings.Contains(lower, "constraint"):
			add("constraints")
		case strings.Contains(lower, "philosophy"):
			add("philosophy")
		}
	}
	return tags
}
