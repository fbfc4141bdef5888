package vision

import (
	"html"
	"regexp"
	"strings"
)

// zeroWidthPattern matches zero-width and BOM characters sometimes used to
// smuggle hidden instructions past a naive text scan.
var zeroWidthPattern = regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{FEFF}]`)

// instructionPatterns catches indirect-instruction injection attempts
// commonly embedded in untrusted text reused as LLM context.
var instructionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous`),
	regexp.MustCompile(`(?i)disregard\s+(the\s+)?above`),
	regexp.MustCompile(`(?i)you\s+are\s+now\b`),
	regexp.MustCompile(`(?i)^\s*system\s*:`),
	regexp.MustCompile(`(?i)^\s*assistant\s*:`),
	regexp.MustCompile(`(?i)new\s+instructions?\s*:`),
}

var fencePattern = regexp.MustCompile("```")

var whitespaceRunPattern = regexp.MustCompile(`[ \t]+`)

// Sanitize prepares vision text for reuse as LLM context. It (a) must
// only ever be called on text extracted from the
// Insight region, (b) decodes HTML entities and strips zero-width
// characters, (c) scrubs code fences, (d) drops lines matching
// indirect-instruction patterns, (e) normalises whitespace, and (f)
// truncates at a word boundary to budget characters.
func Sanitize(insight string, budget int) string {
	text := html.UnescapeString(insight)
	text = zeroWidthPattern.ReplaceAllString(text, "")
	text = fencePattern.ReplaceAllString(text, "")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if isInstructionLike(line) {
			continue
		}
		kept = append(kept, line)
	}
	text = strings.Join(kept, "\n")

	text = whitespaceRunPattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return truncateAtWordBoundary(text, budget)
}

func isInstructionLike(line string) bool {
	for _, p := range instructionPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// truncateAtWordBoundary truncates s to at most limit characters, cutting
// at the last space before the limit rather than mid-word.
func truncateAtWordBoundary(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	lastSpace := strings.LastIndex(s[:limit], " ")
	if lastSpace == -1 {
		return s[:limit]
	}
	return s[:lastSpace]
}
