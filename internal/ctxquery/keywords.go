package ctxquery

import (
	"strings"
	"unicode"
)

// stopWords are dropped before keyword extraction, on top of the
// 4-character minimum.
var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"what": true, "when": true, "where": true, "which": true, "about": true,
	"should": true, "would": true, "could": true, "does": true, "into": true,
	"then": true, "than": true, "they": true, "them": true, "their": true,
	"there": true, "here": true, "your": true, "will": true, "been": true,
}

// extractKeywords tokenizes query the same way search.tokenize does
// (letters/digits/hyphen/underscore runs, lowercased), then keeps at
// most 5 distinct terms of at least 4 characters that are not
// stop-words, in first-seen order.
func extractKeywords(query string) []string {
	lower := strings.ToLower(query)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})

	var keywords []string
	seen := make(map[string]bool)
	for _, w := range words {
		if len(w) < 4 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}
