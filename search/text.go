package search

import (
	"strings"
	"unicode"
)

// VerbatimBoost is added to the score of a record containing every
// significant query word.
const VerbatimBoost = 0.3

// Words ignored when matching query terms verbatim.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "how": true, "what": true, "i": true, "my": true,
}

// terms splits text into lowercased words with surrounding punctuation and
// stop words removed. Markdown markers such as "#" and "`" count as punctuation.
func terms(text string) []string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
		if cleaned != "" && !stopWords[cleaned] {
			out = append(out, cleaned)
		}
	}
	return out
}

// containsAllTerms reports whether every query term appears in document.
// A query made only of stop words matches nothing.
func containsAllTerms(document string, queryTerms []string) bool {
	if len(queryTerms) == 0 {
		return false
	}

	docTerms := make(map[string]bool)
	for _, term := range terms(document) {
		docTerms[term] = true
	}
	for _, term := range queryTerms {
		if !docTerms[term] {
			return false
		}
	}
	return true
}
