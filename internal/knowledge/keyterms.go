package knowledge

import (
	_ "embed"
	"strings"
	"unicode"
)

// maxKeyTerms bounds how many terms a single query contributes to the
// lexical search.
const maxKeyTerms = 5

// stopwordsRaw is the bilingual (English/Tagalog) stop-word list, kept as a
// data asset so it can be extended without code changes. One token per line,
// '#' starts a comment.
//
//go:embed stopwords.txt
var stopwordsRaw string

var stopwords = loadStopwords(stopwordsRaw)

func loadStopwords(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		word := strings.TrimSpace(line)
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		set[strings.ToLower(word)] = struct{}{}
	}
	return set
}

// ExtractKeyTerms reduces a query to at most five salient tokens for lexical
// search: lower-cased, punctuation stripped, stop words and short tokens
// dropped, deduplicated, original order preserved. Pure; no I/O.
func ExtractKeyTerms(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, query)

	seen := make(map[string]struct{})
	var terms []string
	for _, token := range strings.Fields(cleaned) {
		if len(token) <= 2 {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		terms = append(terms, token)
		if len(terms) == maxKeyTerms {
			break
		}
	}
	return terms
}
