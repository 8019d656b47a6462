package rank

import "strings"

const punctuation = ".,!?;:'\"-()[]{}"

// stopWords lists function words that carry no lexical signal. Terms on this
// list never count toward overlap in either the query or the candidate text.
var stopWords = buildStopSet(
	"the", "a", "an", "be", "is", "are", "was", "were", "been",
	"to", "of", "and", "in", "that", "have", "has", "had", "it",
	"for", "not", "on", "with", "as", "you", "do", "does", "did",
	"at", "this", "these", "those", "but", "by", "from", "or",
	"about", "into", "through", "during", "before", "after",
	"above", "below", "will", "would", "could", "should", "may",
	"might", "must", "can", "up",
)

func buildStopSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// filterTerms lowercases text, strips surrounding punctuation from each
// word, and drops stop words. The survivors are the lexical terms.
func filterTerms(text string) []string {
	words := strings.Fields(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		term := strings.ToLower(strings.Trim(word, punctuation))
		if term == "" || stopWords[term] {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// QueryTerms returns the unique filtered terms of a query in first-seen
// order. These are the terms lexical candidate retrieval matches against.
func QueryTerms(query string) []string {
	filtered := filterTerms(query)
	seen := make(map[string]bool, len(filtered))
	terms := make([]string, 0, len(filtered))
	for _, term := range filtered {
		if seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms
}

// LexicalScore is the fraction of filtered query terms that appear in text.
// A query with no terms left after filtering scores 0. The result is always
// in [0,1].
func LexicalScore(query, text string) float64 {
	queryTerms := QueryTerms(query)
	if len(queryTerms) == 0 {
		return 0
	}

	inText := make(map[string]bool)
	for _, term := range filterTerms(text) {
		inText[term] = true
	}

	matched := 0
	for _, term := range queryTerms {
		if inText[term] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}
