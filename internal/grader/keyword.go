package grader

import (
	"strings"
	"unicode"
)

// neutralScore is given to a criterion that lists no keywords.
const neutralScore = 0.5

// KeywordScores is the deterministic fallback scorer. For each criterion it
// returns the fraction of keywords that appear in both the response and the
// reference.
func KeywordScores(response string, rubric Rubric, reference string) map[string]float64 {
	resp := newCorpus(response)
	ref := newCorpus(reference)

	scores := make(map[string]float64, len(rubric.Criteria))
	for name, keywords := range rubric.Criteria {
		if len(keywords) == 0 {
			scores[name] = neutralScore
			continue
		}
		hits := 0
		for _, kw := range keywords {
			if resp.contains(kw) && ref.contains(kw) {
				hits++
			}
		}
		scores[name] = float64(hits) / float64(len(keywords))
	}
	return scores
}

// corpus is lowercased text indexed for keyword lookup.
type corpus struct {
	text   string
	tokens map[string]bool
}

func newCorpus(s string) corpus {
	text := strings.ToLower(s)
	c := corpus{text: text, tokens: make(map[string]bool)}
	for _, tok := range tokenize(text) {
		c.tokens[tok] = true
	}
	return c
}

// contains matches single words against tokens and phrases as substrings.
func (c corpus) contains(keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}
	words := tokenize(kw)
	if len(words) == 1 && words[0] == kw {
		return c.tokens[kw]
	}
	return strings.Contains(c.text, kw)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
