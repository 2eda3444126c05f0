// Package matching scores free-text task descriptions against a skill
// catalog using lexical heuristics only: token overlap, keyword presence,
// and tag membership. Every function is a pure computation over its
// arguments; nothing here touches storage or keeps state between calls.
package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// stopWords are dropped during tokenization: common English function words
// plus filler verbs that appear in nearly every task description and carry
// no matching signal.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {}, "with": {}, "from": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "are": {}, "was": {},
	"were": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"may": {}, "might": {}, "can": {}, "you": {}, "she": {}, "they": {},
	"what": {}, "which": {}, "who": {}, "when": {}, "where": {}, "why": {},
	"how": {}, "not": {}, "all": {}, "its": {}, "our": {}, "your": {},
	"need": {}, "want": {}, "like": {}, "get": {}, "make": {}, "using": {}, "use": {},
}

const (
	minTokenRunes   = 3 // tokens shorter than this are dropped
	minKeywordRunes = 4 // keywords are the stricter subset of tokens
)

// Tokenize lowercases text, strips punctuation, splits compound terms on
// hyphens, and returns the remaining tokens with stop-words and short
// tokens removed. Order and duplicates are preserved.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	normalized := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			return unicode.ToLower(r)
		default:
			// Punctuation, hyphens, and whitespace all become separators,
			// so "git-workflow" splits into "git" and "workflow".
			return ' '
		}
	}, text)

	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenRunes {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// ExtractKeywords returns the tokens long enough to act as distinguishing
// keywords. Stop-words are already gone since this builds on Tokenize.
func ExtractKeywords(text string) []string {
	tokens := Tokenize(text)
	keywords := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if utf8.RuneCountInString(t) >= minKeywordRunes {
			keywords = append(keywords, t)
		}
	}
	return keywords
}

// tokenSet builds a membership set from a token list.
func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// jaccard computes |A ∩ B| / |A ∪ B| over two token sets.
// Empty-union comparisons return 0 rather than dividing by zero.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var intersection int
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// intersect returns the sorted-by-first-set-order intersection of a token
// list with a set, deduplicated.
func intersect(tokens []string, set map[string]struct{}) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range tokens {
		if _, ok := set[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// clamp01 bounds a score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
