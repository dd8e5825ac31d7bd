// Package search implements the tiered fuzzy matcher and the history
// search engine built on it.
package search

import (
	"strings"
	"unicode"
)

// MatchType is the strategy that produced a match. Declaration order is
// precedence order: a higher-precedence strategy always outranks a
// lower-precedence one regardless of score.
type MatchType int

const (
	MatchExact MatchType = iota
	MatchPrefix
	MatchWordBoundary
	MatchContains
	MatchFuzzy
	// MatchAll is the default type for empty-query results; no scoring
	// is performed for it.
	MatchAll
)

func (t MatchType) String() string {
	switch t {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchWordBoundary:
		return "word"
	case MatchContains:
		return "contains"
	case MatchFuzzy:
		return "fuzzy"
	case MatchAll:
		return "all"
	}
	return "unknown"
}

// Span is a matched region of the candidate, in rune offsets.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"` // exclusive
}

// Match is a successful match verdict.
type Match struct {
	Type  MatchType `json:"type"`
	Score float64   `json:"score"`
	Spans []Span    `json:"spans,omitempty"`
}

// Scoring weights. Scores never fall below scoreFloor: a reported match
// always carries positive weight.
const (
	scoreExact        = 1000.0
	scorePrefixBase   = 800.0
	scoreWordBase     = 600.0
	scoreContainsBase = 400.0
	scoreFuzzyBase    = 200.0

	lengthPenalty   = 0.5 // per candidate rune (prefix/word/contains)
	positionPenalty = 0.5 // per rune before a substring match

	fuzzyConsecutiveBonus = 8.0 // per character continuing a run
	fuzzyCamelBonus       = 6.0 // match landing on a case transition
	fuzzyLengthPenalty    = 0.2 // per candidate rune
	fuzzySpanPenalty      = 0.5 // per gap rune between first and last match

	scoreFloor = 1.0
)

// MatchQuery attempts the strategies in precedence order and returns the
// first that succeeds. Matching is case-insensitive. Empty or
// all-whitespace queries and empty candidates never match. The fuzzy
// ordered-subsequence strategy only runs when allowFuzzy is set.
func MatchQuery(query, candidate string, allowFuzzy bool) (Match, bool) {
	if strings.TrimSpace(query) == "" || candidate == "" {
		return Match{}, false
	}

	q := foldRunes(query)
	c := foldRunes(candidate)

	if m, ok := matchExact(q, c); ok {
		return m, true
	}
	if m, ok := matchPrefix(q, c); ok {
		return m, true
	}
	if m, ok := matchWordBoundary(q, c); ok {
		return m, true
	}
	if m, ok := matchContains(q, c); ok {
		return m, true
	}
	if allowFuzzy {
		if m, ok := matchFuzzy(q, c, []rune(candidate)); ok {
			return m, true
		}
	}
	return Match{}, false
}

// foldRunes lowercases rune-by-rune so offsets into the folded slice line
// up with offsets into the original.
func foldRunes(s string) []rune {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

func matchExact(q, c []rune) (Match, bool) {
	if !runesEqual(q, c) {
		return Match{}, false
	}
	return Match{
		Type:  MatchExact,
		Score: scoreExact,
		Spans: []Span{{Start: 0, End: len(c)}},
	}, true
}

func matchPrefix(q, c []rune) (Match, bool) {
	if len(q) > len(c) || !runesEqual(q, c[:len(q)]) {
		return Match{}, false
	}
	return Match{
		Type:  MatchPrefix,
		Score: clamp(scorePrefixBase - lengthPenalty*float64(len(c))),
		Spans: []Span{{Start: 0, End: len(q)}},
	}, true
}

// matchWordBoundary succeeds when the query prefixes a token delimited by
// whitespace or punctuation.
func matchWordBoundary(q, c []rune) (Match, bool) {
	for i := range c {
		if i > 0 && isWordRune(c[i-1]) {
			continue // not a token start
		}
		if i+len(q) > len(c) || !runesEqual(q, c[i:i+len(q)]) {
			continue
		}
		return Match{
			Type:  MatchWordBoundary,
			Score: clamp(scoreWordBase - lengthPenalty*float64(len(c))),
			Spans: []Span{{Start: i, End: i + len(q)}},
		}, true
	}
	return Match{}, false
}

func matchContains(q, c []rune) (Match, bool) {
	idx := runesIndex(c, q)
	if idx < 0 {
		return Match{}, false
	}
	score := scoreContainsBase - lengthPenalty*float64(len(c)) - positionPenalty*float64(idx)
	return Match{
		Type:  MatchContains,
		Score: clamp(score),
		Spans: []Span{{Start: idx, End: idx + len(q)}},
	}, true
}

// matchFuzzy consumes every query rune in order, not necessarily
// contiguously. Runs of consecutive matches and matches landing on a
// lowercase-to-uppercase transition in the original candidate earn
// bonuses; candidate length and the span between first and last match are
// penalized. orig carries the unfolded candidate for case-transition
// detection.
func matchFuzzy(q, c, orig []rune) (Match, bool) {
	score := scoreFuzzyBase
	var spans []Span
	first, last := -1, -1
	prev := -2

	qi := 0
	for ci := 0; ci < len(c) && qi < len(q); ci++ {
		if c[ci] != q[qi] {
			continue
		}
		if first < 0 {
			first = ci
		}
		last = ci

		if ci == prev+1 {
			score += fuzzyConsecutiveBonus
		}
		if ci > 0 && unicode.IsLower(orig[ci-1]) && unicode.IsUpper(orig[ci]) {
			score += fuzzyCamelBonus
		}

		if len(spans) > 0 && spans[len(spans)-1].End == ci {
			spans[len(spans)-1].End = ci + 1
		} else {
			spans = append(spans, Span{Start: ci, End: ci + 1})
		}

		prev = ci
		qi++
	}

	if qi < len(q) {
		return Match{}, false // every query character must be consumed
	}

	score -= fuzzyLengthPenalty * float64(len(c))
	score -= fuzzySpanPenalty * float64((last-first+1)-len(q))

	return Match{Type: MatchFuzzy, Score: clamp(score), Spans: spans}, true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func runesIndex(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if runesEqual(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func clamp(score float64) float64 {
	if score < scoreFloor {
		return scoreFloor
	}
	return score
}
