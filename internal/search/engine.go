package search

import (
	"path/filepath"
	"sort"
	"strings"

	"clipvault/pkg/types"
)

// Field identifies which searchable field of an item a match landed on.
type Field int

const (
	FieldContent Field = iota
	FieldFilename
	FieldPath
	FieldSourceApp
)

func (f Field) String() string {
	switch f {
	case FieldContent:
		return "content"
	case FieldFilename:
		return "filename"
	case FieldPath:
		return "path"
	case FieldSourceApp:
		return "sourceApp"
	}
	return "unknown"
}

// Field weight multipliers. The primary content field dominates; for file
// items the derived filename outranks the full path; the source-app label
// is always the weakest signal.
const (
	weightContent   = 1.0
	weightFilename  = 1.0
	weightPath      = 0.7
	weightSourceApp = 0.3
)

// Options configures the search engine.
type Options struct {
	// BroadMatch additionally searches full file paths and source-app
	// labels.
	BroadMatch bool
	// Fuzzy enables the ordered-subsequence strategy tier.
	Fuzzy bool
}

type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Result pairs an item with its single best field match. Spans apply to
// the named field only; a match on the source-app label carries no
// highlight spans for the content field.
type Result struct {
	Item  *types.ClipboardItem `json:"item"`
	Match Match                `json:"match"`
	Field Field                `json:"field"`
}

// Search scores every item against the query and returns the ordered
// result list. An empty or all-whitespace query short-circuits: all items
// in their stored recency order, default match type, no scoring.
//
// Ordering is tier-then-recency: the strategy tier takes absolute
// precedence, then timestamp descending; a weaker-tier match never
// outranks a stronger-tier one no matter its score. Weighted score breaks
// ties only between items sharing tier and timestamp.
func (e *Engine) Search(query string, items []*types.ClipboardItem) []Result {
	if strings.TrimSpace(query) == "" {
		results := make([]Result, len(items))
		for i, item := range items {
			results[i] = Result{Item: item, Match: Match{Type: MatchAll}, Field: primaryField(item)}
		}
		return results
	}

	var results []Result
	for _, item := range items {
		if res, ok := e.matchItem(query, item); ok {
			results = append(results, res)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Match.Type != b.Match.Type {
			return a.Match.Type < b.Match.Type
		}
		if !a.Item.Timestamp.Equal(b.Item.Timestamp) {
			return a.Item.Timestamp.After(b.Item.Timestamp)
		}
		if a.Match.Score != b.Match.Score {
			return a.Match.Score > b.Match.Score
		}
		return a.Item.ID > b.Item.ID
	})

	return results
}

// matchItem fans the query across the item's eligible fields and keeps the
// single best field match, compared tier-first then weighted score.
func (e *Engine) matchItem(query string, item *types.ClipboardItem) (Result, bool) {
	type fieldCandidate struct {
		field  Field
		text   string
		weight float64
	}

	var candidates []fieldCandidate
	switch item.Type {
	case types.TypeFileURL:
		candidates = append(candidates,
			fieldCandidate{FieldFilename, fileDisplayName(item.Content), weightFilename})
		if e.opts.BroadMatch {
			candidates = append(candidates,
				fieldCandidate{FieldPath, item.Content, weightPath})
		}
	case types.TypeText, types.TypeRichText, types.TypeURL, types.TypeImage:
		candidates = append(candidates,
			fieldCandidate{FieldContent, item.Content, weightContent})
	}
	if e.opts.BroadMatch && item.SourceApp != "" {
		candidates = append(candidates,
			fieldCandidate{FieldSourceApp, item.SourceApp, weightSourceApp})
	}

	var best Result
	found := false
	for _, fc := range candidates {
		m, ok := MatchQuery(query, fc.text, e.opts.Fuzzy)
		if !ok {
			continue
		}
		m.Score *= fc.weight
		if !found || betterFieldMatch(m, best.Match) {
			best = Result{Item: item, Match: m, Field: fc.field}
			found = true
		}
	}
	return best, found
}

func betterFieldMatch(a, b Match) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Score > b.Score
}

// primaryField is the field a match naturally lands on for an item, used
// when no scoring happened.
func primaryField(item *types.ClipboardItem) Field {
	if item.Type == types.TypeFileURL {
		return FieldFilename
	}
	return FieldContent
}

// fileDisplayName derives the filename component of a file item's display
// string. Multi-file summaries are already name-oriented and pass through.
func fileDisplayName(content string) string {
	if strings.HasPrefix(content, "[") {
		return content
	}
	trimmed := strings.TrimPrefix(content, "file://")
	return filepath.Base(trimmed)
}
