package types

import "time"

// SearchMode selects how the search text is matched.
type SearchMode string

// Search modes. ModeAny tries exact, prefix, substring and fuzzy in that
// order and keeps the best.
const (
	ModeAny       SearchMode = "any"
	ModeExact     SearchMode = "exact"
	ModePrefix    SearchMode = "prefix"
	ModeSubstring SearchMode = "substring"
	ModeFuzzy     SearchMode = "fuzzy"
	ModeRegex     SearchMode = "regex"
)

// MatchKind records how a search hit was found, in rank order.
type MatchKind int

// Match kinds, best first.
const (
	MatchExact MatchKind = iota
	MatchPrefix
	MatchSubstring
	MatchRegex
	MatchFuzzy
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchSubstring:
		return "substring"
	case MatchRegex:
		return "regex"
	case MatchFuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// SearchCriteria describes a search request. Empty Columns searches every
// field. Zero FuzzyThreshold and RegexTimeout take engine defaults.
type SearchCriteria struct {
	Text           string
	Mode           SearchMode
	Columns        []string
	CaseSensitive  bool
	FuzzyThreshold float64
	RegexTimeout   time.Duration
	Limit          int
}

// SearchResult is one matching row with its best-scoring cell.
type SearchResult struct {
	RowID    RowID
	Position int
	Column   string
	Value    Value
	Kind     MatchKind
	Score    float64
}
