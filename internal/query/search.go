package query

import (
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/dlclark/regexp2"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// Score bands. Every exact hit outranks every prefix hit, and so on down
// to fuzzy hits, which stay below fuzzyCeiling.
const (
	scoreExact      = 1.0
	scorePrefix     = 0.9
	scoreRegex      = 0.75
	scoreSubstring  = 0.6
	substringBonus  = 0.2
	fuzzyCeiling    = 0.5
	cancelCheckStep = 1024
)

// SearchOutcome is the result of a search pass.
type SearchOutcome struct {
	Results []types.SearchResult
	// Scanned is the number of rows examined before completion or
	// cancellation.
	Scanned int
	// RegexFallback is set when a regex failed to compile or timed out
	// and the search continued as a literal substring match.
	RegexFallback bool
}

// Searcher ranks rows against search criteria. It holds only defaults and
// is safe for concurrent use.
type Searcher struct {
	regexTimeout   time.Duration
	fuzzyThreshold float64
}

// NewSearcher returns a Searcher using cfg for criteria that leave the
// timeout or threshold at zero.
func NewSearcher(cfg types.SearchConfig) *Searcher {
	s := &Searcher{regexTimeout: cfg.RegexTimeout, fuzzyThreshold: cfg.FuzzyThreshold}
	if s.regexTimeout <= 0 {
		s.regexTimeout = types.DefaultRegexTimeout
	}
	if s.fuzzyThreshold <= 0 {
		s.fuzzyThreshold = types.DefaultFuzzyThreshold
	}
	return s
}

// matcher scores one cell. It returns false for no match.
type matcher func(cell string) (types.MatchKind, float64, bool)

// Search scans rows and returns matches best first. Result positions are
// indexes into rows. ctx is checked every cancelCheckStep rows; on
// cancellation the partial outcome is returned with ctx.Err().
func (s *Searcher) Search(ctx context.Context, rows []types.Row, c types.SearchCriteria) (SearchOutcome, error) {
	var out SearchOutcome
	if strings.TrimSpace(c.Text) == "" {
		return out, nil
	}

	match, fallback := s.matcherFor(c)
	out.RegexFallback = fallback

	for i, row := range rows {
		if i%cancelCheckStep == 0 {
			if err := ctx.Err(); err != nil {
				out.Scanned = i
				sortResults(out.Results)
				return out, err
			}
		}
		if r, ok := bestCell(row, c.Columns, match); ok {
			r.Position = i
			out.Results = append(out.Results, r)
		}
		if rm, ok := match.(*regexMatcher); ok && rm.timedOut && !out.RegexFallback {
			out.RegexFallback = true
			match = rm.literal
		}
	}
	out.Scanned = len(rows)
	sortResults(out.Results)
	if c.Limit > 0 && len(out.Results) > c.Limit {
		out.Results = out.Results[:c.Limit]
	}
	return out, nil
}

// cellMatcher is satisfied by matcher funcs and the regex matcher.
type cellMatcher interface {
	score(cell string) (types.MatchKind, float64, bool)
}

func (m matcher) score(cell string) (types.MatchKind, float64, bool) { return m(cell) }

func bestCell(row types.Row, columns []string, m cellMatcher) (types.SearchResult, bool) {
	if len(columns) == 0 {
		columns = row.Data.Keys()
	}
	var best types.SearchResult
	found := false
	for _, col := range columns {
		v := row.Data.Value(col)
		if v.IsBlank() {
			continue
		}
		kind, score, ok := m.score(v.String())
		if !ok {
			continue
		}
		if !found || score > best.Score {
			best = types.SearchResult{RowID: row.ID, Column: col, Value: v, Kind: kind, Score: score}
			found = true
		}
	}
	return best, found
}

func sortResults(results []types.SearchResult) {
	slices.SortStableFunc(results, func(a, b types.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return a.Position - b.Position
		}
	})
}

func (s *Searcher) matcherFor(c types.SearchCriteria) (cellMatcher, bool) {
	norm := func(x string) string { return x }
	if !c.CaseSensitive {
		norm = Fold
	}
	q := norm(strings.TrimSpace(c.Text))
	threshold := c.FuzzyThreshold
	if threshold <= 0 {
		threshold = s.fuzzyThreshold
	}

	ladder := func(fuzzy bool, stop types.MatchKind) matcher {
		return func(cell string) (types.MatchKind, float64, bool) {
			cell = norm(cell)
			if k, sc, ok := literalScore(cell, q, stop); ok {
				return k, sc, true
			}
			if fuzzy {
				return fuzzyScore(cell, q, threshold)
			}
			return 0, 0, false
		}
	}

	switch c.Mode {
	case types.ModeExact:
		return ladder(false, types.MatchExact), false
	case types.ModePrefix:
		return ladder(false, types.MatchPrefix), false
	case types.ModeSubstring:
		return ladder(false, types.MatchSubstring), false
	case types.ModeFuzzy:
		return matcher(func(cell string) (types.MatchKind, float64, bool) {
			return fuzzyScore(norm(cell), q, threshold)
		}), false
	case types.ModeRegex:
		literal := ladder(false, types.MatchSubstring)
		timeout := c.RegexTimeout
		if timeout <= 0 {
			timeout = s.regexTimeout
		}
		opts := regexp2.None
		if !c.CaseSensitive {
			opts = regexp2.IgnoreCase
		}
		re, err := regexp2.Compile(strings.TrimSpace(c.Text), opts)
		if err != nil {
			return literal, true
		}
		re.MatchTimeout = timeout
		return &regexMatcher{re: re, literal: literal}, false
	default:
		return ladder(true, types.MatchSubstring), false
	}
}

// literalScore ranks exact > prefix > substring, stopping at stop.
// Substring hits earlier in the cell score higher.
func literalScore(cell, q string, stop types.MatchKind) (types.MatchKind, float64, bool) {
	if cell == q {
		return types.MatchExact, scoreExact, true
	}
	if stop == types.MatchExact {
		return 0, 0, false
	}
	if strings.HasPrefix(cell, q) {
		return types.MatchPrefix, scorePrefix, true
	}
	if stop == types.MatchPrefix {
		return 0, 0, false
	}
	if idx := strings.Index(cell, q); idx > 0 {
		bonus := substringBonus * (1 - float64(idx)/float64(len(cell)))
		return types.MatchSubstring, scoreSubstring + bonus, true
	}
	return 0, 0, false
}

// fuzzyScore compares q against the whole cell and each word in it and
// keeps the best normalized similarity.
func fuzzyScore(cell, q string, threshold float64) (types.MatchKind, float64, bool) {
	best := Similarity(cell, q)
	for _, w := range strings.Fields(cell) {
		if s := Similarity(w, q); s > best {
			best = s
		}
	}
	if best < threshold {
		return 0, 0, false
	}
	return types.MatchFuzzy, best * fuzzyCeiling * 0.99, true
}

// Similarity returns 1 - editDistance/maxLen in [0,1]. Two empty strings
// are identical.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// regexMatcher evaluates a compiled pattern with a match timeout. After
// the first timeout it reports timedOut and the search switches to the
// literal matcher.
type regexMatcher struct {
	re       *regexp2.Regexp
	literal  matcher
	timedOut bool
}

func (m *regexMatcher) score(cell string) (types.MatchKind, float64, bool) {
	if m.timedOut {
		return m.literal(cell)
	}
	ok, err := m.re.MatchString(cell)
	if err != nil {
		m.timedOut = true
		return m.literal(cell)
	}
	if !ok {
		return 0, 0, false
	}
	if k, sc, lit := literalScore(Fold(cell), Fold(m.re.String()), types.MatchPrefix); lit {
		return k, sc, true
	}
	return types.MatchRegex, scoreRegex, true
}
