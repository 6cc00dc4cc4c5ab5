// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package editor locates approximate snippets in real files and applies
// grounded edits to them.
package editor

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

const (
	// DefaultTolerance is how many lines shorter or longer than the query a
	// matched region may be.
	DefaultTolerance = 5

	// DefaultBoundaryWeight multiplies the first-line and last-line ratios.
	DefaultBoundaryWeight = 3.0
)

// Matcher finds the contiguous region of a document that best corresponds
// to a noisy query snippet. Every window starting at each document line and
// spanning the query length plus or minus Tolerance lines is scored by the
// similarity of its collapsed relevant content, plus BoundaryWeight times the
// similarity of its first and last lines to the query's first and last lines.
//
// The zero value uses a tolerance of 0 and the default boundary weight; use
// NewMatcher or DefaultMatcher for the usual settings.
type Matcher struct {
	Tolerance      int
	BoundaryWeight float64
}

// NewMatcher returns a Matcher with the given tolerance and the default
// boundary weight. It panics if tolerance is negative.
func NewMatcher(tolerance int) *Matcher {
	if tolerance < 0 {
		panic(fmt.Sprintf("editor: negative match tolerance %d", tolerance))
	}
	return &Matcher{Tolerance: tolerance, BoundaryWeight: DefaultBoundaryWeight}
}

// DefaultMatcher returns a Matcher with DefaultTolerance.
func DefaultMatcher() *Matcher {
	return NewMatcher(DefaultTolerance)
}

// FindBestMatch runs DefaultMatcher().FindBestMatch.
func FindBestMatch(query, document string) types.MatchResult {
	return DefaultMatcher().FindBestMatch(query, document)
}

// MaxScore is the score of a perfect match under this matcher's weights.
func (m *Matcher) MaxScore() float64 {
	return 100 * (1 + 2*m.weight())
}

func (m *Matcher) weight() float64 {
	if m.BoundaryWeight > 0 {
		return m.BoundaryWeight
	}
	return DefaultBoundaryWeight
}

// FindBestMatch returns the best-scoring region of document for query.
//
// An empty query (after trimming) returns the insertion sentinel: no line
// range, InsertionMarker as text and MaxScore. An empty document returns a
// result spanning nothing with score 0. Otherwise the best candidate is
// always returned, however poor; callers judge the score. Ties keep the
// earliest window.
func (m *Matcher) FindBestMatch(query, document string) types.MatchResult {
	if m.Tolerance < 0 {
		panic(fmt.Sprintf("editor: negative match tolerance %d", m.Tolerance))
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return types.MatchResult{
			StartLine: -1,
			EndLine:   -1,
			Score:     m.MaxScore(),
			Text:      types.InsertionMarker,
			Insertion: true,
		}
	}

	docLines := SplitLines(document)
	if len(docLines) == 0 {
		return types.MatchResult{StartLine: 0, EndLine: -1}
	}

	q := newQuery(strings.Split(query, "\n"))
	d := newDocument(docLines, q)
	best, _ := m.scan(q, d)

	best.Text = strings.Join(docLines[best.StartLine:best.EndLine+1], "\n")
	return best
}

// window is a candidate region with an upper bound on its score.
type window struct {
	start, end int
	bound      float64
}

// scan scores candidate windows in descending order of their score bound
// and stops once no remaining window can beat the best. The result is the
// window an exhaustive scan in document order would pick. It also returns
// the number of bulk ratios computed.
func (m *Matcher) scan(q *query, d *document) (types.MatchResult, int) {
	w := m.weight()
	n := len(d.trimmed)
	span := len(q.lines) - 1
	qLen := utf8.RuneCountInString(q.collapsed)

	cands := make([]window, 0, n)
	for start := 0; start < n; start++ {
		minEnd := min(n-1, max(start, start+span-m.Tolerance))
		maxEnd := min(n-1, start+span+m.Tolerance)
		for end := minEnd; end <= maxEnd; end++ {
			bound := ratioBound(d.windowLen(start, end), qLen) + w*(d.head[start]+d.tail[end])
			cands = append(cands, window{start: start, end: end, bound: bound})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].bound > cands[j].bound })

	best := types.MatchResult{StartLine: 0, EndLine: -1, Score: -1}
	evaluated := 0
	for _, c := range cands {
		if c.bound < best.Score {
			break
		}
		score := Ratio(d.window(c.start, c.end), q.collapsed) + w*(d.head[c.start]+d.tail[c.end])
		evaluated++
		earlier := c.start < best.StartLine || (c.start == best.StartLine && c.end < best.EndLine)
		if score > best.Score || (score == best.Score && earlier) {
			best.StartLine, best.EndLine, best.Score = c.start, c.end, score
		}
	}
	return best, evaluated
}

// ratioBound is the highest Ratio two strings of la and lb runes can reach.
func ratioBound(la, lb int) float64 {
	if la+lb == 0 {
		return 100
	}
	return 200 * float64(min(la, lb)) / float64(la+lb)
}

// query holds the normalized forms of the snippet being searched for.
type query struct {
	lines     []string
	collapsed string // Relevant lines, trimmed, joined by spaces
	first     string
	last      string
}

func newQuery(lines []string) *query {
	var relevant []string
	for _, l := range lines {
		if t := strings.TrimSpace(l); isRelevant(t) {
			relevant = append(relevant, t)
		}
	}
	return &query{
		lines:     lines,
		collapsed: strings.Join(relevant, " "),
		first:     strings.TrimSpace(lines[0]),
		last:      strings.TrimSpace(lines[len(lines)-1]),
	}
}

// document caches per-line values so the window scan only pays for the
// bulk ratio. head[i] and tail[i] are the ratios of line i against the
// query's first and last line. runes[i] and count[i] sum the rune lengths
// and the number of relevant lines before line i.
type document struct {
	trimmed  []string
	relevant []bool
	head     []float64
	tail     []float64
	runes    []int
	count    []int
}

func newDocument(lines []string, q *query) *document {
	d := &document{
		trimmed:  make([]string, len(lines)),
		relevant: make([]bool, len(lines)),
		head:     make([]float64, len(lines)),
		tail:     make([]float64, len(lines)),
		runes:    make([]int, len(lines)+1),
		count:    make([]int, len(lines)+1),
	}
	for i, l := range lines {
		t := strings.TrimSpace(l)
		d.trimmed[i] = t
		d.relevant[i] = isRelevant(t)
		d.head[i] = Ratio(t, q.first)
		if q.last == q.first {
			d.tail[i] = d.head[i]
		} else {
			d.tail[i] = Ratio(t, q.last)
		}
		d.runes[i+1], d.count[i+1] = d.runes[i], d.count[i]
		if d.relevant[i] {
			d.runes[i+1] += utf8.RuneCountInString(t)
			d.count[i+1]++
		}
	}
	return d
}

// window joins the relevant lines from start to end inclusive.
func (d *document) window(start, end int) string {
	var parts []string
	for i := start; i <= end; i++ {
		if d.relevant[i] {
			parts = append(parts, d.trimmed[i])
		}
	}
	return strings.Join(parts, " ")
}

// windowLen is the rune length of window(start, end).
func (d *document) windowLen(start, end int) int {
	n := d.count[end+1] - d.count[start]
	if n == 0 {
		return 0
	}
	return d.runes[end+1] - d.runes[start] + n - 1
}

// isRelevant reports whether a trimmed line carries content worth matching:
// blank lines and # or // comments do not.
func isRelevant(trimmed string) bool {
	return trimmed != "" &&
		!strings.HasPrefix(trimmed, "#") &&
		!strings.HasPrefix(trimmed, "//")
}

// SplitLines splits s on newlines. A single trailing newline does not
// produce a final empty line, and an empty string has no lines. Carriage
// returns are kept so joined lines reproduce the file byte for byte.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
