// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package resolver grounds parsed changes against the real files they
// target, producing edits whose old text is literal file content.
package resolver

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"github.com/petar-djukic/go-fuzzpatch/internal/editor"
	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

const (
	// DefaultPathThreshold is the minimum token-sort ratio for a listed file
	// to stand in for a path named by a diff.
	DefaultPathThreshold = 90.0

	// DefaultMinScore is the minimum match score for an edit to be applied
	// without the caller opting in. With the default weights a perfect
	// match scores 700.
	DefaultMinScore = 420.0
)

// FileReader returns the full contents of the file at path.
type FileReader func(path string) (string, error)

// FileLister returns the paths of the files that edits may target.
type FileLister func() ([]string, error)

// Config configures a Resolver. Zero fields take their defaults, so a
// threshold of exactly 0 cannot be requested: use a negative MinScore to
// accept every match. Exact-length matching needs editor.NewMatcher(0)
// directly.
type Config struct {
	PathThreshold float64      // Closest-file ratio needed to replace a stated path (default 90; 0 means default)
	MinScore      float64      // Match score below which edits are low confidence (default 420; 0 means default, negative disables)
	Tolerance     int          // Lines a match may differ from the query length (default 5; 0 means default)
	Concurrency   int          // Changes resolved in parallel (default GOMAXPROCS)
	Logger        *slog.Logger // Nil discards logs
}

// Resolver turns RawChanges into ResolvedEdits. It holds no state between
// calls and is safe for concurrent use.
type Resolver struct {
	cfg     Config
	matcher *editor.Matcher
	log     *slog.Logger
}

// New returns a Resolver for cfg. It panics if cfg.Tolerance is negative.
func New(cfg Config) *Resolver {
	applyDefaults(&cfg)
	return &Resolver{
		cfg:     cfg,
		matcher: editor.NewMatcher(cfg.Tolerance),
		log:     cfg.Logger,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.PathThreshold == 0 {
		cfg.PathThreshold = DefaultPathThreshold
	}
	if cfg.MinScore == 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = editor.DefaultTolerance
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
}

// Resolve grounds every change and returns one Resolution per change, in
// input order. Changes are independent and resolved in parallel; a failure
// on one never affects the others. After grounding, an edit that overlaps
// an earlier accepted edit of the same file is flagged as a conflict.
//
// If list fails, paths are used as stated.
func (r *Resolver) Resolve(changes []types.RawChange, read FileReader, list FileLister) []types.Resolution {
	files, err := list()
	if err != nil {
		r.log.Warn("listing files failed; using stated paths", "error", err)
	}
	idx := newPathIndex(files)

	mapper := iter.Mapper[types.RawChange, types.Resolution]{MaxGoroutines: r.cfg.Concurrency}
	results := mapper.Map(changes, func(c *types.RawChange) types.Resolution {
		return r.resolveOne(*c, read, idx)
	})

	markConflicts(results)
	return results
}

func (r *Resolver) resolveOne(c types.RawChange, read FileReader, idx *pathIndex) types.Resolution {
	res := types.Resolution{Change: c}

	if strings.TrimSpace(c.FilePath) == "" {
		res.Err = fmt.Errorf("hunk has no file path: %w", types.ErrMalformedDiff)
		return res
	}

	path, pathScore := idx.resolve(c.FilePath, r.cfg.PathThreshold)
	if path != c.FilePath {
		r.log.Debug("resolved path", "stated_path", c.FilePath, "file", path, "score", pathScore)
	}
	if !filepath.IsLocal(filepath.FromSlash(path)) {
		res.Err = fmt.Errorf("%s: %w: %w", path, types.ErrOutsideWorkDir, types.ErrMalformedDiff)
		r.log.Warn("rejected path", "file", path)
		return res
	}

	query := c.Query()
	if query == "" {
		res.Edit = &types.ResolvedEdit{
			FilePath:  path,
			NewText:   c.NewText(),
			StartLine: -1,
			EndLine:   -1,
			Score:     r.matcher.MaxScore(),
		}
		r.log.Debug("insertion", "file", path)
		return res
	}

	content, err := read(path)
	if err != nil {
		res.Err = &types.FileUnavailableError{Path: path, Err: err}
		r.log.Warn("file unavailable", "file", path, "error", err)
		return res
	}

	m := r.matcher.FindBestMatch(query, content)
	if m.Empty() {
		res.Err = fmt.Errorf("%s is empty: %w", path, types.ErrLowConfidence)
		return res
	}

	newText, missing := reconstruct(c, m.Text)
	res.Edit = &types.ResolvedEdit{
		FilePath:  path,
		OldText:   m.Text,
		NewText:   newText,
		StartLine: m.StartLine,
		EndLine:   m.EndLine,
		Score:     m.Score,
	}

	if r.cfg.MinScore >= 0 && (m.Score < r.cfg.MinScore || missing > 0) {
		res.Err = &types.LowConfidenceError{
			Path:      path,
			Score:     m.Score,
			Threshold: r.cfg.MinScore,
			StartLine: m.StartLine,
			EndLine:   m.EndLine,
			Missing:   missing,
		}
		r.log.Warn("low confidence match", "file", path, "score", m.Score, "missing_removals", missing,
			"start_line", m.StartLine+1, "end_line", m.EndLine+1)
		return res
	}

	r.log.Debug("grounded change", "file", path, "score", m.Score,
		"start_line", m.StartLine+1, "end_line", m.EndLine+1)
	return res
}

// alignThreshold is the minimum line ratio for a hunk line to stand for a
// line of the matched region.
const alignThreshold = 60.0

// reconstruct builds the replacement text for region from the hunk c. The
// hunk's original lines are aligned with the region lines; the region is
// then rewritten in hunk order:
//   - a context line is replaced by the region line it aligned with,
//   - a removed line drops the region line it aligned with,
//   - an added line is written verbatim,
//   - an elision marker ("..." that aligned with nothing) expands to the
//     region lines up to the next aligned hunk line.
//
// Region lines the hunk skipped are kept, except those between two removed
// lines of the same run. Hunk lines that aligned with nothing are not
// written. The second result counts the non-blank removed lines that could
// not be found in region.
func reconstruct(c types.RawChange, region string) (string, int) {
	lines := strings.Split(region, "\n")
	at := align(c.OriginalLines, lines)
	steps := interleave(c.OriginalLines, c.NewLines)

	var out []string
	cur, missing := 0, 0
	inRemoval := false
	for i, s := range steps {
		switch {
		case s.orig < 0:
			out = append(out, s.line.Text)
			inRemoval = false

		case at[s.orig] >= 0:
			k := at[s.orig]
			removed := s.line.Kind == types.Removed
			if !(removed && inRemoval) {
				out = append(out, lines[cur:k]...)
			}
			if !removed {
				out = append(out, lines[k])
			}
			cur = k + 1
			inRemoval = removed

		case isElision(s.line):
			next := nextAligned(steps[i+1:], at, len(lines))
			out = append(out, lines[cur:next]...)
			cur = next
			inRemoval = false

		case s.line.Kind == types.Removed && strings.TrimSpace(s.line.Text) != "":
			missing++
		}
	}
	out = append(out, lines[cur:]...)
	return strings.Join(out, "\n"), missing
}

// step is one line of a hunk in reading order. orig indexes the hunk's
// original lines, or is -1 for lines only in the new view.
type step struct {
	line types.DiffLine
	orig int
}

// interleave merges the two views of a hunk back into reading order. Shared
// context lines keep the views in step; between them removed lines come
// before added ones.
func interleave(original, updated []types.DiffLine) []step {
	var steps []step
	i, j := 0, 0
	for i < len(original) || j < len(updated) {
		for i < len(original) && original[i].Kind != types.Context {
			steps = append(steps, step{line: original[i], orig: i})
			i++
		}
		for j < len(updated) && updated[j].Kind != types.Context {
			steps = append(steps, step{line: updated[j], orig: -1})
			j++
		}
		switch {
		case i < len(original):
			steps = append(steps, step{line: original[i], orig: i})
			i++
			if j < len(updated) {
				j++
			}
		case j < len(updated):
			steps = append(steps, step{line: updated[j], orig: -1})
			j++
		}
	}
	return steps
}

// align maps each hunk line onto a region line, or -1. The mapping keeps
// line order and maximizes the summed ratios of the aligned pairs; pairs
// under alignThreshold never align.
func align(hunk []types.DiffLine, region []string) []int {
	n, m := len(hunk), len(region)
	a := make([]string, n)
	for i, l := range hunk {
		a[i] = normalizeLine(l.Text)
	}
	b := make([]string, m)
	for j, l := range region {
		b[j] = normalizeLine(l)
	}

	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, m)
		for j := range sim[i] {
			sim[i][j] = editor.Ratio(a[i], b[j])
		}
	}

	// best[i][j] is the highest total for hunk[i:] against region[j:].
	best := make([][]float64, n+1)
	for i := range best {
		best[i] = make([]float64, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			v := max(best[i+1][j], best[i][j+1])
			if s := sim[i][j]; s >= alignThreshold {
				v = max(v, best[i+1][j+1]+s)
			}
			best[i][j] = v
		}
	}

	at := make([]int, n)
	for i := range at {
		at[i] = -1
	}
	for i, j := 0, 0; i < n && j < m; {
		switch s := sim[i][j]; {
		case s >= alignThreshold && best[i][j] == best[i+1][j+1]+s:
			at[i] = j
			i++
			j++
		case best[i][j] == best[i+1][j]:
			i++
		default:
			j++
		}
	}
	return at
}

// nextAligned returns the region line of the first aligned step, or end
// when none is aligned.
func nextAligned(steps []step, at []int, end int) int {
	for _, s := range steps {
		if s.orig >= 0 && at[s.orig] >= 0 {
			return at[s.orig]
		}
	}
	return end
}

func isElision(l types.DiffLine) bool {
	return l.Kind == types.Context && strings.TrimSpace(l.Text) == "..."
}

// normalizeLine trims a line and collapses its inner whitespace.
func normalizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// markConflicts flags every grounded edit that overlaps an earlier accepted
// edit of the same file. Earlier changes win; low-confidence and failed
// resolutions claim no lines.
func markConflicts(results []types.Resolution) {
	var accepted []int
	for i := range results {
		res := &results[i]
		if !res.OK() {
			continue
		}
		conflict := -1
		for _, j := range accepted {
			if results[j].Edit.Overlaps(*res.Edit) {
				conflict = j
				break
			}
		}
		if conflict >= 0 {
			res.Err = &types.ConflictError{Path: res.Edit.FilePath, Other: conflict}
			continue
		}
		accepted = append(accepted, i)
	}
}
