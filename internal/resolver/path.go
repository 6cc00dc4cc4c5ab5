// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package resolver

import (
	"path"
	"strings"

	"github.com/petar-djukic/go-fuzzpatch/internal/editor"
)

// pathIndex maps the approximate paths named by diffs to real files.
type pathIndex struct {
	files []string
	exact map[string]string // normalized path -> listed path
}

func newPathIndex(files []string) *pathIndex {
	idx := &pathIndex{
		files: files,
		exact: make(map[string]string, len(files)),
	}
	for _, f := range files {
		key := normalizePath(f)
		if _, dup := idx.exact[key]; !dup {
			idx.exact[key] = f
		}
	}
	return idx
}

// resolve returns the listed file for stated. An exact hit wins, trying the
// path as written and then without a git "a/" or "b/" prefix. Otherwise the
// listed file with the highest token-sort ratio is used if it reaches
// threshold; ties keep the first listed. When nothing qualifies, stated is
// returned trimmed but otherwise unchanged, which is what a new file needs.
func (p *pathIndex) resolve(stated string, threshold float64) (resolved string, score float64) {
	stated = strings.TrimSpace(stated)

	candidates := []string{normalizePath(stated)}
	if trimmed, ok := stripGitPrefix(candidates[0]); ok {
		candidates = append(candidates, trimmed)
	}
	for _, c := range candidates {
		if f, ok := p.exact[c]; ok {
			return f, 100
		}
	}

	query := candidates[len(candidates)-1]
	best, bestScore := "", -1.0
	for _, f := range p.files {
		s := editor.TokenSortRatio(query, f)
		if s > bestScore {
			best, bestScore = f, s
		}
	}
	if best != "" && bestScore >= threshold {
		return best, bestScore
	}
	return stated, bestScore
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean(p), "./")
}

func stripGitPrefix(p string) (string, bool) {
	for _, prefix := range []string{"a/", "b/"} {
		if rest, ok := strings.CutPrefix(p, prefix); ok && rest != "" {
			return rest, true
		}
	}
	return p, false
}
