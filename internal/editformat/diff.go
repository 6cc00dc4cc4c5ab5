// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"regexp"
	"strings"

	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

const elisionMarker = "..."

// standaloneElision matches a "..." that is not glued to other
// non-whitespace text, so spread operators and call placeholders such as
// foo(...) survive.
var standaloneElision = regexp.MustCompile(`(^|[ \t])\.\.\.([ \t]|$)`)

// segmenter accumulates lines of the hunk being read.
type segmenter struct {
	filePath string
	original []types.DiffLine
	new      []types.DiffLine
	prev     byte // '+', '-' or 0
	changes  []types.RawChange
}

// flush emits the buffered hunk, if any, under the current file path.
func (s *segmenter) flush() {
	if len(s.original) == 0 && len(s.new) == 0 {
		return
	}
	s.changes = append(s.changes, types.RawChange{
		FilePath:      s.filePath,
		OriginalLines: s.original,
		NewLines:      s.new,
	})
	s.original, s.new = nil, nil
}

// ParseDiff segments freeform unified-diff text into RawChanges, one per
// hunk. It tolerates everything LLMs get wrong about diffs: missing or
// wrong @@ ranges, missing --- headers, unprefixed context lines, and
// several replace blocks run together without a hunk marker.
//
// Rules, per line, first match wins:
//   - "+++ path" flushes the open hunk and starts a new file section.
//   - "---" header lines and "\ No newline" markers are ignored.
//   - A line starting or ending with "@@" flushes the open hunk.
//   - "-text" is a removed line. A '-' directly after a '+' run flushes
//     first, since it starts a new replace block.
//   - "+text" is an added line.
//   - Anything else is context; a single leading space (the unified-diff
//     context prefix) is dropped.
//
// Before scanning, standalone "..." elision markers are put on their own
// line. Hunks seen before any "+++" header have an empty FilePath.
func ParseDiff(text string) []types.RawChange {
	text = strings.ReplaceAll(text, "\r", "")
	s := &segmenter{}

	for _, line := range strings.Split(expandElisions(text), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"):
			s.flush()
			s.filePath = headerPath(line[3:])
			s.prev = 0

		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, `\ `):
			continue

		case isHunkMarker(line):
			s.flush()
			s.prev = 0

		case strings.HasPrefix(line, "-"):
			if s.prev == '+' {
				s.flush()
			}
			s.original = append(s.original, types.DiffLine{Kind: types.Removed, Text: line[1:]})
			s.prev = '-'

		case strings.HasPrefix(line, "+"):
			s.new = append(s.new, types.DiffLine{Kind: types.Added, Text: line[1:]})
			s.prev = '+'

		default:
			ctx := types.DiffLine{Kind: types.Context, Text: strings.TrimPrefix(line, " ")}
			s.original = append(s.original, ctx)
			s.new = append(s.new, ctx)
		}
	}

	s.flush()
	return trimChanges(s.changes)
}

// isHunkMarker recognizes "@@ -1,3 +1,4 @@", "@@ ... @@", a bare "@@",
// and "@@ -1 +1 @@ func name()" with a trailing section heading.
func isHunkMarker(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "@@") || strings.HasSuffix(t, "@@")
}

// headerPath extracts the path from the remainder of a "+++" line,
// dropping any tab-separated timestamp.
func headerPath(rest string) string {
	if i := strings.IndexByte(rest, '\t'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

// expandElisions isolates standalone "..." markers on their own line.
func expandElisions(text string) string {
	if !strings.Contains(text, elisionMarker) {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == elisionMarker || isHunkMarker(line) ||
			strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		// Apply twice: adjacent markers share a separator.
		line = standaloneElision.ReplaceAllString(line, "$1\n...\n$2")
		lines[i] = standaloneElision.ReplaceAllString(line, "$1\n...\n$2")
	}
	return strings.Join(lines, "\n")
}

// trimChanges drops blank context lines at the edges of each hunk. They come
// from spacing between sections of LLM output rather than from the file.
func trimChanges(changes []types.RawChange) []types.RawChange {
	out := changes[:0]
	for _, c := range changes {
		c.OriginalLines = trimBlankContext(c.OriginalLines)
		c.NewLines = trimBlankContext(c.NewLines)
		if !c.IsEmpty() {
			out = append(out, c)
		}
	}
	return out
}

func trimBlankContext(lines []types.DiffLine) []types.DiffLine {
	isBlank := func(l types.DiffLine) bool {
		return l.Kind == types.Context && strings.TrimSpace(l.Text) == ""
	}
	for len(lines) > 0 && isBlank(lines[0]) {
		lines = lines[1:]
	}
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}
