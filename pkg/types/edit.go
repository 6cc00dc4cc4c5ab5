// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines the values passed between the parser, the matcher
// and the resolver: raw changes, match results and resolved edits.
package types

import (
	"fmt"
	"strings"
)

// LineKind classifies one line of a parsed hunk.
type LineKind int

const (
	Context LineKind = iota // Present in both the original and the new view
	Removed                 // Present only in the original view
	Added                   // Present only in the new view
)

func (k LineKind) String() string {
	switch k {
	case Context:
		return "context"
	case Removed:
		return "removed"
	case Added:
		return "added"
	default:
		return "unknown"
	}
}

// MarshalText lets LineKind render as its name in JSON output.
func (k LineKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (k *LineKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "context":
		*k = Context
	case "removed":
		*k = Removed
	case "added":
		*k = Added
	default:
		return fmt.Errorf("unknown line kind %q", b)
	}
	return nil
}

// DiffLine is a single classified line of a hunk, without its diff prefix.
type DiffLine struct {
	Kind LineKind `json:"kind"`
	Text string   `json:"text"`
}

// RawChange is one hunk worth of edit intent for one file, as stated by the
// diff. OriginalLines hold Context and Removed lines; NewLines hold Context
// and Added lines. FilePath may be empty for a hunk that never saw a header.
type RawChange struct {
	FilePath      string     `json:"filepath"`
	OriginalLines []DiffLine `json:"original_lines"`
	NewLines      []DiffLine `json:"new_lines"`
}

// Query joins the original view into the snippet to be grounded.
func (c RawChange) Query() string {
	return strings.TrimSpace(joinText(c.OriginalLines))
}

// NewText joins the new view verbatim, without any grounding.
func (c RawChange) NewText() string {
	return joinText(c.NewLines)
}

// IsEmpty reports whether the change carries no lines at all.
func (c RawChange) IsEmpty() bool {
	return len(c.OriginalLines) == 0 && len(c.NewLines) == 0
}

// HasRemovals reports whether any original line is a removal. A change with
// only context is an anchored insertion.
func (c RawChange) HasRemovals() bool {
	for _, l := range c.OriginalLines {
		if l.Kind == Removed {
			return true
		}
	}
	return false
}

func joinText(lines []DiffLine) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// InsertionMarker is the match text of the empty-query sentinel. It contains
// NUL bytes so it cannot occur in a text file.
const InsertionMarker = "\x00FUZZPATCH-NO-GROUNDING\x00"

// MatchResult is a located region of a document. StartLine and EndLine are
// inclusive 0-based indices. Score is the sum of the bulk ratio and the
// weighted boundary ratios, so it is not bounded to 100.
type MatchResult struct {
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float64 `json:"score"`
	Text      string  `json:"matched_text"`
	Insertion bool    `json:"insertion,omitempty"` // Empty-query sentinel; no region
}

// Empty reports whether the result spans no lines: either the insertion
// sentinel or the degenerate result for an empty document.
func (m MatchResult) Empty() bool {
	return m.Insertion || m.EndLine < m.StartLine
}

// ResolvedEdit is an edit grounded against the real file. OldText is the
// literal file content of lines StartLine..EndLine; an insertion has an
// empty OldText and StartLine == EndLine == -1.
type ResolvedEdit struct {
	FilePath  string  `json:"filepath"`
	OldText   string  `json:"old_text"`
	NewText   string  `json:"new_text"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float64 `json:"score"`
}

// IsInsertion reports whether the edit excises nothing.
func (e ResolvedEdit) IsInsertion() bool {
	return e.OldText == "" && e.StartLine < 0
}

// Overlaps reports whether two edits of the same file touch a common line.
func (e ResolvedEdit) Overlaps(o ResolvedEdit) bool {
	if e.FilePath != o.FilePath || e.IsInsertion() || o.IsInsertion() {
		return false
	}
	return e.StartLine <= o.EndLine && o.StartLine <= e.EndLine
}

// Resolution pairs one RawChange with its outcome. Edit is nil when the
// change could not be grounded at all; it is set alongside a
// *LowConfidenceError or *ConflictError so callers may still use it.
type Resolution struct {
	Change RawChange     `json:"change"`
	Edit   *ResolvedEdit `json:"edit,omitempty"`
	Err    error         `json:"-"`
}

// OK reports whether the edit is safe to apply as-is.
func (r Resolution) OK() bool {
	return r.Err == nil && r.Edit != nil
}
