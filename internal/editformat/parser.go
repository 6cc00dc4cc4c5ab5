// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package editformat parses LLM response text into RawChanges. It
// understands freeform unified diffs, SEARCH/REPLACE blocks, and markdown
// replies that wrap either in fenced code blocks.
package editformat

import (
	"fmt"
	"strings"

	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

const (
	markerSearch  = "<<<<<<< SEARCH"
	markerDivider = "======="
	markerReplace = ">>>>>>> REPLACE"
)

// ParseError describes a malformed block in the LLM response. It is a
// warning: the rest of the response is still parsed.
type ParseError struct {
	Position int    // Line number where the block starts (1-based)
	RawText  string // The raw text of the malformed block
	Message  string // What went wrong
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Position, e.Message)
}

func (e *ParseError) Unwrap() error { return types.ErrMalformedDiff }

// NoEditsFoundError is returned when the response contains no usable
// changes. Callers should treat it as a no-op, not a failure.
type NoEditsFoundError struct{}

func (e *NoEditsFoundError) Error() string {
	return "no edit blocks found in response"
}

func (e *NoEditsFoundError) Unwrap() error { return types.ErrMalformedDiff }

// ParseResult holds the outcome of parsing an LLM response.
type ParseResult struct {
	Changes       []types.RawChange // Parsed changes, in response order
	Warnings      []*ParseError     // Malformed blocks and orphan hunks
	ReasoningText string            // Non-edit text from a SEARCH/REPLACE response
	Format        Format            // Format the response was parsed as
}

// ParseSearchReplace extracts SEARCH/REPLACE blocks from an LLM response.
// The line immediately before each SEARCH marker names the file. Every
// search line becomes a Removed line and every replacement line an Added
// line, so the block grounds exactly like a diff hunk. Malformed blocks
// produce warnings. When no blocks are found at all, it returns a
// NoEditsFoundError.
func ParseSearchReplace(response string) (*ParseResult, error) {
	if strings.TrimSpace(response) == "" {
		return nil, &NoEditsFoundError{}
	}

	result := &ParseResult{Format: FormatSearchReplace}
	lines := strings.Split(strings.ReplaceAll(response, "\r", ""), "\n")
	var reasoning strings.Builder
	blocksFound := 0
	i := 0

	for i < len(lines) {
		searchIdx := -1
		for j := i; j < len(lines); j++ {
			if isMarker(lines[j], markerSearch) {
				searchIdx = j
				break
			}
		}

		if searchIdx < 0 {
			for ; i < len(lines); i++ {
				appendReasoning(&reasoning, lines[i])
			}
			break
		}

		// Everything before this block is reasoning text, except the line
		// immediately before SEARCH, which is the file path.
		filePathLine := searchIdx - 1
		for ; i < filePathLine; i++ {
			appendReasoning(&reasoning, lines[i])
		}

		filePath := ""
		if filePathLine >= 0 {
			filePath = extractFilePath(lines[filePathLine])
		}

		i = searchIdx + 1
		blocksFound++

		search, next, ok := collectUntil(lines, i, markerDivider)
		i = next
		if !ok {
			result.Warnings = append(result.Warnings, &ParseError{
				Position: searchIdx + 1,
				RawText:  reconstructBlock(lines, searchIdx, i),
				Message:  "unclosed block: missing ======= divider",
			})
			continue
		}

		replace, next, ok := collectUntil(lines, i, markerReplace)
		i = next
		if !ok {
			result.Warnings = append(result.Warnings, &ParseError{
				Position: searchIdx + 1,
				RawText:  reconstructBlock(lines, searchIdx, i),
				Message:  "unclosed block: missing >>>>>>> REPLACE marker",
			})
			continue
		}

		// Skip any trailing markdown fence (```) after the REPLACE marker.
		if i < len(lines) && isMarkdownFence(lines[i]) {
			i++
		}

		if filePath == "" {
			result.Warnings = append(result.Warnings, &ParseError{
				Position: searchIdx + 1,
				RawText:  reconstructBlock(lines, searchIdx, i),
				Message:  "missing file path before <<<<<<< SEARCH marker",
			})
			continue
		}

		change := types.RawChange{
			FilePath:      filePath,
			OriginalLines: classify(search, types.Removed),
			NewLines:      classify(replace, types.Added),
		}
		if change.IsEmpty() {
			continue
		}
		result.Changes = append(result.Changes, change)
	}

	result.ReasoningText = strings.TrimSpace(reasoning.String())

	if blocksFound == 0 {
		return nil, &NoEditsFoundError{}
	}

	return result, nil
}

// collectUntil gathers lines from start up to the marker. It returns the
// collected lines, the index after the marker, and whether it was found.
func collectUntil(lines []string, start int, marker string) ([]string, int, bool) {
	var out []string
	for i := start; i < len(lines); i++ {
		if isMarker(lines[i], marker) {
			return out, i + 1, true
		}
		out = append(out, lines[i])
	}
	return out, len(lines), false
}

func classify(lines []string, kind types.LineKind) []types.DiffLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]types.DiffLine, len(lines))
	for i, l := range lines {
		out[i] = types.DiffLine{Kind: kind, Text: l}
	}
	return out
}

// extractFilePath cleans a file path line, stripping markdown fences,
// backticks, and leading/trailing whitespace.
func extractFilePath(line string) string {
	s := strings.TrimSpace(line)

	if isMarkdownFence(s) {
		return ""
	}

	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)

	// A line with spaces and no slash is reasoning text, not a path.
	if strings.ContainsAny(s, " \t") && !strings.Contains(s, "/") {
		return ""
	}

	return s
}

// isMarker checks if a line matches a marker, allowing leading/trailing whitespace.
func isMarker(line, marker string) bool {
	return strings.TrimSpace(line) == marker
}

// isMarkdownFence checks if a line is a markdown fence (``` with optional language).
func isMarkdownFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// reconstructBlock joins lines from start to end for error reporting.
func reconstructBlock(lines []string, start, end int) string {
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

func appendReasoning(b *strings.Builder, line string) {
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(line)
}
