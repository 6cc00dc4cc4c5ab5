// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"fmt"
	"strings"

	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

// Format identifies how a response was parsed.
type Format int

const (
	FormatUnifiedDiff   Format = iota // Bare diff text
	FormatMarkdownDiff                // Diffs inside fenced markdown blocks
	FormatSearchReplace               // SEARCH/REPLACE blocks
)

func (f Format) String() string {
	switch f {
	case FormatUnifiedDiff:
		return "unified_diff"
	case FormatMarkdownDiff:
		return "markdown_diff"
	case FormatSearchReplace:
		return "search_replace"
	default:
		return "unknown"
	}
}

// Parse detects the edit format of an LLM response and dispatches to the
// matching parser. SEARCH/REPLACE markers win; otherwise fenced diff blocks
// are parsed if the response has any; otherwise the whole text is read as a
// diff. Hunks without a file path are reported as warnings and dropped.
// A diff response with no usable hunks returns a NoEditsFoundError; a
// SEARCH/REPLACE response whose blocks are all malformed returns only its
// warnings.
func Parse(response string) (*ParseResult, error) {
	if hasSearchReplace(response) {
		return ParseSearchReplace(response)
	}

	result := &ParseResult{Format: FormatUnifiedDiff}
	texts := []string{response}

	if strings.Contains(response, "```") {
		blocks, err := ExtractDiffBlocks(response)
		if err != nil {
			return nil, fmt.Errorf("reading markdown: %w", err)
		}
		if len(blocks) > 0 {
			result.Format = FormatMarkdownDiff
			texts = blocks
		}
	}

	for _, t := range texts {
		for _, c := range ParseDiff(t) {
			if c.FilePath == "" {
				result.Warnings = append(result.Warnings, orphanWarning(c))
				continue
			}
			result.Changes = append(result.Changes, c)
		}
	}

	if len(result.Changes) == 0 {
		return nil, &NoEditsFoundError{}
	}
	return result, nil
}

func hasSearchReplace(response string) bool {
	for _, line := range strings.Split(response, "\n") {
		if isMarker(line, markerSearch) {
			return true
		}
	}
	return false
}

func orphanWarning(c types.RawChange) *ParseError {
	return &ParseError{
		RawText: c.NewText(),
		Message: "hunk has no +++ file header",
	}
}
