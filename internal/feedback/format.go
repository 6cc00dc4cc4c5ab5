// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package feedback renders a follow-up message for the LLM describing the
// changes that could not be applied as-is, with the real file content the
// LLM should have referenced.
package feedback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/petar-djukic/go-fuzzpatch/internal/resolver"
	"github.com/petar-djukic/go-fuzzpatch/internal/syntax"
	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

const defaultContextLines = 5

// FormatConfig configures report formatting.
type FormatConfig struct {
	ContextLines int // Lines of context above/below each closest region (default 5)
}

// FormatReport produces a follow-up prompt from a batch of resolutions.
// Every resolution that is not OK gets a section with its error, the
// snippet the LLM sent, and numbered lines around the closest region of the
// real file. It returns "" when every resolution is OK.
func FormatReport(resolutions []types.Resolution, applied []string, read resolver.FileReader, cfg FormatConfig) string {
	contextLines := cfg.ContextLines
	if contextLines == 0 {
		contextLines = defaultContextLines
	}

	var failed []int
	for i, r := range resolutions {
		if !r.OK() {
			failed = append(failed, i)
		}
	}
	if len(failed) == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString("Some edits could not be applied. Resend them using the exact current file content shown below.\n\n")

	if len(applied) > 0 {
		buf.WriteString("## Applied Files\n\n")
		for _, f := range applied {
			fmt.Fprintf(&buf, "- %s\n", f)
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Rejected Changes\n\n")
	for _, i := range failed {
		writeChange(&buf, i, resolutions[i], read, contextLines)
	}
	return buf.String()
}

func writeChange(buf *strings.Builder, index int, r types.Resolution, read resolver.FileReader, contextLines int) {
	path := r.Change.FilePath
	if r.Edit != nil {
		path = r.Edit.FilePath
	}
	if path == "" {
		path = "(no file)"
	}
	fmt.Fprintf(buf, "### Change %d: %s\n\n%s\n\n", index+1, path, describe(r.Err))

	if q := r.Change.Query(); q != "" {
		buf.WriteString("Snippet sent:\n\n```\n")
		buf.WriteString(q)
		buf.WriteString("\n```\n\n")
	}

	if r.Edit == nil || r.Edit.IsInsertion() || read == nil {
		return
	}
	content, err := read(r.Edit.FilePath)
	if err != nil {
		return
	}
	snippet := getCodeContext(content, r.Edit.StartLine, r.Edit.EndLine, contextLines)
	if snippet == "" {
		return
	}
	fmt.Fprintf(buf, "Closest region (score %.1f):\n\n```\n", r.Edit.Score)
	buf.WriteString(snippet)
	buf.WriteString("```\n\n")
}

// FormatSyntax lists the syntax errors the applied edits introduced. It
// returns "" when there are none.
func FormatSyntax(files []syntax.FileProblems) string {
	if len(files) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("## Syntax Errors\n\nThese files were written but no longer parse. Send edits that fix them.\n\n")
	for _, f := range files {
		for _, p := range f.Problems {
			fmt.Fprintf(&buf, "- %s:%s\n", f.Path, p)
		}
	}
	buf.WriteString("\n")
	return buf.String()
}

// describe turns a resolution error into an instruction for the LLM.
func describe(err error) string {
	var lc *types.LowConfidenceError
	var ce *types.ConflictError
	switch {
	case errors.As(err, &lc) && lc.Missing > 0 && lc.Score >= lc.Threshold:
		return fmt.Sprintf("%d of the lines to remove are not in the file. Copy them from the current content.", lc.Missing)
	case errors.As(err, &lc):
		return fmt.Sprintf("The snippet does not match the file closely enough (score %.1f, need %.1f).", lc.Score, lc.Threshold)
	case errors.As(err, &ce):
		return fmt.Sprintf("The edit overlaps change %d; combine both into one edit.", ce.Other+1)
	case errors.Is(err, types.ErrFileUnavailable):
		return "The file could not be read. Check the path."
	case errors.Is(err, types.ErrOutsideWorkDir):
		return "The path leaves the work directory. Use a path relative to the repository root."
	case errors.Is(err, types.ErrMalformedDiff):
		return "The hunk has no file header. Start each file with a +++ line."
	case err != nil:
		return err.Error()
	default:
		return "The change could not be grounded."
	}
}

// getCodeContext returns lines start..end (0-based, inclusive) of content,
// numbered from 1, with contextLines above and below. Lines in the range
// are marked with "> ".
func getCodeContext(content string, start, end, contextLines int) string {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if start < 0 || start >= len(lines) {
		return ""
	}

	from := max(0, start-contextLines)
	to := min(len(lines), end+contextLines+1)

	var buf strings.Builder
	for i := from; i < to; i++ {
		marker := "  "
		if i >= start && i <= end {
			marker = "> "
		}
		fmt.Fprintf(&buf, "%s%4d │ %s\n", marker, i+1, lines[i])
	}
	return buf.String()
}
