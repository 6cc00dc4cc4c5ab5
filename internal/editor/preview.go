// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	sgdiff "github.com/sourcegraph/go-diff/diff"

	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

const previewContextLines = 3

// PreviewStats summarizes a preview patch.
type PreviewStats struct {
	Files   int
	Hunks   int
	Added   int
	Changed int
	Deleted int
}

// PreviewResult is the unified diff that Apply would produce, without
// writing anything.
type PreviewResult struct {
	Patch string
	Stats PreviewStats
}

// Preview computes the unified diff of every file touched by edits. Files
// are reported in order of first appearance; files whose content would not
// change are omitted.
func (e *Editor) Preview(edits []types.ResolvedEdit) (*PreviewResult, error) {
	var patch strings.Builder

	for _, group := range groupByFile(edits) {
		name := group[0].FilePath
		path, err := JoinRoot(e.Root, name)
		if err != nil {
			return nil, &types.FileUnavailableError{Path: name, Err: err}
		}
		before, existed, err := readOptional(path)
		if err != nil {
			return nil, err
		}
		if !existed && !allInsertions(group) {
			return nil, &types.FileUnavailableError{Path: name, Err: fs.ErrNotExist}
		}
		after, err := Splice(before, group)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if before == after {
			continue
		}

		ud := difflib.UnifiedDiff{
			A:        diffLines(before),
			B:        diffLines(after),
			FromFile: "a/" + name,
			ToFile:   "b/" + name,
			Context:  previewContextLines,
		}
		text, err := difflib.GetUnifiedDiffString(ud)
		if err != nil {
			return nil, fmt.Errorf("diff generation for %s: %w", name, err)
		}
		patch.WriteString(text)
	}

	result := &PreviewResult{Patch: patch.String()}
	if result.Patch == "" {
		return result, nil
	}

	stats, err := patchStats(result.Patch)
	if err != nil {
		return nil, err
	}
	result.Stats = stats
	return result, nil
}

// diffLines splits content for difflib, which would otherwise turn an empty
// file into a single blank line. difflib.SplitLines terminates every line,
// including the last, so the file's own final newline is dropped first.
func diffLines(content string) []string {
	if content == "" {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(content, "\n"))
}

// patchStats parses a multi-file unified diff and totals its hunks and line
// changes.
func patchStats(patch string) (PreviewStats, error) {
	fds, err := sgdiff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return PreviewStats{}, fmt.Errorf("parsing preview patch: %w", err)
	}

	var s PreviewStats
	for _, fd := range fds {
		s.Files++
		s.Hunks += len(fd.Hunks)
		st := fd.Stat()
		s.Added += int(st.Added)
		s.Changed += int(st.Changed)
		s.Deleted += int(st.Deleted)
	}
	return s, nil
}
