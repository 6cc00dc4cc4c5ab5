// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

// ApplyResult describes the outcome of writing the edits of one file.
type ApplyResult struct {
	FilePath string // Path as named by the edits
	Edits    int    // Number of edits spliced in
	Created  bool   // True if the file did not exist before
}

// ErrOutsideRoot marks an edit path that is absolute or climbs out of the
// editor's root.
var ErrOutsideRoot = types.ErrOutsideWorkDir

// Editor writes resolved edits to files. Edit paths are relative to Root
// and must stay inside it; an empty Root means the process working
// directory.
type Editor struct {
	Root string
}

// JoinRoot returns the file path for the slash-separated name under root.
// Names that are absolute or escape root through ".." yield ErrOutsideRoot.
func JoinRoot(root, name string) (string, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", ErrOutsideRoot
	}
	if root == "" {
		return local, nil
	}
	return filepath.Join(root, local), nil
}

// Apply groups edits by file and writes each file once. Files are
// processed in order of first appearance. A failure on one file is
// collected and does not stop the others.
func (e *Editor) Apply(edits []types.ResolvedEdit) ([]*ApplyResult, []error) {
	var results []*ApplyResult
	var errs []error

	for _, group := range groupByFile(edits) {
		r, err := e.applyFile(group[0].FilePath, group)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, r)
	}
	return results, errs
}

func (e *Editor) applyFile(name string, edits []types.ResolvedEdit) (*ApplyResult, error) {
	path, err := JoinRoot(e.Root, name)
	if err != nil {
		return nil, &types.FileUnavailableError{Path: name, Err: err}
	}

	content, existed, err := readOptional(path)
	if err != nil {
		return nil, err
	}
	if !existed && !allInsertions(edits) {
		return nil, &types.FileUnavailableError{Path: name, Err: fs.ErrNotExist}
	}

	updated, err := Splice(content, edits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if !existed {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", name, err)
		}
	}
	if err := atomicWrite(path, []byte(updated)); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}

	return &ApplyResult{FilePath: name, Edits: len(edits), Created: !existed}, nil
}

// Splice applies edits to content and returns the result. Range edits are
// replaced bottom-up so earlier line numbers stay valid; each range must
// still hold exactly the edit's OldText. Insertions are appended in order.
// Overlapping ranges are rejected with a *types.ConflictError.
func Splice(content string, edits []types.ResolvedEdit) (string, error) {
	lines := SplitLines(content)

	var ranged, inserts []int
	for i, ed := range edits {
		if ed.IsInsertion() {
			inserts = append(inserts, i)
			continue
		}
		for _, j := range ranged {
			if edits[j].Overlaps(ed) {
				return "", &types.ConflictError{Path: ed.FilePath, Other: j}
			}
		}
		ranged = append(ranged, i)
	}

	sort.SliceStable(ranged, func(a, b int) bool {
		return edits[ranged[a]].StartLine > edits[ranged[b]].StartLine
	})

	for _, i := range ranged {
		ed := edits[i]
		if ed.StartLine < 0 || ed.EndLine >= len(lines) || ed.EndLine < ed.StartLine {
			return "", fmt.Errorf("lines %d-%d out of range: %w", ed.StartLine+1, ed.EndLine+1, types.ErrStaleEdit)
		}
		if strings.Join(lines[ed.StartLine:ed.EndLine+1], "\n") != ed.OldText {
			return "", fmt.Errorf("lines %d-%d no longer match: %w", ed.StartLine+1, ed.EndLine+1, types.ErrStaleEdit)
		}
		repl := textLines(ed.NewText)
		tail := append([]string{}, lines[ed.EndLine+1:]...)
		lines = append(append(lines[:ed.StartLine], repl...), tail...)
	}

	for _, i := range inserts {
		lines = append(lines, textLines(edits[i].NewText)...)
	}

	if len(lines) == 0 {
		return "", nil
	}
	out := strings.Join(lines, "\n")
	if content == "" || strings.HasSuffix(content, "\n") {
		out += "\n"
	}
	return out, nil
}

// textLines splits replacement text into lines; empty text deletes the range.
func textLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// groupByFile buckets edits by FilePath, keeping first-appearance order of
// files and input order within a file.
func groupByFile(edits []types.ResolvedEdit) [][]types.ResolvedEdit {
	index := make(map[string]int)
	var groups [][]types.ResolvedEdit
	for _, ed := range edits {
		i, ok := index[ed.FilePath]
		if !ok {
			i = len(groups)
			index[ed.FilePath] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], ed)
	}
	return groups
}

func allInsertions(edits []types.ResolvedEdit) bool {
	for _, ed := range edits {
		if !ed.IsInsertion() {
			return false
		}
	}
	return true
}

// readOptional reads path, reporting existed=false instead of an error when
// the file does not exist.
func readOptional(path string) (content string, existed bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &types.FileUnavailableError{Path: path, Err: err}
	}
	return string(data), true, nil
}

// atomicWrite writes data to a temp file in the same directory, then renames
// it to the target path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	// Preserve original file permissions if the file exists.
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.CreateTemp(dir, ".fuzzpatch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
