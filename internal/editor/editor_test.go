// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

func replace(path string, start, end int, oldText, newText string) types.ResolvedEdit {
	return types.ResolvedEdit{
		FilePath:  path,
		OldText:   oldText,
		NewText:   newText,
		StartLine: start,
		EndLine:   end,
		Score:     700,
	}
}

func insert(path, newText string) types.ResolvedEdit {
	return types.ResolvedEdit{FilePath: path, NewText: newText, StartLine: -1, EndLine: -1, Score: 700}
}

func TestSplice(t *testing.T) {
	tests := []struct {
		name    string
		content string
		edits   []types.ResolvedEdit
		want    string
		wantErr error
	}{
		{
			name:    "replaces a single line",
			content: "a\nb\nc\n",
			edits:   []types.ResolvedEdit{replace("f", 1, 1, "b", "B")},
			want:    "a\nB\nc\n",
		},
		{
			name:    "applies bottom-up so line numbers stay valid",
			content: "a\nb\nc\n",
			edits: []types.ResolvedEdit{
				replace("f", 0, 0, "a", "a1\na2"),
				replace("f", 2, 2, "c", ""),
			},
			want: "a1\na2\nb\n",
		},
		{
			name:    "keeps missing final newline",
			content: "a\nb",
			edits:   []types.ResolvedEdit{replace("f", 1, 1, "b", "c")},
			want:    "a\nc",
		},
		{
			name:    "deleting every line empties the file",
			content: "a\n",
			edits:   []types.ResolvedEdit{replace("f", 0, 0, "a", "")},
			want:    "",
		},
		{
			name:    "insertion appends",
			content: "a\n",
			edits:   []types.ResolvedEdit{insert("f", "b\nc")},
			want:    "a\nb\nc\n",
		},
		{
			name:    "insertion into empty content",
			content: "",
			edits:   []types.ResolvedEdit{insert("f", "x")},
			want:    "x\n",
		},
		{
			name:    "stale old text",
			content: "a\nb\n",
			edits:   []types.ResolvedEdit{replace("f", 1, 1, "B", "c")},
			wantErr: types.ErrStaleEdit,
		},
		{
			name:    "range past end of file",
			content: "a\n",
			edits:   []types.ResolvedEdit{replace("f", 0, 3, "a", "b")},
			wantErr: types.ErrStaleEdit,
		},
		{
			name:    "overlapping ranges",
			content: "a\nb\nc\n",
			edits: []types.ResolvedEdit{
				replace("f", 0, 1, "a\nb", "x"),
				replace("f", 1, 2, "b\nc", "y"),
			},
			wantErr: types.ErrEditConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Splice(tt.content, tt.edits)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEditor_Apply(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("timeout: 30\nretries: 3\n"), 0o644))

	ed := &Editor{Root: dir}
	results, errs := ed.Apply([]types.ResolvedEdit{
		replace("config.yaml", 1, 1, "retries: 3", "retries: 5"),
		insert("docs/notes.md", "# Notes"),
		replace("config.yaml", 0, 0, "timeout: 30", "timeout: 60"),
	})
	require.Empty(t, errs)
	require.Len(t, results, 2)

	assert.Equal(t, "config.yaml", results[0].FilePath)
	assert.Equal(t, 2, results[0].Edits)
	assert.False(t, results[0].Created)
	assert.Equal(t, "docs/notes.md", results[1].FilePath)
	assert.True(t, results[1].Created)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "timeout: 60\nretries: 5\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "docs", "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n", string(data))
}

func TestEditor_ApplyContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("one\n"), 0o644))

	ed := &Editor{Root: dir}
	results, errs := ed.Apply([]types.ResolvedEdit{
		replace("missing.txt", 0, 0, "x", "y"),
		replace("ok.txt", 0, 0, "one", "two"),
	})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], types.ErrFileUnavailable)
	require.Len(t, results, 1)
	assert.Equal(t, "ok.txt", results[0].FilePath)

	_, err := os.Stat(filepath.Join(dir, "missing.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestEditor_ApplyStaleLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("changed\n"), 0o644))

	ed := &Editor{Root: dir}
	_, errs := ed.Apply([]types.ResolvedEdit{replace("a.txt", 0, 0, "original", "new")})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], types.ErrStaleEdit)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "changed\n", string(data))
}

func TestAtomicWrite_PreservesPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o755))

	ed := &Editor{Root: dir}
	_, errs := ed.Apply([]types.ResolvedEdit{replace("script.sh", 1, 1, "echo hi", "echo bye")})
	require.Empty(t, errs)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestJoinRoot(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "relative", root: "/work", in: "a/b.go", want: filepath.Join("/work", "a", "b.go")},
		{name: "inner dot dot", root: "/work", in: "a/../b.go", want: filepath.Join("/work", "b.go")},
		{name: "empty root", root: "", in: "b.go", want: "b.go"},
		{name: "parent", root: "/work", in: "../b.go", wantErr: true},
		{name: "nested escape", root: "/work", in: "a/../../b.go", wantErr: true},
		{name: "absolute", root: "/work", in: "/etc/passwd", wantErr: true},
		{name: "empty name", root: "/work", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinRoot(tt.root, tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutsideRoot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEditor_ApplyRejectsPathsOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "work")
	require.NoError(t, os.Mkdir(dir, 0o755))
	abs := filepath.Join(parent, "abs.txt")

	ed := &Editor{Root: dir}
	results, errs := ed.Apply([]types.ResolvedEdit{
		insert("../escaped.txt", "owned"),
		insert(abs, "owned"),
	})
	assert.Empty(t, results)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrOutsideRoot)
		assert.ErrorIs(t, err, types.ErrFileUnavailable)
	}

	for _, p := range []string{filepath.Join(parent, "escaped.txt"), abs} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s was created", p)
	}

	_, err := ed.Preview([]types.ResolvedEdit{insert("../escaped.txt", "owned")})
	assert.ErrorIs(t, err, ErrOutsideRoot)
}
