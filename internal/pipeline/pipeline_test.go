// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/go-fuzzpatch/internal/editformat"
	"github.com/petar-djukic/go-fuzzpatch/internal/editor"
	"github.com/petar-djukic/go-fuzzpatch/internal/resolver"
	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

const calcSource = `package calc

func Add(a, b int) int {
	return a + b
}

func Sub(a, b int) int {
	return a - b
}
`

const calcDiff = `--- a/calc.go
+++ b/calc.go
@@ -3,3 +3,3 @@
 func Add(a, b int) int {
-	return a + b
+	return b + a
 }
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func newTestRunner(dir string) *Runner {
	return NewRunner(Deps{WorkDir: dir, Resolver: resolver.Config{Concurrency: 2}})
}

func TestRun_ResolveOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "calc.go", calcSource)

	res, err := newTestRunner(dir).Run(context.Background(), calcDiff, Options{})
	require.NoError(t, err)

	assert.Equal(t, editformat.FormatUnifiedDiff, res.Format)
	require.Len(t, res.Resolutions, 1)
	require.True(t, res.Resolutions[0].OK())
	assert.Equal(t, 2, res.Resolutions[0].Edit.StartLine)
	assert.Equal(t, 4, res.Resolutions[0].Edit.EndLine)
	assert.Empty(t, res.Applied)
	assert.Empty(t, res.Report)
	assert.Equal(t, calcSource, readFile(t, dir, "calc.go"))
}

func TestRun_Apply(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "calc.go", calcSource)

	res, err := newTestRunner(dir).Run(context.Background(), calcDiff, Options{Apply: true})
	require.NoError(t, err)

	require.Len(t, res.Applied, 1)
	assert.Equal(t, "calc.go", res.Applied[0].FilePath)
	assert.Zero(t, res.Skipped)
	assert.Empty(t, res.Errors)
	assert.Contains(t, readFile(t, dir, "calc.go"), "\treturn b + a\n")
	assert.Contains(t, readFile(t, dir, "calc.go"), "\treturn a - b\n")
}

func TestRun_DryRunLeavesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "calc.go", calcSource)

	res, err := newTestRunner(dir).Run(context.Background(), calcDiff, Options{Apply: true, DryRun: true})
	require.NoError(t, err)

	require.NotNil(t, res.Preview)
	assert.Contains(t, res.Preview.Patch, "+\treturn b + a")
	assert.Equal(t, 1, res.Preview.Stats.Files)
	assert.Empty(t, res.Applied)
	assert.Equal(t, calcSource, readFile(t, dir, "calc.go"))
}

func TestRun_NestedPathFromWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/calc/calc.go", calcSource)
	writeFile(t, dir, "node_modules/calc.go", "ignored\n")

	diff := `--- a/pkg/calc/calc.go
+++ b/pkg/calc/calc.go
@@ -3,3 +3,3 @@
 func Add(a, b int) int {
-	return a + b
+	return b + a
 }
`
	res, err := newTestRunner(dir).Run(context.Background(), diff, Options{Apply: true})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, "pkg/calc/calc.go", res.Applied[0].FilePath)
}

func TestRun_LowConfidenceSkippedUnlessForced(t *testing.T) {
	diff := `--- a/calc.go
+++ b/calc.go
@@ -1,1 +1,1 @@
-completely unrelated text that is nowhere in the file
+replacement
`
	t.Run("skipped", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "calc.go", calcSource)

		res, err := newTestRunner(dir).Run(context.Background(), diff, Options{Apply: true})
		require.NoError(t, err)

		require.Len(t, res.Resolutions, 1)
		assert.ErrorIs(t, res.Resolutions[0].Err, types.ErrLowConfidence)
		assert.Empty(t, res.Applied)
		assert.Equal(t, 1, res.Skipped)
		assert.Contains(t, res.Report, "### Change 1: calc.go")
		assert.Contains(t, res.Report, "Closest region")
		assert.Equal(t, calcSource, readFile(t, dir, "calc.go"))
	})

	t.Run("forced", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "calc.go", calcSource)

		res, err := newTestRunner(dir).Run(context.Background(), diff, Options{Apply: true, Force: true})
		require.NoError(t, err)

		require.Len(t, res.Applied, 1)
		assert.Zero(t, res.Skipped)
		assert.Contains(t, readFile(t, dir, "calc.go"), "replacement")
	})
}

func TestRun_NoEditsIsWarning(t *testing.T) {
	res, err := newTestRunner(t.TempDir()).Run(context.Background(), "Nothing to change here.", Options{Apply: true})
	require.NoError(t, err)
	assert.Empty(t, res.Resolutions)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no edit blocks")
}

func TestRun_MissingFileReported(t *testing.T) {
	dir := t.TempDir()

	res, err := newTestRunner(dir).Run(context.Background(), calcDiff, Options{Apply: true})
	require.NoError(t, err)

	require.Len(t, res.Resolutions, 1)
	assert.ErrorIs(t, res.Resolutions[0].Err, types.ErrFileUnavailable)
	assert.Empty(t, res.Applied)
	assert.Contains(t, res.Report, "Check the path")
}

func TestRun_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "calc.go", calcSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(dir).Run(ctx, calcDiff, Options{Apply: true})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, calcSource, readFile(t, dir, "calc.go"))
}

func TestRun_AutoCommit(t *testing.T) {
	dir := t.TempDir()
	r, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	writeFile(t, dir, "calc.go", calcSource)
	wt, err := r.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("calc.go")
	require.NoError(t, err)
	_, err = wt.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@test.com", When: time.Now()},
	})
	require.NoError(t, err)

	runner := NewRunner(Deps{WorkDir: dir, UseGit: true, AutoCommit: true})
	res, err := runner.Run(context.Background(), calcDiff, Options{Apply: true, CommitMessage: "Fix operand order"})
	require.NoError(t, err)

	require.Len(t, res.Applied, 1)
	assert.Len(t, res.Commit, 40)

	head, err := r.Head()
	require.NoError(t, err)
	commit, err := r.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Contains(t, commit.Message, "fix: fix operand order")
}

func TestSelectEdits(t *testing.T) {
	edit := func(start int) *types.ResolvedEdit {
		return &types.ResolvedEdit{FilePath: "a.go", StartLine: start, EndLine: start}
	}
	resolutions := []types.Resolution{
		{Edit: edit(0)},
		{Edit: edit(2), Err: &types.LowConfidenceError{Path: "a.go"}},
		{Edit: edit(0), Err: &types.ConflictError{Path: "a.go", Other: 0}},
		{Err: &types.FileUnavailableError{Path: "b.go"}},
	}

	assert.Len(t, selectEdits(resolutions, false), 1)

	forced := selectEdits(resolutions, true)
	require.Len(t, forced, 2)
	assert.Equal(t, 2, forced[1].StartLine)
}

func TestWalkFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "internal/app/app.go", "package app\n")
	writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main\n")
	writeFile(t, dir, "vendor/x/x.go", "package x\n")

	files, err := newTestRunner(dir).walkFiles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "internal/app/app.go"}, files)
}

func TestRun_ReportsIntroducedSyntaxErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "calc.go", calcSource)

	diff := `+++ calc.go
 func Add(a, b int) int {
-	return a + b
+	return (a + b
 }
`
	runner := NewRunner(Deps{WorkDir: dir, CheckSyntax: true})
	res, err := runner.Run(context.Background(), diff, Options{Apply: true})
	require.NoError(t, err)

	require.Len(t, res.Applied, 1)
	require.Len(t, res.Syntax, 1)
	assert.Equal(t, "calc.go", res.Syntax[0].Path)
	assert.NotEmpty(t, res.Syntax[0].Problems)
	assert.Contains(t, res.Report, "## Syntax Errors")
	assert.Contains(t, res.Report, "- calc.go:")
}

func TestRun_IgnoresPreexistingSyntaxErrors(t *testing.T) {
	dir := t.TempDir()
	broken := calcSource + "\nfunc Broken( {\n"
	writeFile(t, dir, "calc.go", broken)

	runner := NewRunner(Deps{WorkDir: dir, CheckSyntax: true})
	res, err := runner.Run(context.Background(), calcDiff, Options{Apply: true})
	require.NoError(t, err)

	require.Len(t, res.Applied, 1)
	assert.Empty(t, res.Syntax)
}

func TestRun_RejectsPathsOutsideWorkDir(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "work")
	writeFile(t, dir, "keep.txt", "keep\n")
	abs := filepath.Join(parent, "abs.txt")

	response := "+++ ../escaped.txt\n@@ @@\n+owned\n" +
		"+++ " + abs + "\n@@ @@\n+owned\n"

	res, err := newTestRunner(dir).Run(context.Background(), response, Options{Apply: true})
	require.NoError(t, err)

	require.Len(t, res.Resolutions, 2)
	for _, r := range res.Resolutions {
		assert.Nil(t, r.Edit)
		assert.ErrorIs(t, r.Err, types.ErrMalformedDiff)
	}
	assert.Empty(t, res.Applied)

	for _, p := range []string{filepath.Join(parent, "escaped.txt"), abs} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s was created", p)
	}
}

func TestReader_ConfinedToWorkDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a\n")
	read := newTestRunner(dir).reader(context.Background())

	got, err := read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a\n", got)

	for _, p := range []string{"../a.txt", "sub/../../a.txt", filepath.Join(dir, "a.txt")} {
		_, err := read(p)
		assert.ErrorIs(t, err, editor.ErrOutsideRoot, p)
	}
}
