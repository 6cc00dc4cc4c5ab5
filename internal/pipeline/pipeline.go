// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeline wires the parser, resolver, editor, git and feedback
// packages into the parse, resolve, apply lifecycle over a work directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/petar-djukic/go-fuzzpatch/internal/editformat"
	"github.com/petar-djukic/go-fuzzpatch/internal/editor"
	"github.com/petar-djukic/go-fuzzpatch/internal/feedback"
	gitpkg "github.com/petar-djukic/go-fuzzpatch/internal/git"
	"github.com/petar-djukic/go-fuzzpatch/internal/resolver"
	"github.com/petar-djukic/go-fuzzpatch/internal/syntax"
	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

const reportContextLines = 5

// Deps holds the settings and collaborators of a Runner.
type Deps struct {
	WorkDir     string
	Resolver    resolver.Config
	UseGit      bool // List files and commit through git when WorkDir is a repository
	AutoCommit  bool // Commit applied files; requires UseGit
	CheckSyntax bool // Parse applied files and report new syntax errors
	Logger      *slog.Logger
}

// Options selects what Run does after resolution.
type Options struct {
	Apply         bool   // Write edits to disk
	DryRun        bool   // With Apply, compute the preview instead of writing
	Force         bool   // Also apply low-confidence edits
	CommitMessage string // Summary for the auto-commit; generated when empty
}

// RunResult holds the outcome of a Runner.Run invocation. pkg/patcher
// converts it to the public Result.
type RunResult struct {
	Format      editformat.Format
	Resolutions []types.Resolution
	Warnings    []string
	Applied     []*editor.ApplyResult
	Skipped     int
	Preview     *editor.PreviewResult
	Syntax      []syntax.FileProblems
	Commit      string
	Errors      []string
	Report      string
}

// Runner orchestrates one batch of edits.
type Runner struct {
	deps Deps
	log  *slog.Logger
}

// NewRunner creates a Runner with the given dependencies.
func NewRunner(deps Deps) *Runner {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	deps.Resolver.Logger = log
	return &Runner{deps: deps, log: log}
}

// Run parses response, grounds every change against WorkDir and, when
// opts.Apply is set, writes or previews the edits that are safe to apply.
// A response without edits is a no-op reported as a warning.
func (r *Runner) Run(ctx context.Context, response string, opts Options) (*RunResult, error) {
	result := &RunResult{}

	parsed, err := editformat.Parse(response)
	if err != nil {
		var none *editformat.NoEditsFoundError
		if errors.As(err, &none) {
			result.Warnings = append(result.Warnings, err.Error())
			return result, nil
		}
		return result, fmt.Errorf("parsing response: %w", err)
	}
	result.Format = parsed.Format
	for _, w := range parsed.Warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}
	r.log.Debug("parsed response", "format", parsed.Format.String(), "changes", len(parsed.Changes))

	if err := ctx.Err(); err != nil {
		return result, err
	}

	repo := r.openRepo()
	list := r.walkFiles
	if repo != nil {
		list = repo.ListFiles
	}
	read := r.reader(ctx)

	result.Resolutions = resolver.New(r.deps.Resolver).Resolve(parsed.Changes, read, list)

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if opts.Apply {
		if err := r.apply(ctx, result, repo, opts); err != nil {
			return result, err
		}
	}

	var applied []string
	for _, a := range result.Applied {
		applied = append(applied, a.FilePath)
	}
	result.Report = feedback.FormatReport(result.Resolutions, applied, read,
		feedback.FormatConfig{ContextLines: reportContextLines})
	result.Report += feedback.FormatSyntax(result.Syntax)

	return result, nil
}

func (r *Runner) apply(ctx context.Context, result *RunResult, repo *gitpkg.Repo, opts Options) error {
	edits := selectEdits(result.Resolutions, opts.Force)
	result.Skipped = len(result.Resolutions) - len(edits)
	ed := &editor.Editor{Root: r.deps.WorkDir}

	if opts.DryRun {
		preview, err := ed.Preview(edits)
		if err != nil {
			return fmt.Errorf("previewing edits: %w", err)
		}
		result.Preview = preview
		return nil
	}

	commit := repo != nil && r.deps.AutoCommit
	if commit {
		if err := repo.HandleDirty(); err != nil {
			return fmt.Errorf("handling dirty files: %w", err)
		}
	}

	var broken map[string]bool
	if r.deps.CheckSyntax {
		broken = r.brokenBefore(ctx, edits)
	}

	applied, errs := ed.Apply(edits)
	result.Applied = applied
	for _, e := range errs {
		r.log.Warn("apply failed", "error", e)
		result.Errors = append(result.Errors, e.Error())
	}

	if r.deps.CheckSyntax {
		result.Syntax = r.checkApplied(ctx, applied, broken)
	}

	if commit && len(applied) > 0 {
		hash, err := repo.AutoCommit(applied, opts.CommitMessage)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("auto-commit failed: %v", err))
		}
		result.Commit = hash
	}
	return nil
}

// brokenBefore returns the edited files that already fail to parse, so
// their problems are not blamed on the edits.
func (r *Runner) brokenBefore(ctx context.Context, edits []types.ResolvedEdit) map[string]bool {
	read := r.reader(ctx)
	broken := make(map[string]bool)
	for _, e := range edits {
		if _, seen := broken[e.FilePath]; seen || !syntax.Supported(e.FilePath) {
			continue
		}
		content, err := read(e.FilePath)
		if err != nil {
			broken[e.FilePath] = false
			continue
		}
		problems, err := syntax.Check(ctx, e.FilePath, []byte(content))
		broken[e.FilePath] = err != nil || len(problems) > 0
	}
	return broken
}

// checkApplied parses every written file that parsed cleanly before.
func (r *Runner) checkApplied(ctx context.Context, applied []*editor.ApplyResult, broken map[string]bool) []syntax.FileProblems {
	read := r.reader(ctx)
	var out []syntax.FileProblems
	for _, a := range applied {
		if broken[a.FilePath] || !syntax.Supported(a.FilePath) {
			continue
		}
		content, err := read(a.FilePath)
		if err != nil {
			continue
		}
		problems, err := syntax.Check(ctx, a.FilePath, []byte(content))
		if err != nil {
			r.log.Debug("syntax check failed", "file", a.FilePath, "error", err)
			continue
		}
		if len(problems) > 0 {
			r.log.Warn("edit introduced syntax errors", "file", a.FilePath, "problems", len(problems))
			out = append(out, syntax.FileProblems{Path: a.FilePath, Problems: problems})
		}
	}
	return out
}

// selectEdits returns the edits safe to apply: every OK resolution, plus
// low-confidence ones when force is set. Conflicts are never applied.
func selectEdits(resolutions []types.Resolution, force bool) []types.ResolvedEdit {
	var edits []types.ResolvedEdit
	for _, res := range resolutions {
		if res.Edit == nil {
			continue
		}
		if res.OK() || (force && errors.Is(res.Err, types.ErrLowConfidence)) {
			edits = append(edits, *res.Edit)
		}
	}
	return edits
}

// openRepo returns the git repository at WorkDir, or nil when git is off or
// WorkDir is not a repository.
func (r *Runner) openRepo() *gitpkg.Repo {
	if !r.deps.UseGit {
		return nil
	}
	repo, err := gitpkg.Open(gitpkg.Config{
		WorkDir:     r.deps.WorkDir,
		AutoCommit:  r.deps.AutoCommit,
		DirtyCommit: true,
	})
	if err != nil {
		if r.deps.AutoCommit {
			r.log.Warn("git unavailable; edits will not be committed", "error", err)
		} else {
			r.log.Debug("git unavailable; listing files from disk", "error", err)
		}
		return nil
	}
	return repo
}

// reader returns a FileReader rooted at WorkDir that stops once ctx is done.
func (r *Runner) reader(ctx context.Context) resolver.FileReader {
	return func(path string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		full, err := editor.JoinRoot(r.deps.WorkDir, path)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// walkFiles lists regular files under WorkDir as slash-separated relative
// paths, skipping VCS and dependency directories.
func (r *Runner) walkFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.deps.WorkDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules":
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(r.deps.WorkDir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}
