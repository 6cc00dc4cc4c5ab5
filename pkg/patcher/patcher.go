// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package patcher is the public interface of go-fuzzpatch. It grounds
// LLM-authored diffs against the real files of a work directory and
// optionally applies them.
package patcher

import (
	"context"
	"errors"
	"log/slog"

	gitpkg "github.com/petar-djukic/go-fuzzpatch/internal/git"
	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

// Error types for the Patcher API.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrNoGit          = gitpkg.ErrNoGit
	ErrNotPatchCommit = gitpkg.ErrNotPatchCommit
)

// Config configures a Patcher instance. Zero numeric fields take their
// defaults; see the field comments for how to get the behavior a literal
// zero would mean.
type Config struct {
	WorkDir       string       // Root the diff paths are relative to (required); paths may not leave it
	PathThreshold float64      // Minimum token-sort ratio for a fuzzy path match (default 90; 0 means default)
	MinScore      float64      // Minimum grounding score to accept an edit (default 420; 0 means default, negative accepts all)
	Tolerance     int          // Window length slack around the query length (default 5; 0 means default, exact-length matching is not available here)
	Concurrency   int          // Changes resolved in parallel (default GOMAXPROCS)
	UseGit        bool         // List files through git when WorkDir is a repository
	AutoCommit    bool         // Commit applied files; requires UseGit
	SkipSyntax    bool         // Do not parse applied files for new syntax errors
	Logger        *slog.Logger // nil discards logs
}

// ApplyOptions controls Patcher.Apply.
type ApplyOptions struct {
	DryRun        bool   // Compute the preview without writing files
	Force         bool   // Also apply low-confidence edits
	CommitMessage string // Auto-commit summary; generated when empty
}

// AppliedFile describes one file written by Apply.
type AppliedFile struct {
	Path    string `json:"path"`
	Edits   int    `json:"edits"`
	Created bool   `json:"created"`
}

// Preview is the unified diff a dry run would write.
type Preview struct {
	Patch   string `json:"patch"`
	Files   int    `json:"files"`
	Hunks   int    `json:"hunks"`
	Added   int    `json:"added"`
	Changed int    `json:"changed"`
	Deleted int    `json:"deleted"`
}

// Result holds the outcome of a Resolve or Apply invocation.
type Result struct {
	Format       string             // Detected response format
	Resolutions  []types.Resolution // One per parsed change, in response order
	Warnings     []string           // Malformed blocks that were skipped
	Applied      []AppliedFile      // Files written (Apply only)
	Skipped      int                // Changes not applied (Apply only)
	Preview      *Preview           // Set by a dry run
	SyntaxErrors []string           // "path:line:col: ..." for each syntax error an edit introduced
	Commit       string             // Auto-commit hash, if any
	Errors       []string           // Write and commit failures
	Report       string             // Follow-up message for rejected changes; empty when all grounded
}

// Success reports whether every change grounded, every file was written,
// and no written file gained a syntax error.
func (r *Result) Success() bool {
	if len(r.Errors) > 0 || len(r.SyntaxErrors) > 0 {
		return false
	}
	for _, res := range r.Resolutions {
		if !res.OK() {
			return false
		}
	}
	return true
}

// Patcher grounds and applies LLM edits against a work directory.
type Patcher interface {
	// Resolve parses response and grounds every change without touching
	// any file.
	Resolve(ctx context.Context, response string) (*Result, error)

	// Apply resolves response and writes the confident, non-conflicting
	// edits, committing them when AutoCommit is set.
	Apply(ctx context.Context, response string, opts ApplyOptions) (*Result, error)

	// Undo soft-resets the last commit made by Apply.
	Undo() error
}
