// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package patcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	gitpkg "github.com/petar-djukic/go-fuzzpatch/internal/git"
	"github.com/petar-djukic/go-fuzzpatch/internal/pipeline"
	"github.com/petar-djukic/go-fuzzpatch/internal/resolver"
)

// New validates the config and returns a ready-to-use Patcher. It does not
// read the work directory; that happens per call.
func New(cfg Config) (Patcher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	applyDefaults(&cfg)

	runner := pipeline.NewRunner(pipeline.Deps{
		WorkDir:  cfg.WorkDir,
		Resolver: resolver.Config{
			PathThreshold: cfg.PathThreshold,
			MinScore:      cfg.MinScore,
			Tolerance:     cfg.Tolerance,
			Concurrency:   cfg.Concurrency,
		},
		UseGit:      cfg.UseGit,
		AutoCommit:  cfg.AutoCommit,
		CheckSyntax: !cfg.SkipSyntax,
		Logger:      cfg.Logger,
	})

	return &patcherAdapter{runner: runner, cfg: cfg}, nil
}

// patcherAdapter adapts pipeline.Runner to the public Patcher interface.
type patcherAdapter struct {
	runner *pipeline.Runner
	cfg    Config
}

func (a *patcherAdapter) Resolve(ctx context.Context, response string) (*Result, error) {
	return a.run(ctx, response, pipeline.Options{})
}

func (a *patcherAdapter) Apply(ctx context.Context, response string, opts ApplyOptions) (*Result, error) {
	return a.run(ctx, response, pipeline.Options{
		Apply:         true,
		DryRun:        opts.DryRun,
		Force:         opts.Force,
		CommitMessage: opts.CommitMessage,
	})
}

func (a *patcherAdapter) Undo() error {
	if !a.cfg.UseGit {
		return fmt.Errorf("%w: git is disabled", ErrNoGit)
	}
	repo, err := gitpkg.Open(gitpkg.Config{WorkDir: a.cfg.WorkDir})
	if err != nil {
		return err
	}
	if err := repo.Undo(); err != nil {
		return err
	}
	a.cfg.Logger.Info("undid last fuzzpatch commit", "workdir", a.cfg.WorkDir)
	return nil
}

func (a *patcherAdapter) run(ctx context.Context, response string, opts pipeline.Options) (*Result, error) {
	rr, err := a.runner.Run(ctx, response, opts)
	if rr == nil {
		return &Result{}, err
	}
	return convertResult(rr), err
}

func convertResult(rr *pipeline.RunResult) *Result {
	r := &Result{
		Format:      rr.Format.String(),
		Resolutions: rr.Resolutions,
		Warnings:    rr.Warnings,
		Skipped:     rr.Skipped,
		Commit:      rr.Commit,
		Errors:      rr.Errors,
		Report:      rr.Report,
	}
	for _, f := range rr.Syntax {
		for _, p := range f.Problems {
			r.SyntaxErrors = append(r.SyntaxErrors, fmt.Sprintf("%s:%s", f.Path, p))
		}
	}
	for _, a := range rr.Applied {
		r.Applied = append(r.Applied, AppliedFile{Path: a.FilePath, Edits: a.Edits, Created: a.Created})
	}
	if p := rr.Preview; p != nil {
		r.Preview = &Preview{
			Patch:   p.Patch,
			Files:   p.Stats.Files,
			Hunks:   p.Stats.Hunks,
			Added:   p.Stats.Added,
			Changed: p.Stats.Changed,
			Deleted: p.Stats.Deleted,
		}
	}
	return r
}

// validateConfig checks that required fields are present and sane.
func validateConfig(cfg Config) error {
	if cfg.WorkDir == "" {
		return fmt.Errorf("WorkDir is required")
	}
	if info, err := os.Stat(cfg.WorkDir); err != nil || !info.IsDir() {
		return fmt.Errorf("WorkDir %q does not exist or is not a directory", cfg.WorkDir)
	}
	if cfg.Tolerance < 0 {
		return fmt.Errorf("Tolerance must not be negative, got %d", cfg.Tolerance)
	}
	if cfg.PathThreshold < 0 || cfg.PathThreshold > 100 {
		return fmt.Errorf("PathThreshold must be within 0-100, got %g", cfg.PathThreshold)
	}
	if cfg.AutoCommit && !cfg.UseGit {
		return fmt.Errorf("AutoCommit requires UseGit")
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.PathThreshold == 0 {
		cfg.PathThreshold = resolver.DefaultPathThreshold
	}
	if cfg.MinScore == 0 {
		cfg.MinScore = resolver.DefaultMinScore
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
}
