// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/petar-djukic/go-fuzzpatch/internal/editor"
)

const (
	authorName  = "fuzzpatch"
	authorEmail = "noreply@fuzzpatch"
)

func signature() *object.Signature {
	return &object.Signature{Name: authorName, Email: authorEmail, When: time.Now()}
}

// HandleDirty checks for uncommitted changes and either commits them
// separately or returns ErrDirtyWorkTree, depending on Config.DirtyCommit.
// It keeps the user's own work out of the commit that records the edits.
func (r *Repo) HandleDirty() error {
	dirty, err := r.IsDirty()
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	if !r.cfg.DirtyCommit {
		return ErrDirtyWorkTree
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if _, err := wt.Add("."); err != nil {
		return fmt.Errorf("staging dirty files: %w", err)
	}
	if _, err := wt.Commit(dirtyCommitMsg, &gogit.CommitOptions{Author: signature()}); err != nil {
		return fmt.Errorf("committing dirty files: %w", err)
	}
	return nil
}

// AutoCommit stages exactly the files in results and commits them with a
// message generated from summary. It returns the new commit hash, or ""
// when AutoCommit is disabled or there is nothing to commit.
func (r *Repo) AutoCommit(results []*editor.ApplyResult, summary string) (string, error) {
	if !r.cfg.AutoCommit || len(results) == 0 {
		return "", nil
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	for _, res := range results {
		if _, err := wt.Add(res.FilePath); err != nil {
			return "", fmt.Errorf("staging %s: %w", res.FilePath, err)
		}
	}

	hash, err := wt.Commit(GenerateMessage(summary, results), &gogit.CommitOptions{Author: signature()})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// Undo reverts the last commit if fuzzpatch made it. The reset is soft, so
// the edited content stays staged in the work tree.
func (r *Repo) Undo() error {
	ok, err := r.IsPatchCommit()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotPatchCommit
	}

	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("getting HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("getting commit: %w", err)
	}
	if commit.NumParents() == 0 {
		return fmt.Errorf("cannot undo: HEAD is the initial commit")
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return fmt.Errorf("getting parent commit: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := wt.Reset(&gogit.ResetOptions{Commit: parent.Hash, Mode: gogit.SoftReset}); err != nil {
		return fmt.Errorf("resetting to parent: %w", err)
	}
	return nil
}
