// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package git lists the files of a repository for path resolution and
// records applied edits as commits that can be undone.
package git

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	appliedByTrailer = "Applied-By: fuzzpatch"
	dirtyCommitMsg   = "fuzzpatch: save uncommitted changes before applying edits"
)

// ErrNotPatchCommit is returned when undo targets a commit fuzzpatch did not make.
var ErrNotPatchCommit = errors.New("HEAD is not a fuzzpatch commit")

// ErrDirtyWorkTree is returned when uncommitted changes exist and DirtyCommit is false.
var ErrDirtyWorkTree = errors.New("uncommitted changes exist")

// ErrNoGit is returned when the working directory is not a git repository.
var ErrNoGit = errors.New("not a git repository")

// Config configures git integration behavior.
type Config struct {
	WorkDir     string // Repository working directory
	AutoCommit  bool   // Commit the files an apply touched
	DirtyCommit bool   // Commit pre-existing changes before an apply
}

// Repo wraps a go-git repository for the operations we need.
type Repo struct {
	repo *gogit.Repository
	cfg  Config
}

// Open opens an existing git repository at the configured work directory.
// Returns ErrNoGit if the directory is not a git repository.
func Open(cfg Config) (*Repo, error) {
	r, err := gogit.PlainOpen(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	return &Repo{repo: r, cfg: cfg}, nil
}

// ListFiles returns the slash-separated paths of every tracked file plus
// every untracked file that .gitignore does not exclude, sorted. Files
// deleted from the work tree are left out.
func (r *Repo) ListFiles() ([]string, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	seen := make(map[string]bool, len(idx.Entries))
	var files []string
	for _, e := range idx.Entries {
		if s, ok := status[e.Name]; ok && s.Worktree == gogit.Deleted {
			continue
		}
		seen[e.Name] = true
		files = append(files, e.Name)
	}
	for path, s := range status {
		if s.Worktree == gogit.Untracked && !seen[path] {
			files = append(files, path)
		}
	}

	sort.Strings(files)
	return files, nil
}

// IsDirty returns true if the working tree has uncommitted changes
// (either staged or unstaged).
func (r *Repo) IsDirty() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("getting status: %w", err)
	}

	return !status.IsClean(), nil
}

// IsPatchCommit reports whether HEAD carries the fuzzpatch trailer.
func (r *Repo) IsPatchCommit() (bool, error) {
	msg, err := r.lastCommitMessage()
	if err != nil {
		return false, err
	}
	return strings.Contains(msg, appliedByTrailer), nil
}

// lastCommitMessage returns the message of the HEAD commit.
func (r *Repo) lastCommitMessage() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("getting commit: %w", err)
	}
	return commit.Message, nil
}

// commitCount returns the total number of commits reachable from HEAD.
func (r *Repo) commitCount() (int, error) {
	iter, err := r.repo.Log(&gogit.LogOptions{})
	if err != nil {
		return 0, err
	}
	count := 0
	err = iter.ForEach(func(c *object.Commit) error {
		count++
		return nil
	})
	return count, err
}
