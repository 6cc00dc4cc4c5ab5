// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the resolution taxonomy. The typed errors below
// unwrap to these so callers can use errors.Is.
var (
	ErrMalformedDiff   = errors.New("malformed diff")
	ErrFileUnavailable = errors.New("file unavailable")
	ErrLowConfidence   = errors.New("low confidence match")
	ErrEditConflict    = errors.New("conflicting edit")
	ErrStaleEdit       = errors.New("file changed since edit was resolved")
	ErrOutsideWorkDir  = errors.New("path leaves the work directory")
)

// FileUnavailableError reports that the resolved path could not be read.
type FileUnavailableError struct {
	Path string
	Err  error
}

func (e *FileUnavailableError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *FileUnavailableError) Unwrap() []error {
	return []error{ErrFileUnavailable, e.Err}
}

// LowConfidenceError describes a match whose score fell below the caller's
// threshold, or that lacks lines the change removes, with enough detail to
// show the user where the best candidate was.
type LowConfidenceError struct {
	Path      string
	Score     float64
	Threshold float64
	StartLine int // 0-based, inclusive
	EndLine   int // 0-based, inclusive
	Missing   int // Removed lines not found in the match
}

func (e *LowConfidenceError) Error() string {
	if e.Missing > 0 && e.Score >= e.Threshold {
		return fmt.Sprintf("%d removed lines not found in %s lines %d-%d (score %.1f)",
			e.Missing, e.Path, e.StartLine+1, e.EndLine+1, e.Score)
	}
	return fmt.Sprintf("no confident match in %s (closest match at lines %d-%d, score %.1f < %.1f)",
		e.Path, e.StartLine+1, e.EndLine+1, e.Score, e.Threshold)
}

func (e *LowConfidenceError) Unwrap() error { return ErrLowConfidence }

// ConflictError reports that an edit overlaps an earlier edit to the same file.
type ConflictError struct {
	Path  string
	Other int // Index of the earlier change the edit collides with
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("edit to %s overlaps change %d", e.Path, e.Other)
}

func (e *ConflictError) Unwrap() error { return ErrEditConflict }
