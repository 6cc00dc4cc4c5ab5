// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package patcher

import (
	"github.com/petar-djukic/go-fuzzpatch/internal/editformat"
	"github.com/petar-djukic/go-fuzzpatch/internal/editor"
	"github.com/petar-djukic/go-fuzzpatch/internal/resolver"
	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

// ParseDiff segments diff text into per-hunk changes. Hunks seen before any
// +++ header are returned with an empty FilePath.
func ParseDiff(diffText string) []types.RawChange {
	return editformat.ParseDiff(diffText)
}

// FindBestMatch returns the region of document most similar to query,
// using the default tolerance and boundary weight.
func FindBestMatch(query, document string) types.MatchResult {
	return editor.FindBestMatch(query, document)
}

// ResolveChanges grounds every change using read to load files and list to
// enumerate candidate paths, with default settings. It returns one
// Resolution per change, in input order.
func ResolveChanges(changes []types.RawChange, read func(path string) (string, error), list func() ([]string, error)) []types.Resolution {
	return resolver.New(resolver.Config{}).Resolve(changes, read, list)
}
