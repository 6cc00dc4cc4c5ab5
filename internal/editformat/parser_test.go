// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

func TestParseSearchReplace_SingleBlock(t *testing.T) {
	response := `Here is the fix:

internal/editor/apply.go
<<<<<<< SEARCH
func Apply(path string) error {
    return nil
}
=======
func Apply(path string) error {
    return applyEdit(path)
}
>>>>>>> REPLACE`

	result, err := ParseSearchReplace(response)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, FormatSearchReplace, result.Format)

	c := result.Changes[0]
	assert.Equal(t, "internal/editor/apply.go", c.FilePath)
	assert.Equal(t, "func Apply(path string) error {\n    return nil\n}", c.Query())
	assert.Equal(t, "func Apply(path string) error {\n    return applyEdit(path)\n}", c.NewText())
	assert.True(t, c.HasRemovals())
	for _, l := range c.NewLines {
		assert.Equal(t, types.Added, l.Kind)
	}
	assert.Contains(t, result.ReasoningText, "Here is the fix")
}

func TestParseSearchReplace_MultipleBlocks(t *testing.T) {
	response := `I will update three files:

pkg/types/edit.go
<<<<<<< SEARCH
type Edit struct{}
=======
type Edit struct {
    FilePath string
}
>>>>>>> REPLACE

internal/editor/apply.go
<<<<<<< SEARCH
return nil
=======
return applyEdit(path)
>>>>>>> REPLACE

config.yaml
<<<<<<< SEARCH
timeout: 30
=======
timeout: 60
>>>>>>> REPLACE`

	result, err := ParseSearchReplace(response)
	require.NoError(t, err)
	require.Len(t, result.Changes, 3)
	assert.Equal(t, "pkg/types/edit.go", result.Changes[0].FilePath)
	assert.Equal(t, "internal/editor/apply.go", result.Changes[1].FilePath)
	assert.Equal(t, "config.yaml", result.Changes[2].FilePath)
	assert.Empty(t, result.Warnings)
	assert.NotEmpty(t, result.ReasoningText)
}

func TestParseSearchReplace_MarkdownFences(t *testing.T) {
	response := "Here is the change:\n\n```\ninternal/editor/apply.go\n<<<<<<< SEARCH\nreturn nil\n=======\nreturn applyEdit(path)\n>>>>>>> REPLACE\n```"

	result, err := ParseSearchReplace(response)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, "internal/editor/apply.go", result.Changes[0].FilePath)
	assert.Equal(t, "return nil", result.Changes[0].Query())
	assert.Equal(t, "return applyEdit(path)", result.Changes[0].NewText())
}

func TestParseSearchReplace_EmptyReplacement(t *testing.T) {
	response := `file.go
<<<<<<< SEARCH
dead code
=======
>>>>>>> REPLACE`

	result, err := ParseSearchReplace(response)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, "dead code", result.Changes[0].Query())
	assert.Empty(t, result.Changes[0].NewLines)
}

func TestParseSearchReplace_EmptySearchIsInsertion(t *testing.T) {
	response := `file.go
<<<<<<< SEARCH
=======
new content
>>>>>>> REPLACE`

	result, err := ParseSearchReplace(response)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Empty(t, result.Changes[0].Query())
	assert.Equal(t, "new content", result.Changes[0].NewText())
}

func TestParseSearchReplace_MissingReplace(t *testing.T) {
	response := `internal/editor/apply.go
<<<<<<< SEARCH
return nil
=======
return applyEdit(path)`

	result, err := ParseSearchReplace(response)
	require.NoError(t, err)
	assert.Empty(t, result.Changes)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "unclosed block")
	assert.Contains(t, result.Warnings[0].RawText, "return nil")
	assert.Equal(t, 2, result.Warnings[0].Position)
	assert.ErrorIs(t, result.Warnings[0], types.ErrMalformedDiff)
}

func TestParseSearchReplace_MissingDivider(t *testing.T) {
	response := `file.go
<<<<<<< SEARCH
some content`

	result, err := ParseSearchReplace(response)
	require.NoError(t, err)
	assert.Empty(t, result.Changes)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "divider")
}

func TestParseSearchReplace_MissingPath(t *testing.T) {
	response := "<<<<<<< SEARCH\na\n=======\nb\n>>>>>>> REPLACE"

	result, err := ParseSearchReplace(response)
	require.NoError(t, err)
	assert.Empty(t, result.Changes)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "missing file path")
}

func TestParseSearchReplace_NoBlocks(t *testing.T) {
	for _, response := range []string{"", "This is just reasoning text with no edit blocks."} {
		_, err := ParseSearchReplace(response)
		require.Error(t, err)
		assert.IsType(t, &NoEditsFoundError{}, err)
		assert.ErrorIs(t, err, types.ErrMalformedDiff)
	}
}

func TestParseSearchReplace_Reasoning(t *testing.T) {
	response := `Let me explain the change.

First, we need to update the config:

config.yaml
<<<<<<< SEARCH
timeout: 30
=======
timeout: 60
>>>>>>> REPLACE

And that should fix the issue.`

	result, err := ParseSearchReplace(response)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Contains(t, result.ReasoningText, "explain the change")
	assert.Contains(t, result.ReasoningText, "fix the issue")
	assert.NotContains(t, result.ReasoningText, "config.yaml")
}

func TestExtractFilePath(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{line: "main.go", want: "main.go"},
		{line: "  `cmd/app/main.go`  ", want: "cmd/app/main.go"},
		{line: "```go", want: ""},
		{line: "Here is the edit", want: ""},
		{line: "docs/my notes.md", want: "docs/my notes.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractFilePath(tt.line), "line %q", tt.line)
	}
}
