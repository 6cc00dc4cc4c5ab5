// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/petar-djukic/go-fuzzpatch/internal/editor"
)

const maxSubjectLength = 72

// commitTypes maps summary keywords to conventional commit types.
var commitTypes = []struct {
	keywords []string
	prefix   string
}{
	{[]string{"fix", "bug", "repair", "patch", "resolve", "correct"}, "fix"},
	{[]string{"refactor", "restructure", "reorganize", "clean up", "simplify", "rename"}, "refactor"},
	{[]string{"test", "coverage"}, "test"},
	{[]string{"doc", "comment", "readme", "documentation"}, "docs"},
	{[]string{"style", "format", "lint", "whitespace"}, "style"},
	{[]string{"perf", "performance", "optimize", "speed"}, "perf"},
	{[]string{"build", "dependency", "deps", "module"}, "build"},
	{[]string{"add", "create", "implement", "new", "feature", "introduce"}, "feat"},
}

// GenerateMessage builds a conventional commit message for a batch of
// applied edits. The subject comes from summary when one is given and from
// the edit counts otherwise; the body lists every touched file.
func GenerateMessage(summary string, results []*editor.ApplyResult) string {
	msg := buildSubject(summary, results)
	if body := buildBody(results); body != "" {
		msg += "\n\n" + body
	}
	return msg + "\n\n" + appliedByTrailer
}

// inferCommitType picks the conventional commit type from summary keywords.
// Edits without a recognizable intent are chores.
func inferCommitType(summary string) string {
	lower := strings.ToLower(summary)
	for _, ct := range commitTypes {
		for _, kw := range ct.keywords {
			if containsWord(lower, kw) {
				return ct.prefix
			}
		}
	}
	return "chore"
}

// containsWord checks whether text contains keyword as a whole word
// (bounded by non-letter characters or string edges). For multi-word
// keywords like "clean up", it falls back to substring matching.
func containsWord(text, keyword string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(text, keyword)
	}
	idx := 0
	for {
		i := strings.Index(text[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		leftOK := start == 0 || !unicode.IsLetter(rune(text[start-1]))
		rightOK := end == len(text) || !unicode.IsLetter(rune(text[end]))
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

// buildSubject creates the first line, at most maxSubjectLength bytes.
func buildSubject(summary string, results []*editor.ApplyResult) string {
	summary = strings.TrimRight(strings.TrimSpace(summary), ".")
	if summary == "" {
		summary = fmt.Sprintf("apply %s to %s",
			plural(totalEdits(results), "edit"), plural(len(results), "file"))
	} else {
		summary = strings.ToLower(summary[:1]) + summary[1:]
	}

	subject := fmt.Sprintf("%s: %s", inferCommitType(summary), summary)
	if len(subject) > maxSubjectLength {
		subject = subject[:maxSubjectLength-3] + "..."
	}
	return subject
}

func buildBody(results []*editor.ApplyResult) string {
	if len(results) == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString("Edited files:\n")
	for _, r := range results {
		note := plural(r.Edits, "edit")
		if r.Created {
			note += ", new file"
		}
		fmt.Fprintf(&buf, "- %s (%s)\n", r.FilePath, note)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func totalEdits(results []*editor.ApplyResult) int {
	n := 0
	for _, r := range results {
		n += r.Edits
	}
	return n
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
