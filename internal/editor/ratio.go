// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Ratio returns the similarity of a and b as a percentage in [0, 100]:
// twice the number of characters in the optimal alignment divided by the
// combined length of both strings. Two empty strings are identical (100);
// one empty string shares nothing with a non-empty one (0).
func Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	dmp := diffmatchpatch.New()
	// A timeout would trade the optimal alignment for speed and make
	// scores depend on machine load.
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMain(a, b, false)

	matched := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			matched += utf8.RuneCountInString(d.Text)
		}
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	return 200 * float64(matched) / float64(total)
}

// TokenSortRatio compares two strings after lowercasing, replacing every
// non-alphanumeric rune with a space, and sorting the resulting tokens. It is
// insensitive to token order and punctuation, which suits file paths.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(fields)
	return strings.Join(fields, " ")
}
