// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block from a markdown reply.
type CodeBlock struct {
	Lang    string // Info string of the fence, e.g. "diff"
	Content string // Raw text inside the fence
}

// ExtractCodeBlocks walks the markdown AST of source and returns every
// fenced code block in document order.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	err := ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		if fenced.Info != nil {
			block.Lang = strings.TrimSpace(string(fenced.Info.Segment.Value(source)))
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			content.Write(seg.Value(source))
		}
		block.Content = content.String()

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// ExtractDiffBlocks returns the contents of the fenced blocks in a markdown
// reply that hold diffs: blocks tagged diff or patch, and untagged-language
// blocks that contain a "+++" header or an "@@" hunk marker.
func ExtractDiffBlocks(markdown string) ([]string, error) {
	blocks, err := ExtractCodeBlocks([]byte(markdown))
	if err != nil {
		return nil, err
	}

	var diffs []string
	for _, b := range blocks {
		if isDiffBlock(b) {
			diffs = append(diffs, b.Content)
		}
	}
	return diffs, nil
}

func isDiffBlock(b CodeBlock) bool {
	if f := strings.Fields(b.Lang); len(f) > 0 {
		switch strings.ToLower(f[0]) {
		case "diff", "patch", "udiff":
			return true
		}
	}
	return looksLikeDiff(b.Content)
}

// looksLikeDiff reports whether s has a "+++" file header or a hunk marker.
func looksLikeDiff(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(strings.TrimSpace(line), "@@") {
			return true
		}
	}
	return false
}
