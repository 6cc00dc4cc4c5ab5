// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package syntax parses source files with tree-sitter and reports the
// nodes the grammar could not make sense of. It is used after applying
// edits to catch splices that left a file unparseable.
package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// maxProblems caps the problems reported per file.
const maxProblems = 10

// languages maps file extensions to their tree-sitter grammar.
var languages = map[string]*sitter.Language{
	".go":   golang.GetLanguage(),
	".py":   python.GetLanguage(),
	".js":   javascript.GetLanguage(),
	".mjs":  javascript.GetLanguage(),
	".ts":   typescript.GetLanguage(),
	".yaml": yaml.GetLanguage(),
	".yml":  yaml.GetLanguage(),
}

// Problem is one unparseable region of a file.
type Problem struct {
	Line    int    `json:"line"`   // 1-based
	Column  int    `json:"column"` // 1-based
	Missing bool   `json:"missing"`
	Node    string `json:"node"` // Grammar node type; the expected token when Missing
}

func (p Problem) String() string {
	if p.Missing {
		return fmt.Sprintf("%d:%d: missing %s", p.Line, p.Column, p.Node)
	}
	return fmt.Sprintf("%d:%d: syntax error", p.Line, p.Column)
}

// FileProblems groups the problems found in one file.
type FileProblems struct {
	Path     string    `json:"path"`
	Problems []Problem `json:"problems"`
}

// Supported reports whether path has a grammar.
func Supported(path string) bool {
	_, ok := languages[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Check parses content with the grammar for path's extension and returns
// its problems in document order. Unsupported files have no problems.
func Check(ctx context.Context, path string, content []byte) ([]Problem, error) {
	lang, ok := languages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, nil
	}

	root, err := sitter.ParseCtx(ctx, content, lang)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if !root.HasError() {
		return nil, nil
	}

	var problems []Problem
	collect(root, &problems)
	return problems, nil
}

// collect walks n depth-first and records ERROR and MISSING nodes. The
// children of an ERROR node are not visited.
func collect(n *sitter.Node, out *[]Problem) {
	if len(*out) >= maxProblems {
		return
	}
	if n.IsError() || n.IsMissing() {
		pt := n.StartPoint()
		*out = append(*out, Problem{
			Line:    int(pt.Row) + 1,
			Column:  int(pt.Column) + 1,
			Missing: n.IsMissing(),
			Node:    n.Type(),
		})
		return
	}
	if !n.HasError() {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collect(n.Child(i), out)
	}
}
