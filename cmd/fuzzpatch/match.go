// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/go-fuzzpatch/internal/editor"
)

// newMatchCmd creates the "match" command.
func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find the region of a document most similar to a snippet",
		Long:  "Match prints the best matching line range, its score and the matched text as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			queryPath, _ := cmd.Flags().GetString("query")
			docPath, _ := cmd.Flags().GetString("document")

			query, err := os.ReadFile(queryPath)
			if err != nil {
				return fmt.Errorf("reading query: %w", err)
			}
			document, err := os.ReadFile(docPath)
			if err != nil {
				return fmt.Errorf("reading document: %w", err)
			}

			tolerance := viper.GetInt("tolerance")
			if tolerance < 0 {
				return fmt.Errorf("tolerance must not be negative, got %d", tolerance)
			}
			m := editor.NewMatcher(tolerance)
			return printJSON(cmd.OutOrStdout(), m.FindBestMatch(string(query), string(document)))
		},
	}
	cmd.Flags().String("query", "", "File holding the snippet to look for (required)")
	cmd.Flags().String("document", "", "File to search (required)")
	cmd.MarkFlagRequired("query")
	cmd.MarkFlagRequired("document")
	return cmd
}
