// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command fuzzpatch grounds LLM-written diffs against the files of a
// repository and applies them.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fuzzpatch",
		Short: "Apply LLM-written diffs to real files",
		Long: "fuzzpatch locates the region each hunk of an LLM-written diff refers to, " +
			"even when line numbers, whitespace or surrounding text are wrong, and rewrites " +
			"the hunk against the literal file content.",
		SilenceUsage: true,
	}

	// Global flags.
	flags := rootCmd.PersistentFlags()
	flags.String("workdir", ".", "Repository root directory")
	flags.Float64("path-threshold", 90, "Minimum similarity (0-100) for a fuzzy file path match")
	flags.Float64("min-score", 420, "Minimum match score to apply an edit (0 means 420, negative disables)")
	flags.Int("tolerance", 5, "Lines a matched region may differ from the snippet length (0 means 5 except for match)")
	flags.Int("concurrency", 0, "Changes resolved in parallel (0 = number of CPUs)")
	flags.Bool("no-git", false, "List files from disk and disable commits")
	flags.BoolP("verbose", "v", false, "Log match details to stderr")

	// Bind flags to viper.
	for _, name := range []string{"workdir", "path-threshold", "min-score", "tolerance", "concurrency", "no-git", "verbose"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	// Env vars: FUZZPATCH_WORKDIR, FUZZPATCH_MIN_SCORE, etc.
	viper.SetEnvPrefix("FUZZPATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".fuzzpatch")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newMatchCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newLogger builds the stderr logger; --verbose enables debug output.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print fuzzpatch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fuzzpatch %s\n", version)
		},
	}
}
