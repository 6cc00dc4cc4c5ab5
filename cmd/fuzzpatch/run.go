// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/go-fuzzpatch/pkg/patcher"
	"github.com/petar-djukic/go-fuzzpatch/pkg/types"
)

// errNotAllApplied makes the process exit non-zero when some change was
// rejected, after the result has been printed.
var errNotAllApplied = errors.New("some changes were not applied")

// resolutionView is a Resolution with its error rendered for JSON.
type resolutionView struct {
	Change types.RawChange     `json:"change"`
	Edit   *types.ResolvedEdit `json:"edit,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// resultView is the JSON shape printed by resolve and apply.
type resultView struct {
	Format       string                `json:"format"`
	Success      bool                  `json:"success"`
	Resolutions  []resolutionView      `json:"resolutions"`
	Warnings     []string              `json:"warnings,omitempty"`
	Applied      []patcher.AppliedFile `json:"applied,omitempty"`
	Skipped      int                   `json:"skipped,omitempty"`
	Preview      *patcher.Preview      `json:"preview,omitempty"`
	SyntaxErrors []string              `json:"syntax_errors,omitempty"`
	Commit       string                `json:"commit,omitempty"`
	Errors       []string              `json:"errors,omitempty"`
	Report       string                `json:"report,omitempty"`
}

// newResolveCmd creates the "resolve" command.
func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Ground a diff against the repository without changing files",
		Long:  "Resolve reads an LLM reply or diff and prints, for each hunk, the file region it refers to and the rewritten edit as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			response, err := readInput(cmd)
			if err != nil {
				return err
			}
			p, err := newPatcher(false, true)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			result, err := p.Resolve(ctx, response)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), toView(result)); err != nil {
				return err
			}
			if !result.Success() {
				return errNotAllApplied
			}
			return nil
		},
	}
	cmd.Flags().StringP("input", "i", "", "File holding the LLM reply (default stdin)")
	return cmd
}

// newApplyCmd creates the "apply" command.
func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Ground a diff and write the confident edits",
		Long: "Apply resolves every hunk and writes those that match confidently and do not overlap. " +
			"Rejected hunks are listed in a report suitable for sending back to the LLM.",
		RunE: runApply,
	}
	cmd.Flags().StringP("input", "i", "", "File holding the LLM reply (default stdin)")
	cmd.Flags().Bool("dry-run", false, "Print the unified diff instead of writing files")
	cmd.Flags().Bool("force", false, "Also apply low-confidence edits")
	cmd.Flags().Bool("commit", false, "Commit the applied files")
	cmd.Flags().StringP("message", "m", "", "Commit summary (generated when empty)")
	cmd.Flags().Bool("no-syntax-check", false, "Do not parse written files for new syntax errors")
	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")
	commit, _ := cmd.Flags().GetBool("commit")
	message, _ := cmd.Flags().GetString("message")
	skipSyntax, _ := cmd.Flags().GetBool("no-syntax-check")

	response, err := readInput(cmd)
	if err != nil {
		return err
	}
	p, err := newPatcher(commit && !dryRun, skipSyntax)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	result, err := p.Apply(ctx, response, patcher.ApplyOptions{
		DryRun:        dryRun,
		Force:         force,
		CommitMessage: message,
	})
	if err != nil {
		return err
	}

	if dryRun {
		if result.Preview != nil {
			fmt.Fprint(cmd.OutOrStdout(), result.Preview.Patch)
		}
		if result.Report != "" {
			fmt.Fprint(cmd.ErrOrStderr(), result.Report)
		}
	} else if err := printJSON(cmd.OutOrStdout(), toView(result)); err != nil {
		return err
	}

	if !result.Success() {
		return errNotAllApplied
	}
	return nil
}

// newUndoCmd creates the "undo" command.
func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the last fuzzpatch commit",
		Long:  "Undo performs a soft reset of the last commit if it was made by fuzzpatch apply --commit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPatcher(false, true)
			if err != nil {
				return err
			}
			if err := p.Undo(); err != nil {
				return fmt.Errorf("undo failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully reverted last fuzzpatch commit.")
			return nil
		},
	}
}

// newPatcher builds a Patcher from the global flags.
func newPatcher(autoCommit, skipSyntax bool) (patcher.Patcher, error) {
	p, err := patcher.New(patcher.Config{
		WorkDir:       viper.GetString("workdir"),
		PathThreshold: viper.GetFloat64("path-threshold"),
		MinScore:      viper.GetFloat64("min-score"),
		Tolerance:     viper.GetInt("tolerance"),
		Concurrency:   viper.GetInt("concurrency"),
		UseGit:        !viper.GetBool("no-git"),
		AutoCommit:    autoCommit,
		SkipSyntax:    skipSyntax,
		Logger:        newLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("initialization failed: %w", err)
	}
	return p, nil
}

// readInput returns the contents of --input, or of stdin when unset.
func readInput(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("input")
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func toView(r *patcher.Result) resultView {
	v := resultView{
		Format:       r.Format,
		Success:      r.Success(),
		Resolutions:  make([]resolutionView, len(r.Resolutions)),
		Warnings:     r.Warnings,
		Applied:      r.Applied,
		Skipped:      r.Skipped,
		Preview:      r.Preview,
		SyntaxErrors: r.SyntaxErrors,
		Commit:       r.Commit,
		Errors:       r.Errors,
		Report:       r.Report,
	}
	for i, res := range r.Resolutions {
		v.Resolutions[i] = resolutionView{Change: res.Change, Edit: res.Edit}
		if res.Err != nil {
			v.Resolutions[i].Error = res.Err.Error()
		}
	}
	return v
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
