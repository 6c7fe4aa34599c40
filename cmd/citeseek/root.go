// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root citeseek command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "citeseek",
		Short:         "citeseek — evidence-gathering question answering over scientific documents",
		Long:          "Citeseek retrieves relevant document chunks, summarizes them against a question, and synthesizes cited answers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(verbose)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(),
		newAskCmd(),
		newSearchCmd(),
		newIngestCmd(),
		newVersionCmd(),
	)

	return root
}

// setupLogging installs the process-wide structured logger. Logs go to
// stderr so command output on stdout stays machine-readable.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
