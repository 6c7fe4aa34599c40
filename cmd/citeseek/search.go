// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citeseek-dev/citeseek/internal/config"
	"github.com/citeseek-dev/citeseek/internal/index"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Keyword search over indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().Int("limit", 10, "maximum hits to print")
	cmd.Flags().Int("min-year", 0, "earliest publication year, inclusive")
	cmd.Flags().Int("max-year", 0, "latest publication year, inclusive")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	// Search needs only the store, not providers.
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	limit, _ := cmd.Flags().GetInt("limit")
	minYear, _ := cmd.Flags().GetInt("min-year")
	maxYear, _ := cmd.Flags().GetInt("max-year")

	hits, err := store.SearchText(cmd.Context(), strings.Join(args, " "), index.SearchOpts{
		Limit:   limit,
		MinYear: minYear,
		MaxYear: maxYear,
	})
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no matching documents")
		return nil
	}

	for _, h := range hits {
		if h.Year > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d) [%s]\n  %s\n", h.Title, h.Year, h.ChunkID, h.Snippet)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\n  %s\n", h.Title, h.ChunkID, h.Snippet)
		}
	}
	return nil
}
