// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citeseek-dev/citeseek/internal/config"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed corpus",
		Long:  "Gather evidence for the question, then synthesize a cited answer from the surviving summaries.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().Int("evidence-k", 0, "chunks to retrieve (default from config)")
	cmd.Flags().Float64("lambda", 0, "MMR relevance/diversity trade-off in [0, 1]; 0 is maximal diversity (default from config)")
	cmd.Flags().Float64("threshold", -1, "minimum exclusive relevance score (default from config)")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	app, err := wireApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	opts := app.GatherOptions()
	if k, _ := cmd.Flags().GetInt("evidence-k"); k > 0 {
		opts.EvidenceK = k
	}
	if cmd.Flags().Changed("lambda") {
		lambda, _ := cmd.Flags().GetFloat64("lambda")
		if lambda < 0 || lambda > 1 {
			return cserr.Errorf(cserr.CodeCLIInputInvalid, "--lambda must be in [0, 1], got %g", lambda)
		}
		opts.Lambda = &lambda
	}
	if threshold, _ := cmd.Flags().GetFloat64("threshold"); threshold >= 0 {
		opts.ScoreThreshold = threshold
	}

	question := strings.Join(args, " ")
	session := app.Sessions.Create(question)

	result, err := app.Gatherer.Gather(cmd.Context(), session, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "gathered %d of %d retrieved chunks (%d filtered, %d failed)\n",
		result.Added, result.Retrieved, result.Filtered, result.Failed)

	answer, err := app.Synthesizer.Synthesize(cmd.Context(), session, cfg.Answer.MaxSources)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Text)
	if len(answer.Bibliography) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "References:")
		for _, entry := range answer.Bibliography {
			fmt.Fprintln(out, entry)
		}
	}

	usage := session.Usage()
	fmt.Fprintf(cmd.ErrOrStderr(), "tokens: %d in / %d out across %d calls ($%.4f)\n",
		usage.InputTokens, usage.OutputTokens, usage.Calls, usage.CostUSD)

	return nil
}
