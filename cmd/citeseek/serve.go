// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/citeseek-dev/citeseek/internal/config"
	"github.com/citeseek-dev/citeseek/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the citeseek HTTP server",
		Long:  "Load configuration, open the index, wire the research pipeline, and serve the REST API until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Networking.Listen = listen
	}

	app, err := wireApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	srv, err := server.New(server.Config{ListenAddr: cfg.Networking.Listen})
	if err != nil {
		return err
	}
	srv.RegisterServices(app.Services())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("citeseek listening", "addr", cfg.Networking.Listen, "index", cfg.Index.Backend)
	return srv.Start(ctx)
}
