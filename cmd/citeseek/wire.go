// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/citeseek-dev/citeseek/internal/config"
	"github.com/citeseek-dev/citeseek/internal/index"
	"github.com/citeseek-dev/citeseek/internal/index/sqlitevec"
	"github.com/citeseek-dev/citeseek/internal/observability/metrics"
	"github.com/citeseek-dev/citeseek/internal/provider"
	anthropicprov "github.com/citeseek-dev/citeseek/internal/provider/anthropic"
	openaiprov "github.com/citeseek-dev/citeseek/internal/provider/openai"
	"github.com/citeseek-dev/citeseek/internal/research"
	"github.com/citeseek-dev/citeseek/internal/resilience"
	"github.com/citeseek-dev/citeseek/internal/server"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// corpusStore is what an index backend must provide: vector retrieval,
// chunk and document ingestion, metadata lookup, and keyword search.
type corpusStore interface {
	index.Index
	index.Writer
	index.DocumentWriter
	index.DocumentLookup
	index.TextSearcher
}

// Compile-time backend checks.
var (
	_ corpusStore = (*index.Memory)(nil)
	_ corpusStore = (*sqlitevec.Store)(nil)
)

// App holds all wired subsystems for one citeseek process.
type App struct {
	Config      *config.Config
	Store       corpusStore
	Registry    *provider.Registry
	Embedder    provider.Embedder
	Executor    *resilience.Executor
	Metrics     *metrics.PipelineMetrics
	Sessions    *research.Manager
	Gatherer    *research.Gatherer
	Synthesizer *research.Synthesizer
}

// wireApp creates all subsystems and wires them together.
func wireApp(cfg *config.Config) (*App, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry()
	embedder, err := registerProviders(cfg, registry)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger := slog.Default()
	exec := resilience.NewExecutor(resilience.Config{
		MaxAttempts:     cfg.Resilience.MaxAttempts,
		InitialBackoff:  time.Duration(cfg.Resilience.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:      time.Duration(cfg.Resilience.MaxBackoffMS) * time.Millisecond,
		BreakerDisabled: cfg.Resilience.BreakerDisabled,
	}, logger)

	summaryCompleter, summaryModel, err := registry.Resolve(cfg.Models.Summary)
	if err != nil {
		_ = store.Close()
		return nil, cserr.Wrapf(err, cserr.CodeCLISetupFailure, "resolving summary model %s", cfg.Models.Summary)
	}
	answerCompleter, answerModel, err := registry.Resolve(cfg.Models.Answer)
	if err != nil {
		_ = store.Close()
		return nil, cserr.Wrapf(err, cserr.CodeCLISetupFailure, "resolving answer model %s", cfg.Models.Answer)
	}

	pipelineMetrics := metrics.NewPipelineMetrics()

	gatherer := research.NewGatherer(research.GathererConfig{
		Index:      store,
		Embedder:   embedder,
		Summarizer: research.NewSummarizer(summaryCompleter, summaryModel, exec),
		Citations:  research.NewCitationResolver(store),
		Executor:   exec,
		Metrics:    pipelineMetrics,
		Logger:     logger,
		Pricing:    pricingFor(cfg, cfg.Models.Summary),
	})

	synthesizer := research.NewSynthesizer(research.SynthesizerConfig{
		Completer: answerCompleter,
		Model:     answerModel,
		Executor:  exec,
		Metrics:   pipelineMetrics,
		Logger:    logger,
		Pricing:   pricingFor(cfg, cfg.Models.Answer),
	})

	return &App{
		Config:      cfg,
		Store:       store,
		Registry:    registry,
		Embedder:    embedder,
		Executor:    exec,
		Metrics:     pipelineMetrics,
		Sessions:    research.NewManager(),
		Gatherer:    gatherer,
		Synthesizer: synthesizer,
	}, nil
}

// Close releases resources held by the app.
func (a *App) Close() error {
	return a.Store.Close()
}

// GatherOptions returns the configured gather defaults.
func (a *App) GatherOptions() research.GatherOptions {
	lambda := a.Config.Gather.Lambda
	return research.GatherOptions{
		EvidenceK:      a.Config.Gather.EvidenceK,
		Lambda:         &lambda,
		ScoreThreshold: a.Config.Gather.ScoreThreshold,
		MaxConcurrency: a.Config.Gather.MaxConcurrency,
	}
}

// Services bundles the app for the HTTP server routes.
func (a *App) Services() *server.Services {
	return &server.Services{
		Sessions:       a.Sessions,
		Gatherer:       a.Gatherer,
		Synthesizer:    a.Synthesizer,
		Searcher:       a.Store,
		Metrics:        a.Metrics,
		GatherDefaults: a.GatherOptions(),
		MaxSources:     a.Config.Answer.MaxSources,
	}
}

func openStore(cfg *config.Config) (corpusStore, error) {
	switch cfg.Index.Backend {
	case "memory":
		return index.NewMemory(), nil
	case "sqlite":
		store, err := sqlitevec.Open(cfg.Index.Path, cfg.Index.Dimensions)
		if err != nil {
			return nil, cserr.Wrapf(err, cserr.CodeCLISetupFailure, "opening index %s", cfg.Index.Path)
		}
		return store, nil
	default:
		return nil, cserr.Errorf(cserr.CodeIndexBackendUnsupported, "unsupported index backend %q", cfg.Index.Backend)
	}
}

// registerProviders registers configured providers and returns the
// embedder backing the configured embedding model. Providers with empty
// API keys are skipped; a missing embedding provider is fatal because
// gathering cannot run without it.
func registerProviders(cfg *config.Config, registry *provider.Registry) (provider.Embedder, error) {
	var embedder provider.Embedder
	embeddingProvider := providerName(cfg.Models.Embedding)

	for name, pc := range cfg.Providers {
		if pc.APIKey == "" {
			slog.Warn("skipping provider with empty API key", "provider", name)
			continue
		}
		switch name {
		case "openai":
			client, err := openaiprov.New(openaiprov.Config{
				APIKey:              pc.APIKey,
				BaseURL:             pc.Endpoint,
				EmbeddingModel:      modelName(cfg.Models.Embedding),
				EmbeddingDimensions: cfg.Index.Dimensions,
			})
			if err != nil {
				return nil, cserr.Wrap(err, cserr.CodeCLISetupFailure, "creating openai provider")
			}
			registry.Register(client)
			if name == embeddingProvider {
				embedder = client
			}
		case "anthropic":
			client, err := anthropicprov.New(anthropicprov.Config{
				APIKey:  pc.APIKey,
				BaseURL: pc.Endpoint,
			})
			if err != nil {
				return nil, cserr.Wrap(err, cserr.CodeCLISetupFailure, "creating anthropic provider")
			}
			registry.Register(client)
		default:
			slog.Warn("unknown provider in config, skipping", "provider", name)
		}
	}

	if embedder == nil {
		return nil, cserr.Errorf(cserr.CodeCLISetupFailure,
			"embedding model %s requires the %q provider to be configured with an API key",
			cfg.Models.Embedding, embeddingProvider)
	}
	return embedder, nil
}

func pricingFor(cfg *config.Config, modelRef string) research.Pricing {
	p := cfg.PricingFor(modelRef)
	return research.Pricing{
		InputPerMTokUSD:  p.InputPerMTokUSD,
		OutputPerMTokUSD: p.OutputPerMTokUSD,
	}
}

func providerName(ref string) string {
	name, _, _ := strings.Cut(ref, "/")
	return name
}

func modelName(ref string) string {
	_, model, ok := strings.Cut(ref, "/")
	if !ok {
		return ref
	}
	return model
}
