// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package research

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/citeseek-dev/citeseek/internal/index"
	"github.com/citeseek-dev/citeseek/internal/observability/metrics"
	"github.com/citeseek-dev/citeseek/internal/provider"
	"github.com/citeseek-dev/citeseek/internal/resilience"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// Gather defaults.
const (
	DefaultEvidenceK      = 10
	DefaultLambda         = 0.9
	DefaultScoreThreshold = 0
	DefaultMaxConcurrency = 4
	defaultUnitTimeout    = 60 * time.Second
	defaultEmbedTimeout   = 15 * time.Second
)

// GatherOptions tune one gather call. Zero values take the defaults.
// Lambda is a pointer because 0 is a meaningful value (maximal
// diversity): nil means "use the default".
type GatherOptions struct {
	EvidenceK      int
	Lambda         *float64
	ScoreThreshold float64
	MaxConcurrency int
}

func (o GatherOptions) normalize() GatherOptions {
	if o.EvidenceK <= 0 {
		o.EvidenceK = DefaultEvidenceK
	}
	if o.Lambda == nil {
		lambda := DefaultLambda
		o.Lambda = &lambda
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	return o
}

// GatherResult summarizes one gather call for observability. Scores
// lists the relevance of every successfully summarized chunk, kept or
// filtered, in completion order.
type GatherResult struct {
	Retrieved int
	Skipped   int
	Failed    int
	Filtered  int
	Added     int
	Scores    []float64
}

// GathererConfig holds Gatherer dependencies.
type GathererConfig struct {
	Index      index.Index
	Embedder   provider.Embedder
	Summarizer *Summarizer
	Citations  CitationResolver
	Executor   *resilience.Executor
	Metrics    *metrics.PipelineMetrics
	Logger     *slog.Logger
	Pricing    Pricing

	// UnitTimeout bounds one summarization unit including retries;
	// EmbedTimeout bounds the question embedding call.
	UnitTimeout  time.Duration
	EmbedTimeout time.Duration
}

// Gatherer orchestrates evidence collection: embed the question,
// MMR-retrieve candidate chunks, fan out bounded summarization units,
// filter by score, and merge survivors into the session.
type Gatherer struct {
	index      index.Index
	embedder   provider.Embedder
	summarizer *Summarizer
	citations  CitationResolver
	exec       *resilience.Executor
	metrics    *metrics.PipelineMetrics
	log        *slog.Logger
	pricing    Pricing

	unitTimeout  time.Duration
	embedTimeout time.Duration
}

// NewGatherer creates a Gatherer.
func NewGatherer(cfg GathererConfig) *Gatherer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.UnitTimeout <= 0 {
		cfg.UnitTimeout = defaultUnitTimeout
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = defaultEmbedTimeout
	}
	return &Gatherer{
		index:        cfg.Index,
		embedder:     cfg.Embedder,
		summarizer:   cfg.Summarizer,
		citations:    cfg.Citations,
		exec:         cfg.Executor,
		metrics:      cfg.Metrics,
		log:          cfg.Logger,
		pricing:      cfg.Pricing,
		unitTimeout:  cfg.UnitTimeout,
		embedTimeout: cfg.EmbedTimeout,
	}
}

// unitResult carries one summarization unit's outcome.
type unitResult struct {
	context Context
	usage   provider.Usage
	err     error
}

// Gather runs one evidence-gathering pass for the session's question.
// A second concurrent call on the same session is rejected with a busy
// error. Per-chunk failures are absorbed; only query-embedding failure
// aborts the call. Retrieving zero usable evidence is success.
func (g *Gatherer) Gather(ctx context.Context, session *Session, opts GatherOptions) (GatherResult, error) {
	if err := session.beginOp("gather_evidence"); err != nil {
		return GatherResult{}, err
	}
	defer session.endOp()

	opts = opts.normalize()
	started := time.Now()
	defer func() { g.metrics.ObserveGather(time.Since(started)) }()

	queryEmb, err := g.embedQuestion(ctx, session.Question)
	if err != nil {
		return GatherResult{}, cserr.Wrap(err, cserr.CodeGatherEmbedFailure,
			"embedding question", cserr.FieldSessionID(session.ID))
	}

	retrieved, err := g.index.Retrieve(ctx, queryEmb, opts.EvidenceK, *opts.Lambda)
	if err != nil {
		return GatherResult{}, cserr.With(err, cserr.FieldSessionID(session.ID))
	}

	result := GatherResult{Retrieved: len(retrieved)}

	// Idempotent re-gather: chunks already summarized for this
	// question are skipped, not re-dispatched.
	pending := retrieved[:0]
	for _, r := range retrieved {
		if session.HasChunk(r.Chunk.ID) {
			result.Skipped++
			g.metrics.UnitSkipped()
			continue
		}
		pending = append(pending, r)
	}

	units := make([]unitResult, len(pending))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.MaxConcurrency)

	for i, r := range pending {
		// Stop dispatching once the caller cancels; in-flight units
		// wind down on their own contexts.
		if ctx.Err() != nil {
			units[i].err = ctx.Err()
			continue
		}

		grp.Go(func() error {
			units[i] = g.runUnit(grpCtx, session.Question, r)
			return nil
		})
	}
	_ = grp.Wait()

	survivors := make([]Context, 0, len(units))
	var totalUsage provider.Usage
	for _, u := range units {
		totalUsage.Add(u.usage)

		if u.err != nil {
			result.Failed++
			g.metrics.UnitOutcome(metrics.UnitOutcomeFailed)
			g.log.Warn("summarization unit dropped",
				"session_id", session.ID,
				"error", u.err,
			)
			continue
		}

		result.Scores = append(result.Scores, u.context.Score)
		if u.context.Score <= opts.ScoreThreshold {
			result.Filtered++
			g.metrics.UnitOutcome(metrics.UnitOutcomeFiltered)
			continue
		}
		g.metrics.UnitOutcome(metrics.UnitOutcomeKept)
		survivors = append(survivors, u.context)
	}

	result.Added = session.merge(survivors)
	if totalUsage != (provider.Usage{}) {
		session.recordUsage(totalUsage, g.pricing.Cost(totalUsage))
		g.metrics.AddTokens(totalUsage.InputTokens, totalUsage.OutputTokens)
	}

	g.log.Info("gather complete",
		"session_id", session.ID,
		"retrieved", result.Retrieved,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"filtered", result.Filtered,
		"added", result.Added,
	)

	return result, nil
}

func (g *Gatherer) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, g.embedTimeout)
	defer cancel()

	var emb []float32
	err := g.exec.Execute(ctx, "embed", func(ctx context.Context) error {
		var callErr error
		emb, callErr = g.embedder.Embed(ctx, question)
		return callErr
	})
	return emb, err
}

// runUnit executes one summarization unit under its own timeout. A
// Context is only formed once the response validates; a failed unit
// contributes nothing to the merge.
func (g *Gatherer) runUnit(ctx context.Context, question string, r index.Result) unitResult {
	g.metrics.UnitStarted()
	defer g.metrics.UnitDone()

	ctx, cancel := context.WithTimeout(ctx, g.unitTimeout)
	defer cancel()

	citation, err := g.citations.CitationFor(ctx, r.Chunk.DocID)
	if err != nil {
		citation = r.Chunk.DocID
	}

	evidence, usage, err := g.summarizer.Summarize(ctx, r.Chunk, citation, question)
	return unitResult{context: evidence, usage: usage, err: err}
}
