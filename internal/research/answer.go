// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package research

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/citeseek-dev/citeseek/internal/observability/metrics"
	"github.com/citeseek-dev/citeseek/internal/provider"
	"github.com/citeseek-dev/citeseek/internal/resilience"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// CannotAnswer is the fixed reply for a session with no evidence.
const CannotAnswer = "I cannot answer this question from the available evidence"

// DefaultMaxSources caps how many contexts feed one synthesis call.
const DefaultMaxSources = 5

const defaultAnswerTimeout = 90 * time.Second

const answerSystemPrompt = `You answer scientific questions strictly from the provided evidence. Cite evidence inline using bracketed labels like [1]. Do not cite labels that were not provided.`

// citationMarker matches inline bracketed citation labels.
var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// SynthesizerConfig holds Synthesizer dependencies.
type SynthesizerConfig struct {
	Completer provider.Completer
	Model     string
	Executor  *resilience.Executor
	Metrics   *metrics.PipelineMetrics
	Logger    *slog.Logger
	Pricing   Pricing
	Timeout   time.Duration
}

// Synthesizer produces a cited answer from a session's gathered
// evidence via a single LLM call.
type Synthesizer struct {
	completer provider.Completer
	model     string
	exec      *resilience.Executor
	metrics   *metrics.PipelineMetrics
	log       *slog.Logger
	pricing   Pricing
	timeout   time.Duration
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAnswerTimeout
	}
	return &Synthesizer{
		completer: cfg.Completer,
		model:     cfg.Model,
		exec:      cfg.Executor,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		pricing:   cfg.Pricing,
		timeout:   cfg.Timeout,
	}
}

// Synthesize generates an answer from the session's top-scoring
// contexts. Zero evidence yields the CannotAnswer sentinel, not an
// error. A provider failure is fatal for this call only; the session's
// contexts survive intact. Concurrent calls on the same session are
// rejected.
func (s *Synthesizer) Synthesize(ctx context.Context, session *Session, maxSources int) (Answer, error) {
	if err := session.beginOp("gen_answer"); err != nil {
		return Answer{}, err
	}
	defer session.endOp()

	if maxSources <= 0 {
		maxSources = DefaultMaxSources
	}

	selected := topContexts(session.Contexts(), maxSources)
	if len(selected) == 0 {
		answer := Answer{Text: CannotAnswer}
		session.setAnswer(answer)
		s.metrics.AnswerFinished(nil)
		return answer, nil
	}

	req := provider.CompletionRequest{
		Model:     s.model,
		System:    answerSystemPrompt,
		Prompt:    buildAnswerPrompt(session.Question, selected),
		MaxTokens: 2048,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var completion provider.Completion
	err := s.exec.Execute(callCtx, "synthesize", func(ctx context.Context) error {
		var callErr error
		completion, callErr = s.completer.Complete(ctx, req)
		return callErr
	})
	s.metrics.AnswerFinished(err)
	if err != nil {
		return Answer{}, cserr.Wrap(err, cserr.CodeAnswerGenFailure,
			"generating answer", cserr.FieldSessionID(session.ID))
	}

	answer := Answer{
		Text:         completion.Text,
		Bibliography: buildBibliography(completion.Text, selected),
	}
	session.setAnswer(answer)
	session.recordUsage(completion.Usage, s.pricing.Cost(completion.Usage))
	s.metrics.AddTokens(completion.Usage.InputTokens, completion.Usage.OutputTokens)

	s.log.Info("answer synthesized",
		"session_id", session.ID,
		"sources", len(selected),
		"bibliography", len(answer.Bibliography),
	)

	return answer, nil
}

// topContexts ranks contexts by score descending, stable by gather
// order, and returns at most maxSources of them. The synthesizer never
// reads beyond this cap.
func topContexts(contexts []Context, maxSources int) []Context {
	sort.SliceStable(contexts, func(i, j int) bool {
		return contexts[i].Score > contexts[j].Score
	})
	if len(contexts) > maxSources {
		contexts = contexts[:maxSources]
	}
	return contexts
}

func buildAnswerPrompt(question string, contexts []Context) string {
	var b strings.Builder

	b.WriteString("Evidence:\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "\n[%d] (%s)\n%s\n", i+1, c.Citation, c.Summary)
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n\n", question)
	b.WriteString("Answer the question from the evidence above, citing supporting items inline as [n].")

	return b.String()
}

// buildBibliography collects, in first-use order, one entry per
// citation label actually used in the answer. Markers that match no
// supplied label are ignored.
func buildBibliography(answer string, contexts []Context) []string {
	var bibliography []string
	seen := make(map[int]struct{})

	for _, m := range citationMarker.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(contexts) {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		bibliography = append(bibliography, fmt.Sprintf("[%d] %s", n, contexts[n-1].Citation))
	}

	return bibliography
}
