// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek-dev/citeseek/internal/provider"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

func newTestSynthesizer(completer provider.Completer) *Synthesizer {
	return NewSynthesizer(SynthesizerConfig{
		Completer: completer,
		Model:     "test-model",
		Executor:  testExecutor(),
	})
}

func TestSynthesizeSentinelOnEmptySession(t *testing.T) {
	completer := &stubCompleter{reply: textReply("should not be called")}
	syn := newTestSynthesizer(completer)
	session := NewSession("what is attention?")

	answer, err := syn.Synthesize(context.Background(), session, DefaultMaxSources)
	require.NoError(t, err)

	assert.Equal(t, CannotAnswer, answer.Text)
	assert.Empty(t, answer.Bibliography)
	assert.Equal(t, 0, completer.callCount())
	assert.Equal(t, StateAnswered, session.State())

	stored, ok := session.Answer()
	require.True(t, ok)
	assert.Equal(t, CannotAnswer, stored.Text)
}

func TestSynthesizeCapsSources(t *testing.T) {
	completer := &stubCompleter{reply: textReply("answer [1]")}
	syn := newTestSynthesizer(completer)

	session := NewSession("q")
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		session.merge([]Context{evidenceContext(id, float64(i + 1))})
	}

	_, err := syn.Synthesize(context.Background(), session, 5)
	require.NoError(t, err)

	require.Len(t, completer.prompts, 1)
	prompt := completer.prompts[0]

	// Top five by score: g, f, e, d, c. The two lowest never reach the
	// model.
	for _, want := range []string{"sum-g", "sum-f", "sum-e", "sum-d", "sum-c"} {
		assert.Contains(t, prompt, want)
	}
	assert.NotContains(t, prompt, "sum-b")
	assert.NotContains(t, prompt, "sum-a")
	assert.Contains(t, prompt, "[5]")
	assert.NotContains(t, prompt, "[6]")
}

func TestSynthesizeRanksByScoreThenGatherOrder(t *testing.T) {
	completer := &stubCompleter{reply: textReply("answer")}
	syn := newTestSynthesizer(completer)

	session := NewSession("q")
	session.merge([]Context{
		evidenceContext("a", 5),
		evidenceContext("b", 7),
		evidenceContext("c", 5),
	})

	_, err := syn.Synthesize(context.Background(), session, 3)
	require.NoError(t, err)

	prompt := completer.prompts[0]
	assert.Contains(t, prompt, "[1] (cite-b)")
	assert.Contains(t, prompt, "[2] (cite-a)")
	assert.Contains(t, prompt, "[3] (cite-c)")
}

func TestSynthesizeBibliography(t *testing.T) {
	completer := &stubCompleter{reply: textReply(
		"Attention suffices [2]. Recurrence is unnecessary [1], as shown in [2]. See also [9].",
	)}
	syn := newTestSynthesizer(completer)

	session := NewSession("q")
	session.merge([]Context{
		evidenceContext("a", 9),
		evidenceContext("b", 8),
		evidenceContext("c", 7),
	})

	answer, err := syn.Synthesize(context.Background(), session, 5)
	require.NoError(t, err)

	// Each cited label once, first-use order; the unknown [9] is ignored
	// and the uncited [3] is absent.
	assert.Equal(t, []string{"[2] cite-b", "[1] cite-a"}, answer.Bibliography)
}

func TestSynthesizeFailureLeavesSessionIntact(t *testing.T) {
	completer := &stubCompleter{reply: func(provider.CompletionRequest) (provider.Completion, error) {
		return provider.Completion{}, cserr.New(cserr.CodeProviderUpstreamFailure, "model unavailable")
	}}
	syn := newTestSynthesizer(completer)

	session := NewSession("q")
	session.merge([]Context{evidenceContext("a", 9), evidenceContext("b", 8)})
	session.setAnswer(Answer{Text: "earlier answer"})

	_, err := syn.Synthesize(context.Background(), session, 5)
	require.Error(t, err)
	assert.True(t, cserr.HasCode(err, cserr.CodeAnswerGenFailure))

	// Evidence and the prior answer survive the failed call.
	assert.Equal(t, 2, session.ContextCount())
	stored, ok := session.Answer()
	require.True(t, ok)
	assert.Equal(t, "earlier answer", stored.Text)
}

func TestSynthesizeRefreshesStaleAnswer(t *testing.T) {
	completer := &stubCompleter{reply: textReply("fresh answer [1]")}
	syn := newTestSynthesizer(completer)

	session := NewSession("q")
	session.merge([]Context{evidenceContext("a", 9)})
	session.setAnswer(Answer{Text: "old answer"})
	session.merge([]Context{evidenceContext("b", 8)})

	stale, _ := session.Answer()
	require.True(t, stale.Stale)

	answer, err := syn.Synthesize(context.Background(), session, 5)
	require.NoError(t, err)
	assert.False(t, answer.Stale)
	assert.Equal(t, "fresh answer [1]", answer.Text)

	stored, _ := session.Answer()
	assert.False(t, stored.Stale)
}

func TestSynthesizeRejectsConcurrentOperation(t *testing.T) {
	completer := &stubCompleter{reply: textReply("answer")}
	syn := newTestSynthesizer(completer)

	session := NewSession("q")
	require.NoError(t, session.beginOp("gather_evidence"))
	defer session.endOp()

	_, err := syn.Synthesize(context.Background(), session, 5)
	require.Error(t, err)
	assert.True(t, cserr.IsBusy(err))
}

func TestSynthesizeRecordsUsage(t *testing.T) {
	completer := &stubCompleter{reply: textReply("answer [1]")}
	syn := NewSynthesizer(SynthesizerConfig{
		Completer: completer,
		Model:     "test-model",
		Executor:  testExecutor(),
		Pricing:   Pricing{InputPerMTokUSD: 3, OutputPerMTokUSD: 15},
	})

	session := NewSession("q")
	session.merge([]Context{evidenceContext("a", 9)})

	_, err := syn.Synthesize(context.Background(), session, 5)
	require.NoError(t, err)

	usage := session.Usage()
	assert.Equal(t, 10, usage.InputTokens)
	assert.Equal(t, 5, usage.OutputTokens)
	assert.Equal(t, 1, usage.Calls)
	assert.InDelta(t, 10.0/1e6*3+5.0/1e6*15, usage.CostUSD, 1e-12)
}
