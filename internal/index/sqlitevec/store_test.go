// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package sqlitevec_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/citeseek-dev/citeseek/internal/corpus"
	"github.com/citeseek-dev/citeseek/internal/index"
	"github.com/citeseek-dev/citeseek/internal/index/sqlitevec"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, dims int) *sqlitevec.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := sqlitevec.Open(path, dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndSimilar(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 3)

	err := s.Add(ctx, []corpus.Chunk{
		{ID: "c1", DocID: "d1", Text: "alpha", Embedding: []float32{1, 0, 0}},
		{ID: "c2", DocID: "d1", Text: "beta", Embedding: []float32{0, 1, 0}},
		{ID: "c3", DocID: "d2", Text: "gamma", Embedding: []float32{0.9, 0.1, 0}},
	})
	require.NoError(t, err)

	results, err := s.Similar(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "c3", results[1].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)
	assert.Equal(t, "alpha", results[0].Chunk.Text)
	assert.Equal(t, []float32{1, 0, 0}, results[0].Chunk.Embedding)
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 3)

	err := s.Add(ctx, []corpus.Chunk{{ID: "c1", Text: "x", Embedding: []float32{1, 0}}})
	require.Error(t, err)
	assert.True(t, cserr.IsInvalidInput(err))
}

func TestRetrieveAppliesDiversity(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 3)

	err := s.Add(ctx, []corpus.Chunk{
		{ID: "first", DocID: "d1", Text: "a", Embedding: []float32{1, 0, 0}},
		{ID: "near-dup", DocID: "d1", Text: "b", Embedding: []float32{0.99, 0.01, 0}},
		{ID: "novel", DocID: "d2", Text: "c", Embedding: []float32{0.05, 0, 1}},
	})
	require.NoError(t, err)

	results, err := s.Retrieve(ctx, []float32{1, 0, 0}, 2, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Chunk.ID)
	assert.Equal(t, "novel", results[1].Chunk.ID)
}

func TestSimilarBreaksDistanceTiesByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 3)

	// Identical embeddings, inserted in an order that disagrees with
	// the lexical order of the ids.
	require.NoError(t, s.Add(ctx, []corpus.Chunk{
		{ID: "zeta", DocID: "d1", Text: "a", Embedding: []float32{0, 1, 0}},
		{ID: "alpha", DocID: "d1", Text: "b", Embedding: []float32{0, 1, 0}},
	}))
	require.NoError(t, s.Add(ctx, []corpus.Chunk{
		{ID: "mid", DocID: "d2", Text: "c", Embedding: []float32{0, 1, 0}},
	}))

	results, err := s.Similar(ctx, []float32{0, 1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "zeta", results[0].Chunk.ID)
	assert.Equal(t, "alpha", results[1].Chunk.ID)
	assert.Equal(t, "mid", results[2].Chunk.ID)

	// Pure-relevance MMR keeps the same tie order.
	results, err = s.Retrieve(ctx, []float32{0, 1, 0}, 3, 1)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "zeta", results[0].Chunk.ID)
	assert.Equal(t, "alpha", results[1].Chunk.ID)
	assert.Equal(t, "mid", results[2].Chunk.ID)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	s := openStore(t, 3)

	results, err := s.Retrieve(context.Background(), []float32{1, 0, 0}, 5, 0.75)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpsertReplacesVector(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 3)

	require.NoError(t, s.Add(ctx, []corpus.Chunk{
		{ID: "c1", DocID: "d1", Text: "old", Embedding: []float32{1, 0, 0}},
	}))
	require.NoError(t, s.Add(ctx, []corpus.Chunk{
		{ID: "c1", DocID: "d1", Text: "new", Embedding: []float32{0, 1, 0}},
	}))

	results, err := s.Similar(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "new", results[0].Chunk.Text)
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 3)

	require.NoError(t, s.AddDocuments(ctx, []corpus.Document{{
		ID:      "d1",
		Name:    "paper.pdf",
		Title:   "A Paper",
		Authors: []string{"Ada", "Grace"},
		Year:    2022,
		DOI:     "10.1000/xyz",
	}}))

	doc, ok, err := s.Document(ctx, "d1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A Paper", doc.Title)
	assert.Equal(t, []string{"Ada", "Grace"}, doc.Authors)
	assert.Equal(t, 2022, doc.Year)

	_, ok, err = s.Document(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchTextMatchesAndFiltersYear(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 3)

	require.NoError(t, s.AddDocuments(ctx, []corpus.Document{
		{ID: "d-old", Title: "Old Transformers", Year: 1999},
		{ID: "d-new", Title: "New Transformers", Year: 2021},
	}))
	require.NoError(t, s.Add(ctx, []corpus.Chunk{
		{ID: "c1", DocID: "d-old", Text: "transformer models for sequence tasks", Embedding: []float32{1, 0, 0}},
		{ID: "c2", DocID: "d-new", Text: "transformer scaling laws revisited", Embedding: []float32{0, 1, 0}},
		{ID: "c3", DocID: "d-new", Text: "convolutional baselines", Embedding: []float32{0, 0, 1}},
	}))

	hits, err := s.SearchText(ctx, "transformer", index.SearchOpts{})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = s.SearchText(ctx, "transformer", index.SearchOpts{MinYear: 2010})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].ChunkID)
	assert.Equal(t, "New Transformers", hits[0].Title)
}

func TestSearchTextMediaRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 3)

	require.NoError(t, s.Add(ctx, []corpus.Chunk{{
		ID:        "c1",
		DocID:     "d1",
		Text:      "figure caption chunk",
		Embedding: []float32{1, 0, 0},
		Media:     []corpus.Media{{Kind: corpus.MediaKindImage, Description: "loss curve"}},
	}}))

	results, err := s.Similar(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Chunk.Media, 1)
	assert.Equal(t, corpus.MediaKindImage, results[0].Chunk.Media[0].Kind)
}
