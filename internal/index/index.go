// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package index defines the vector index boundary: nearest-neighbor and
// MMR retrieval over chunk embeddings, plus the keyword-search and
// document-lookup capabilities backends expose alongside it.
package index

import (
	"context"
	"math"

	"github.com/citeseek-dev/citeseek/internal/corpus"
)

// Result is a retrieved chunk with its raw cosine similarity to the query.
type Result struct {
	Chunk      corpus.Chunk
	Similarity float64
}

// Index answers similarity and MMR queries over stored chunk embeddings.
// Implementations must be safe for concurrent readers and must answer
// each query from a consistent snapshot of the index contents.
type Index interface {
	// Similar returns up to k chunks ordered by descending cosine
	// similarity to the query. An empty index yields an empty result,
	// not an error.
	Similar(ctx context.Context, query []float32, k int) ([]Result, error)

	// Retrieve returns up to k chunks selected by Maximum Marginal
	// Relevance with the given lambda. lambda=1 is pure relevance
	// ranking, lambda=0 pure diversity. Fewer than k results is
	// success, not an error.
	Retrieve(ctx context.Context, query []float32, k int, lambda float64) ([]Result, error)

	Close() error
}

// Writer is the ingestion-side boundary. Index growth happens only
// through it; the retrieval pipeline never writes.
type Writer interface {
	Add(ctx context.Context, chunks []corpus.Chunk) error
}

// DocumentLookup resolves chunk document references to their metadata.
type DocumentLookup interface {
	Document(ctx context.Context, docID string) (corpus.Document, bool, error)
}

// DocumentWriter ingests document metadata alongside chunk vectors.
type DocumentWriter interface {
	AddDocuments(ctx context.Context, docs []corpus.Document) error
}

// SearchOpts constrains a keyword search.
type SearchOpts struct {
	Limit   int
	MinYear int
	MaxYear int
}

// SearchHit is one keyword-search match.
type SearchHit struct {
	ChunkID string
	DocID   string
	Title   string
	Year    int
	Snippet string
}

// TextSearcher answers keyword queries over chunk text. It backs the
// paper_search tool and is safe to call concurrently.
type TextSearcher interface {
	SearchText(ctx context.Context, query string, opts SearchOpts) ([]SearchHit, error)
}

// Cosine returns the cosine similarity of two vectors. Mismatched or
// zero-magnitude vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
