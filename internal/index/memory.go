// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package index

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/citeseek-dev/citeseek/internal/corpus"
	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// Compile-time interface checks.
var (
	_ Index          = (*Memory)(nil)
	_ Writer         = (*Memory)(nil)
	_ DocumentLookup = (*Memory)(nil)
	_ TextSearcher   = (*Memory)(nil)
)

// Memory is an in-process index over a slice of chunks. Suitable for
// tests and small corpora; queries are linear scans over a snapshot
// taken under the read lock.
type Memory struct {
	mu     sync.RWMutex
	chunks []corpus.Chunk
	byID   map[string]int
	docs   map[string]corpus.Document
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{
		byID: make(map[string]int),
		docs: make(map[string]corpus.Document),
	}
}

// Add appends chunks to the index. A chunk id already present replaces
// the prior entry in place, keeping its original insertion position.
func (m *Memory) Add(_ context.Context, chunks []corpus.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		if c.ID == "" {
			return cserr.New(cserr.CodeIndexAddInvalidInput, "chunk id is required")
		}
		if len(c.Embedding) == 0 {
			return cserr.New(cserr.CodeIndexAddInvalidInput, "chunk embedding is required", cserr.FieldChunkID(c.ID))
		}
		if pos, ok := m.byID[c.ID]; ok {
			m.chunks[pos] = c
			continue
		}
		m.byID[c.ID] = len(m.chunks)
		m.chunks = append(m.chunks, c)
	}
	return nil
}

// AddDocument records document metadata for citation lookup.
func (m *Memory) AddDocument(doc corpus.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
}

// AddDocuments records a batch of document metadata.
func (m *Memory) AddDocuments(_ context.Context, docs []corpus.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		m.docs[doc.ID] = doc
	}
	return nil
}

// Document returns the stored metadata for a document id.
func (m *Memory) Document(_ context.Context, docID string) (corpus.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[docID]
	return doc, ok, nil
}

func (m *Memory) snapshot() []corpus.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]corpus.Chunk, len(m.chunks))
	copy(out, m.chunks)
	return out
}

// Similar returns up to k chunks by descending cosine similarity.
// Ties break by insertion order.
func (m *Memory) Similar(ctx context.Context, query []float32, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	chunks := m.snapshot()
	results := make([]Result, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, Result{Chunk: c, Similarity: Cosine(query, c.Embedding)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Retrieve performs MMR selection over the full index contents.
func (m *Memory) Retrieve(ctx context.Context, query []float32, k int, lambda float64) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	chunks := m.snapshot()
	cands := make([]mmrCandidate, 0, len(chunks))
	for i, c := range chunks {
		cands = append(cands, mmrCandidate{
			chunk: c,
			sim:   Cosine(query, c.Embedding),
			order: i,
		})
	}

	return selectMMR(buildPool(cands, k), k, lambda), nil
}

// SearchText is a naive case-insensitive substring match over chunk
// text, with optional year-range filtering on document metadata. The
// sqlitevec backend provides real FTS; this keeps the keyword-search
// capability available for tests and tiny corpora.
func (m *Memory) SearchText(ctx context.Context, query string, opts SearchOpts) ([]SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []SearchHit
	for _, c := range m.chunks {
		if !strings.Contains(strings.ToLower(c.Text), query) {
			continue
		}
		doc := m.docs[c.DocID]
		if opts.MinYear > 0 && doc.Year > 0 && doc.Year < opts.MinYear {
			continue
		}
		if opts.MaxYear > 0 && doc.Year > 0 && doc.Year > opts.MaxYear {
			continue
		}

		title := doc.Title
		if title == "" {
			title = doc.Name
		}
		hits = append(hits, SearchHit{
			ChunkID: c.ID,
			DocID:   c.DocID,
			Title:   title,
			Year:    doc.Year,
			Snippet: snippet(c.Text, 160),
		})
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// Close releases nothing for the in-memory backend.
func (m *Memory) Close() error { return nil }

func snippet(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := strings.LastIndexByte(text[:n], ' ')
	if cut <= 0 {
		cut = n
	}
	return text[:cut] + "…"
}
