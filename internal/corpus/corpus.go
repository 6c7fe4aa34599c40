// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package corpus defines the document-side domain types: documents, the
// chunks they are split into, and citation formatting. Ingestion (parsing,
// chunking, embedding computation) happens upstream; this package only
// models the results.
package corpus

// Document identifies a source document and carries the bibliographic
// metadata available for it. Fields beyond Name are best-effort: the
// metadata collaborator may not resolve them, and citation formatting
// degrades gracefully when it does not.
type Document struct {
	ID      string
	Name    string
	Title   string
	Authors []string
	Year    int
	DOI     string

	// CitationCount and Retracted come from the metadata enrichment
	// collaborator when available.
	CitationCount int
	Retracted     bool
}

// MediaKind distinguishes auxiliary chunk media.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindTable MediaKind = "table"
)

// Media describes an image or table attached to a chunk. Description is a
// textual rendering suitable for inclusion in an LLM prompt.
type Media struct {
	Kind        MediaKind
	Description string
}

// Chunk is a bounded span of a document with its precomputed embedding.
// Chunks are immutable once created.
type Chunk struct {
	ID        string
	DocID     string
	Text      string
	Embedding []float32
	Media     []Media
}
