// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package research

import (
	"context"

	"github.com/citeseek-dev/citeseek/internal/corpus"
	"github.com/citeseek-dev/citeseek/internal/index"
)

// CitationResolver formats a citation string for a document reference.
// Implementations must degrade to a minimal citation rather than fail:
// every gathered chunk needs some citation.
type CitationResolver interface {
	CitationFor(ctx context.Context, docID string) (string, error)
}

type lookupCitations struct {
	docs index.DocumentLookup
}

// NewCitationResolver builds a resolver over the index's document
// metadata. Unknown documents fall back to citing the bare id.
func NewCitationResolver(docs index.DocumentLookup) CitationResolver {
	return &lookupCitations{docs: docs}
}

func (r *lookupCitations) CitationFor(ctx context.Context, docID string) (string, error) {
	doc, ok, err := r.docs.Document(ctx, docID)
	if err != nil || !ok {
		// Metadata lookup is best-effort; a bare document id still
		// identifies the source.
		return docID, nil
	}
	return corpus.Citation(doc), nil
}
