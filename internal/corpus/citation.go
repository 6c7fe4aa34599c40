// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package corpus

import (
	"fmt"
	"strings"
)

// Citation formats a human-readable citation string for a document.
// When bibliographic metadata is missing the result falls back to the
// document name (or id) rather than failing: a chunk must always be
// citable, however minimally.
func Citation(doc Document) string {
	if doc.Title == "" {
		if doc.Name != "" {
			return doc.Name
		}
		return doc.ID
	}

	var b strings.Builder

	switch {
	case len(doc.Authors) == 0:
	case len(doc.Authors) <= 3:
		b.WriteString(strings.Join(doc.Authors, ", "))
	default:
		b.WriteString(doc.Authors[0])
		b.WriteString(" et al.")
	}

	if doc.Year > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "(%d)", doc.Year)
	}

	if b.Len() > 0 {
		b.WriteString(". ")
	}
	b.WriteString(doc.Title)

	if doc.DOI != "" {
		fmt.Fprintf(&b, ". https://doi.org/%s", doc.DOI)
	}

	if doc.Retracted {
		b.WriteString(" [RETRACTED]")
	}

	return b.String()
}
