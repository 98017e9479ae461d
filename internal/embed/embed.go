// Package embed generates embedding vectors for intents and repository
// summaries. All vectors produced by one provider share the same dimension
// and embedding space; swapping providers silently invalidates any vectors
// (and cached scores) computed with the previous one.
package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/ruvscan/ruvscan/internal/store"
)

// Provider produces embedding vectors from text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
}

// readmeExcerptLen bounds how much README content feeds the embedding.
const readmeExcerptLen = 1000

// RepoText composes the text that represents a repository in embedding
// space: name, description, topics, and a README excerpt.
func RepoText(r store.Repo) string {
	var parts []string

	if r.Name != "" {
		parts = append(parts, fmt.Sprintf("Repository: %s", r.Name))
	}
	if r.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", r.Description))
	}
	if len(r.Topics) > 0 {
		parts = append(parts, fmt.Sprintf("Topics: %s", strings.Join(r.Topics, ", ")))
	}
	if r.README != "" {
		excerpt := r.README
		if len(excerpt) > readmeExcerptLen {
			excerpt = excerpt[:readmeExcerptLen]
		}
		parts = append(parts, fmt.Sprintf("README: %s", excerpt))
	}

	return strings.Join(parts, "\n")
}
