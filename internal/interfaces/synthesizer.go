package interfaces

import (
	"context"

	"github.com/responsa-ai/responsa/internal/models"
)

// Retriever produces a ranked, deduplicated set of candidate chunks
// with similarity scores and provenance for a natural-language query.
type Retriever interface {
	// Retrieve embeds the query, searches the vector index, dedupes by
	// chunk id keeping the highest score, and optionally expands each
	// surviving match with its overlap neighbours. Filter may scope the
	// search to specific documents.
	Retrieve(ctx context.Context, queryText string, filter *IndexFilter) (*models.RetrievalResult, error)
}

// Synthesizer composes a grounded answer from retrieved chunks. Every
// citation in the returned answer resolves to a chunk present in the
// retrieval result; when the retrieved content cannot support an
// answer, the synthesizer returns an explicit insufficient-evidence
// response instead of fabricating one.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, result *models.RetrievalResult) (*models.Answer, error)
}
