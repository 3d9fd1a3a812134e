package interfaces

import (
	"context"

	"github.com/responsa-ai/responsa/internal/models"
)

// IndexFilter narrows a similarity query to a subset of the collection.
type IndexFilter struct {
	// DocumentIDs restricts matches to chunks owned by these documents.
	// Empty means the whole collection.
	DocumentIDs []string
}

// VectorIndex wraps the external vector-store capability. The adapter
// owns collection identity for a document corpus: one collection per
// corpus/tenant, so retrieval never crosses namespaces. Upsert is
// idempotent by chunk id; re-upserting overwrites, never duplicates.
type VectorIndex interface {
	// EnsureCollection creates the scoped collection for the given
	// vector dimensionality if it does not exist.
	EnsureCollection(ctx context.Context, dimension int) error

	// Upsert writes embedding records keyed by chunk id.
	Upsert(ctx context.Context, records []*models.EmbeddingRecord) error

	// Query returns up to topK matches ranked by similarity score,
	// most similar first. Score scale is backend-native and documented
	// by the implementation.
	Query(ctx context.Context, vector []float32, topK int, filter *IndexFilter) ([]models.Match, error)

	// DeleteDocument removes every chunk belonging to the document so
	// stale records cannot leak into later queries.
	DeleteDocument(ctx context.Context, documentID string) error
}
