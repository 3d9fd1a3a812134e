package interfaces

import "context"

// EmbeddingClient wraps the external embedding capability behind a
// stable interface. Implementations handle batching to the provider's
// limit, rate limiting, and bounded retry with backoff; they validate
// that returned vectors match the configured index dimensionality
// before handing off (a mismatch is fatal, not retried).
type EmbeddingClient interface {
	// Embed returns one vector per input text, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query. Queries may
	// receive different preparation than document chunks.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimension returns the configured vector dimensionality.
	Dimension() int
}
