package interfaces

import "github.com/responsa-ai/responsa/internal/models"

// ListOptions filters document listings.
type ListOptions struct {
	Status string
	Limit  int
	Offset int
}

// DocumentStorage persists normalized documents and their chunk sets.
// Chunks are stored alongside the document so the retriever can expand
// overlap neighbours without round-tripping the vector index.
type DocumentStorage interface {
	SaveDocument(doc *models.Document) error
	GetDocument(id string) (*models.Document, error)
	ListDocuments(opts *ListOptions) ([]*models.Document, error)

	// DeleteDocument removes the document and every chunk it owns.
	DeleteDocument(id string) error

	SaveChunks(chunks []*models.Chunk) error
	GetChunk(id string) (*models.Chunk, error)

	// GetChunksByDocument returns the document's chunks ordered by
	// sequence index.
	GetChunksByDocument(documentID string) ([]*models.Chunk, error)

	// DeleteChunksByDocument removes the document's chunk set, used
	// before re-ingestion upserts the replacement set.
	DeleteChunksByDocument(documentID string) error
}

// StorageManager owns the database connection and hands out the typed
// storage interfaces.
type StorageManager interface {
	DocumentStorage() DocumentStorage
	Close() error
}
