package interfaces

import (
	"context"

	"github.com/responsa-ai/responsa/internal/models"
)

// DocumentLoader converts a raw input file into a normalized Document
// with positional metadata for citation.
type DocumentLoader interface {
	// Load reads the file at path, detects its format from the
	// extension (or content sniffing when the extension is missing),
	// extracts plain text and normalizes whitespace while preserving
	// paragraph boundaries. Returns UnsupportedFormatError for
	// unrecognized input and ExtractionError when text cannot be
	// recovered from a recognized format.
	Load(ctx context.Context, path string) (*models.Document, error)

	// LoadBytes is Load for in-memory content with a declared file name
	// (used for format detection and document naming).
	LoadBytes(ctx context.Context, name string, data []byte) (*models.Document, error)
}

// Chunker splits a normalized document into overlapping chunks sized
// for the embedding model's input limit.
type Chunker interface {
	// Chunk splits the document text, preferring paragraph and sentence
	// boundaries nearest the token budget. Output ordering matches
	// document order and chunk ids are deterministic, so re-chunking
	// with identical parameters is idempotent.
	Chunk(doc *models.Document) ([]*models.Chunk, error)
}
