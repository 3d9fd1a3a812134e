package models

import "fmt"

// UnsupportedFormatError is returned when a file's declared or sniffed
// format is not one of the accepted input formats.
type UnsupportedFormatError struct {
	Path   string
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("unsupported format: unable to determine format of %s", e.Path)
	}
	return fmt.Sprintf("unsupported format %q for %s", e.Format, e.Path)
}

// ExtractionError is returned when a recognized format is malformed or
// text cannot be recovered (e.g. a scanned PDF with no embedded text
// layer). It is a reported, non-fatal condition: batch ingestion skips
// the document and continues.
type ExtractionError struct {
	Path   string
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingProviderError is surfaced after the embedding provider retry
// budget is exhausted.
type EmbeddingProviderError struct {
	DocumentID string
	Err        error
}

func (e *EmbeddingProviderError) Error() string {
	if e.DocumentID != "" {
		return fmt.Sprintf("embedding provider failed for document %s: %v", e.DocumentID, e.Err)
	}
	return fmt.Sprintf("embedding provider failed: %v", e.Err)
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Err }

// DimensionMismatchError indicates the provider returned vectors whose
// dimensionality does not match the configured index dimensionality.
// This is a fatal configuration error, never retried.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index configured for %d, provider returned %d", e.Want, e.Got)
}

// IndexOperationError is surfaced after a vector index upsert, query or
// delete fails past its retry budget.
type IndexOperationError struct {
	Op         string // "upsert", "query", "delete", "ensure"
	Collection string
	Err        error
}

func (e *IndexOperationError) Error() string {
	return fmt.Sprintf("index %s failed on collection %s: %v", e.Op, e.Collection, e.Err)
}

func (e *IndexOperationError) Unwrap() error { return e.Err }

// SynthesisProviderError is surfaced after the LLM provider retry
// budget is exhausted during answer synthesis.
type SynthesisProviderError struct {
	QueryID string
	Err     error
}

func (e *SynthesisProviderError) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("synthesis provider failed for query %s: %v", e.QueryID, e.Err)
	}
	return fmt.Sprintf("synthesis provider failed: %v", e.Err)
}

func (e *SynthesisProviderError) Unwrap() error { return e.Err }

// IngestInProgressError rejects a concurrent re-ingestion of a document
// id that is already being ingested. The caller may retry once the
// first ingestion finishes.
type IngestInProgressError struct {
	DocumentID string
}

func (e *IngestInProgressError) Error() string {
	return fmt.Sprintf("ingestion already in progress for document %s", e.DocumentID)
}
