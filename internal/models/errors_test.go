package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUnwrapping(t *testing.T) {
	cause := fmt.Errorf("connection refused")

	tests := []struct {
		name string
		err  error
	}{
		{"extraction", &ExtractionError{Path: "a.pdf", Format: FormatPDF, Err: cause}},
		{"embedding", &EmbeddingProviderError{DocumentID: "doc_a", Err: cause}},
		{"index", &IndexOperationError{Op: "upsert", Collection: "c", Err: cause}},
		{"synthesis", &SynthesisProviderError{QueryID: "qry_a", Err: cause}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}

func TestErrorsCarryContext(t *testing.T) {
	err := &UnsupportedFormatError{Path: "report.xlsx", Format: "xlsx"}
	assert.Contains(t, err.Error(), "xlsx")
	assert.Contains(t, err.Error(), "report.xlsx")

	unknown := &UnsupportedFormatError{Path: "mystery.bin"}
	assert.Contains(t, unknown.Error(), "unable to determine")

	dim := &DimensionMismatchError{Want: 768, Got: 1536}
	assert.Contains(t, dim.Error(), "768")
	assert.Contains(t, dim.Error(), "1536")

	busy := &IngestInProgressError{DocumentID: "doc_a"}
	assert.Contains(t, busy.Error(), "doc_a")
}

func TestErrorTypeAssertions(t *testing.T) {
	var wrapped error = fmt.Errorf("pipeline: %w", &EmbeddingProviderError{DocumentID: "doc_a", Err: errors.New("quota")})

	var embErr *EmbeddingProviderError
	require.ErrorAs(t, wrapped, &embErr)
	assert.Equal(t, "doc_a", embErr.DocumentID)
}
