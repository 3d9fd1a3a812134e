package loader

import (
	"fmt"
	"unicode/utf8"

	"github.com/responsa-ai/responsa/internal/models"
)

// extractPlainText accepts .txt input as-is. Invalid UTF-8 means the
// file is binary masquerading as text.
func extractPlainText(name string, data []byte) ([]pageText, error) {
	if !utf8.Valid(data) {
		return nil, &models.ExtractionError{Path: name, Format: models.FormatText, Err: fmt.Errorf("content is not valid UTF-8")}
	}
	return []pageText{{page: 1, text: string(data)}}, nil
}
