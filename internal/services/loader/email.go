package loader

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/responsa-ai/responsa/internal/models"
)

// extractEmail extracts the subject and every inline text/plain part
// from an RFC 5322 message. Attachments and non-text parts are
// dropped; an HTML-only message with no plain-text alternative is an
// extraction failure rather than a half-parsed document.
func (s *Service) extractEmail(name string, data []byte) ([]pageText, error) {
	mr, err := mail.CreateReader(bytes.NewReader(data))
	if err != nil {
		return nil, &models.ExtractionError{Path: name, Format: models.FormatEmail, Err: fmt.Errorf("failed to parse message: %w", err)}
	}
	defer mr.Close()

	var parts []string
	bodyParts := 0
	if subject, err := mr.Header.Subject(); err == nil && subject != "" {
		parts = append(parts, "Subject: "+subject)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &models.ExtractionError{Path: name, Format: models.FormatEmail, Err: fmt.Errorf("failed to read message part: %w", err)}
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue // attachment
		}
		contentType, _, err := header.ContentType()
		if err != nil || contentType != "text/plain" {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, &models.ExtractionError{Path: name, Format: models.FormatEmail, Err: fmt.Errorf("failed to read message body: %w", err)}
		}
		if text := strings.TrimSpace(string(body)); text != "" {
			parts = append(parts, text)
			bodyParts++
		}
	}

	// Subject alone is not recoverable text
	if bodyParts == 0 {
		return nil, &models.ExtractionError{Path: name, Format: models.FormatEmail, Err: fmt.Errorf("no text/plain body found")}
	}

	return []pageText{{page: 1, text: strings.Join(parts, "\n\n")}}, nil
}
