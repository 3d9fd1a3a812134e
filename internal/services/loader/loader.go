// -----------------------------------------------------------------------
// Document Loader - normalize PDF, DOCX, email and plain-text input
// into citable plain text with per-span page metadata
// -----------------------------------------------------------------------

package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
)

// Service implements the DocumentLoader interface.
type Service struct {
	maxFileSize int64
	tempDir     string
	logger      arbor.ILogger
}

var _ interfaces.DocumentLoader = (*Service)(nil)

// NewService creates a new document loader service.
func NewService(config *common.LoaderConfig, logger arbor.ILogger) *Service {
	tempDir := filepath.Join(os.TempDir(), "responsa-loader")
	os.MkdirAll(tempDir, 0755)

	return &Service{
		maxFileSize: config.MaxFileSize,
		tempDir:     tempDir,
		logger:      logger,
	}
}

// Load reads and normalizes the file at path.
func (s *Service) Load(ctx context.Context, path string) (*models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return nil, &models.ExtractionError{
			Path:   path,
			Format: strings.TrimPrefix(filepath.Ext(path), "."),
			Err:    fmt.Errorf("file size %d exceeds limit %d", info.Size(), s.maxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := s.LoadBytes(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	doc.SourcePath = path
	doc.ID = common.DocumentIDFromPath(path)
	return doc, nil
}

// LoadBytes normalizes in-memory content with a declared file name.
func (s *Service) LoadBytes(ctx context.Context, name string, data []byte) (*models.Document, error) {
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, &models.ExtractionError{
			Path:   name,
			Format: strings.TrimPrefix(filepath.Ext(name), "."),
			Err:    fmt.Errorf("content size %d exceeds limit %d", len(data), s.maxFileSize),
		}
	}

	format, err := detectFormat(name, data)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var pages []pageText
	switch format {
	case models.FormatPDF:
		pages, err = s.extractPDF(ctx, name, data)
	case models.FormatDOCX:
		pages, err = s.extractDOCX(name, data)
	case models.FormatEmail:
		pages, err = s.extractEmail(name, data)
	case models.FormatText:
		pages, err = extractPlainText(name, data)
	}
	if err != nil {
		return nil, err
	}

	doc := assembleDocument(name, format, pages)
	if strings.TrimSpace(doc.Text) == "" {
		return nil, &models.ExtractionError{
			Path:   name,
			Format: format,
			Err:    fmt.Errorf("no text content recovered"),
		}
	}

	s.logger.Debug().
		Str("name", name).
		Str("format", format).
		Int("pages", len(pages)).
		Int("text_length", len(doc.Text)).
		Dur("duration", time.Since(start)).
		Msg("Document loaded")

	return doc, nil
}

// pageText is one source unit of extracted text before normalization.
type pageText struct {
	page int
	text string
}

// assembleDocument normalizes each page, joins pages with a paragraph
// break, and records section offsets for citation.
func assembleDocument(name, format string, pages []pageText) *models.Document {
	now := time.Now()
	doc := &models.Document{
		ID:        common.NewDocumentID(),
		Name:      name,
		Format:    format,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var b strings.Builder
	for _, p := range pages {
		normalized := NormalizeText(p.text)
		if normalized == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		start := b.Len()
		b.WriteString(normalized)
		doc.Sections = append(doc.Sections, models.Section{
			Page:  p.page,
			Start: start,
			End:   b.Len(),
		})
	}
	doc.Text = b.String()
	return doc
}

// detectFormat resolves the document format from the file extension,
// falling back to content sniffing when the extension is missing.
// Plain text requires an explicit .txt extension; nothing else is
// accepted without one.
func detectFormat(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return models.FormatPDF, nil
	case ".docx":
		return models.FormatDOCX, nil
	case ".eml":
		return models.FormatEmail, nil
	case ".txt":
		return models.FormatText, nil
	case "":
		return sniffFormat(name, data)
	default:
		return "", &models.UnsupportedFormatError{Path: name, Format: strings.TrimPrefix(filepath.Ext(name), ".")}
	}
}

// sniffFormat identifies PDF, DOCX and RFC 5322 email from content.
func sniffFormat(name string, data []byte) (string, error) {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return models.FormatPDF, nil
	}
	// DOCX is a zip container
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return models.FormatDOCX, nil
	}
	if looksLikeEmail(data) {
		return models.FormatEmail, nil
	}
	return "", &models.UnsupportedFormatError{Path: name}
}

var emailHeaderPrefixes = []string{"Received:", "From:", "Return-Path:", "Delivered-To:", "Subject:", "Date:", "Message-ID:"}

func looksLikeEmail(data []byte) bool {
	head := data
	if len(head) > 2048 {
		head = head[:2048]
	}
	s := string(head)
	for _, prefix := range emailHeaderPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
