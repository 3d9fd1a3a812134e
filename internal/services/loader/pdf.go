package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/responsa-ai/responsa/internal/models"
)

// extractPDF extracts per-page text from a PDF using pdfcpu. pdfcpu has
// no direct text extraction, so page content streams are extracted to a
// scratch directory and the text-showing operators decoded from them.
func (s *Service) extractPDF(ctx context.Context, name string, data []byte) ([]pageText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp(s.tempDir, "extract_*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp PDF file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	tempFile.Close()

	pdfCtx, err := api.ReadContextFile(tempPath)
	if err != nil {
		return nil, &models.ExtractionError{Path: name, Format: models.FormatPDF, Err: fmt.Errorf("failed to read PDF: %w", err)}
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp(s.tempDir, "pages_")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempPath, outDir, nil, conf); err != nil {
		return nil, &models.ExtractionError{Path: name, Format: models.FormatPDF, Err: fmt.Errorf("failed to extract page content: %w", err)}
	}

	pageContent := make(map[int][]byte)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		pageNum, ok := pageNumberFromFilename(file.Name())
		if !ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		pageContent[pageNum] = append(pageContent[pageNum], content...)
	}

	pages := make([]pageText, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages = append(pages, pageText{
			page: pageNum,
			text: decodeContentText(pageContent[pageNum]),
		})
	}

	return pages, nil
}

// pageNumberFromFilename parses pdfcpu's extracted content file names
// (page_N or Content_page_N variants).
func pageNumberFromFilename(name string) (int, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	idx := strings.LastIndex(base, "page_")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(base[idx+len("page_"):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// decodeContentText pulls the text shown by Tj/TJ/'/" operators out of
// a decoded PDF content stream. Positioning operators that start a new
// line (Td, TD, T*) become newlines so paragraph structure survives
// where the producer encoded it.
func decodeContentText(content []byte) string {
	var out strings.Builder
	var literal strings.Builder
	inLiteral := false
	depth := 0
	pendingText := false

	flushOp := func(op string) {
		switch op {
		case "Tj", "TJ", "'", "\"":
			pendingText = true
		case "Td", "TD", "T*", "ET":
			if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
				out.WriteByte('\n')
			}
		}
	}

	var token strings.Builder
	for i := 0; i < len(content); i++ {
		c := content[i]

		if inLiteral {
			switch c {
			case '\\':
				if i+1 < len(content) {
					i++
					switch content[i] {
					case 'n':
						literal.WriteByte('\n')
					case 't':
						literal.WriteByte(' ')
					case 'r':
						// carriage returns normalize away
					case '(', ')', '\\':
						literal.WriteByte(content[i])
					default:
						// Octal escapes and anything else: best effort
						if content[i] >= '0' && content[i] <= '7' {
							end := i
							for end < len(content) && end-i < 3 && content[end] >= '0' && content[end] <= '7' {
								end++
							}
							if v, err := strconv.ParseUint(string(content[i:end]), 8, 16); err == nil && v >= 32 && v < 127 {
								literal.WriteByte(byte(v))
							}
							i = end - 1
						}
					}
				}
			case '(':
				depth++
				literal.WriteByte(c)
			case ')':
				if depth == 0 {
					inLiteral = false
				} else {
					depth--
					literal.WriteByte(c)
				}
			default:
				literal.WriteByte(c)
			}
			continue
		}

		switch {
		case c == '(':
			inLiteral = true
			depth = 0
		case c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '[' || c == ']':
			if token.Len() > 0 {
				flushOp(token.String())
				token.Reset()
			}
		default:
			token.WriteByte(c)
		}

		if pendingText {
			text := literal.String()
			literal.Reset()
			pendingText = false
			if text != "" {
				out.WriteString(text)
				out.WriteByte(' ')
			}
		}
	}
	if token.Len() > 0 {
		flushOp(token.String())
	}
	if pendingText && literal.Len() > 0 {
		out.WriteString(literal.String())
	}

	return out.String()
}
