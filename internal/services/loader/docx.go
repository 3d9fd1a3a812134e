package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/responsa-ai/responsa/internal/models"
)

// extractDOCX extracts paragraph text from a DOCX container. DOCX has
// no fixed pagination, so the whole body maps to a single page-1
// section. Only word/document.xml is consulted; headers, footers and
// embedded media are dropped as boilerplate.
func (s *Service) extractDOCX(name string, data []byte) ([]pageText, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &models.ExtractionError{Path: name, Format: models.FormatDOCX, Err: fmt.Errorf("not a valid DOCX container: %w", err)}
	}

	var docXML io.ReadCloser
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return nil, &models.ExtractionError{Path: name, Format: models.FormatDOCX, Err: fmt.Errorf("failed to open document.xml: %w", err)}
			}
			break
		}
	}
	if docXML == nil {
		return nil, &models.ExtractionError{Path: name, Format: models.FormatDOCX, Err: fmt.Errorf("word/document.xml missing")}
	}
	defer docXML.Close()

	text, err := decodeDocumentXML(docXML)
	if err != nil {
		return nil, &models.ExtractionError{Path: name, Format: models.FormatDOCX, Err: err}
	}

	return []pageText{{page: 1, text: text}}, nil
}

// decodeDocumentXML walks WordprocessingML, emitting one line per w:p
// paragraph with a blank line between paragraphs. Text runs (w:t),
// tabs and explicit breaks are the only content elements carried over.
func decodeDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var out strings.Builder
	var paragraph strings.Builder
	inText := false

	flush := func() {
		if strings.TrimSpace(paragraph.String()) != "" {
			if out.Len() > 0 {
				out.WriteString("\n\n")
			}
			out.WriteString(paragraph.String())
		}
		paragraph.Reset()
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte(' ')
			case "br", "cr":
				paragraph.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	flush()

	return out.String(), nil
}
