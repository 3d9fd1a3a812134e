// -----------------------------------------------------------------------
// Chunker - split normalized documents into overlapping chunks sized
// for the embedding model, preferring paragraph and sentence boundaries
// -----------------------------------------------------------------------

package chunker

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
)

// charsPerToken approximates the embedding model's tokenizer for
// English prose. The token budget in configuration converts to a
// character budget through this ratio.
const charsPerToken = 4

// Service implements the Chunker interface.
type Service struct {
	maxTokens     int
	overlapTokens int
	logger        arbor.ILogger
}

var _ interfaces.Chunker = (*Service)(nil)

// NewService creates a new chunker. Overlap must be smaller than the
// chunk budget (enforced at config validation).
func NewService(config *common.ChunkerConfig, logger arbor.ILogger) *Service {
	return &Service{
		maxTokens:     config.MaxTokens,
		overlapTokens: config.OverlapTokens,
		logger:        logger,
	}
}

// Chunk splits the document text into overlapping chunks. Chunk bodies
// tile the text exactly: concatenating every chunk's Body() yields
// Document.Text, so chunking is lossless modulo the carried overlap.
// Chunk ids derive from (document id, sequence index), making
// re-chunking with identical parameters idempotent.
func (s *Service) Chunk(doc *models.Document) ([]*models.Chunk, error) {
	text := doc.Text
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	maxChars := s.maxTokens * charsPerToken
	overlapChars := s.overlapTokens * charsPerToken
	bodyMax := maxChars - overlapChars

	var chunks []*models.Chunk
	pos := 0
	for pos < len(text) {
		end, degraded := splitPoint(text, pos, bodyMax)
		if degraded {
			s.logger.Warn().
				Str("doc_id", doc.ID).
				Int("seq", len(chunks)).
				Int("offset", pos).
				Msg("Degraded split: semantic unit exceeds chunk budget, hard-splitting")
		}

		overlapStart := overlapStart(text, pos, overlapChars)
		seq := len(chunks)

		chunks = append(chunks, &models.Chunk{
			ID:         models.ChunkID(doc.ID, seq),
			DocumentID: doc.ID,
			Seq:        seq,
			Text:       text[overlapStart:end],
			Start:      overlapStart,
			End:        end,
			OverlapLen: pos - overlapStart,
			Page:       doc.PageAt(pos),
		})

		pos = end
	}

	for i, c := range chunks {
		if i > 0 {
			c.PrevID = chunks[i-1].ID
		}
		if i < len(chunks)-1 {
			c.NextID = chunks[i+1].ID
		}
	}

	s.logger.Debug().
		Str("doc_id", doc.ID).
		Int("chunks", len(chunks)).
		Int("text_length", len(text)).
		Msg("Document chunked")

	return chunks, nil
}

// splitPoint returns the end offset of the chunk body starting at pos.
// It prefers the paragraph boundary nearest the budget, then a sentence
// boundary, then a word boundary. When not even a word boundary exists
// inside the window the text is hard-split at the budget and degraded
// is true.
func splitPoint(text string, pos, bodyMax int) (end int, degraded bool) {
	if len(text)-pos <= bodyMax {
		return len(text), false
	}
	window := text[pos : pos+bodyMax]

	// Paragraph boundary: split after the blank line
	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return pos + idx + 2, false
	}

	// Sentence boundary: split after terminal punctuation
	if idx := lastSentenceEnd(window); idx > 0 {
		return pos + idx, false
	}

	// Word boundary
	if idx := strings.LastIndexAny(window, " \n"); idx > 0 {
		return pos + idx + 1, false
	}

	return pos + bodyMax, true
}

// lastSentenceEnd finds the offset just past the last sentence-ending
// punctuation followed by whitespace.
func lastSentenceEnd(window string) int {
	best := -1
	for i := len(window) - 2; i >= 0; i-- {
		c := window[i]
		if (c == '.' || c == '!' || c == '?') && (window[i+1] == ' ' || window[i+1] == '\n') {
			best = i + 2
			break
		}
	}
	return best
}

// overlapStart computes where the carried-forward overlap begins for a
// chunk whose body starts at pos. The overlap never starts mid-word: it
// advances to the next word boundary, shrinking rather than growing the
// configured window.
func overlapStart(text string, pos, overlapChars int) int {
	if pos == 0 || overlapChars == 0 {
		return pos
	}
	start := pos - overlapChars
	if start <= 0 {
		return 0
	}
	// Snap forward to a word boundary
	for start < pos && text[start-1] != ' ' && text[start-1] != '\n' {
		start++
	}
	return start
}
