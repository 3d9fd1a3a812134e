package models

import (
	"fmt"
	"time"
)

// Document formats accepted by the loader. Anything else is rejected
// with an UnsupportedFormatError.
const (
	FormatPDF   = "pdf"
	FormatDOCX  = "docx"
	FormatEmail = "eml"
	FormatText  = "txt"
)

// Document status values. A document becomes queryable only once every
// chunk embedding has been upserted into the vector index.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
)

// Document represents a normalized source document. Documents are
// immutable once ingested; re-ingestion supersedes the previous version
// rather than mutating it.
type Document struct {
	ID         string `json:"id"` // doc_<uuid> or derived from the source name
	Name       string `json:"name"`
	Format     string `json:"format"`
	SourcePath string `json:"source_path"`

	// Text is the normalized plain text: whitespace collapsed,
	// paragraph boundaries preserved as blank lines.
	Text string `json:"text"`

	// Sections map character ranges of Text back to source positions
	// (page numbers) for citation.
	Sections []Section `json:"sections"`

	// Fingerprint is a content hash over Text plus chunking parameters,
	// used to skip re-ingestion of unchanged documents.
	Fingerprint string `json:"fingerprint"`

	// Status transitions pending -> ready once all embeddings are
	// upserted. Queries against a pending document are not answered
	// from a partial chunk set.
	Status string `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Section is a contiguous span of the normalized text that originated
// from one source unit (a PDF page, an email body part). Page is
// 1-based; formats without fixed pagination use a single section with
// Page 1.
type Section struct {
	Page  int `json:"page"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// PageAt returns the source page for a character offset into the
// normalized text. Returns 1 when no section covers the offset.
func (d *Document) PageAt(offset int) int {
	for _, s := range d.Sections {
		if offset >= s.Start && offset < s.End {
			return s.Page
		}
	}
	if n := len(d.Sections); n > 0 && offset >= d.Sections[n-1].End {
		return d.Sections[n-1].Page
	}
	return 1
}

// Chunk is a bounded contiguous span of a document's normalized text.
// The chunk text may begin with an overlap region carried forward from
// the tail of the previous chunk; OverlapLen is its length in
// characters. Stripping the overlap from every chunk and concatenating
// the remainders reconstructs the document text exactly.
type Chunk struct {
	ID         string `json:"id"` // <documentID>:<seq>, deterministic
	DocumentID string `json:"document_id"`
	Seq        int    `json:"seq"`

	Text       string `json:"text"`
	Start      int    `json:"start"` // offset of Text[0] in Document.Text
	End        int    `json:"end"`   // exclusive
	OverlapLen int    `json:"overlap_len"`

	Page int `json:"page"` // source page of the chunk body

	// Overlap neighbours in document order. Empty at the edges.
	PrevID string `json:"prev_id,omitempty"`
	NextID string `json:"next_id,omitempty"`
}

// ChunkID derives the deterministic chunk identifier for a document and
// sequence index. Re-chunking the same document with the same
// parameters yields the same ids.
func ChunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s:%04d", documentID, seq)
}

// Body returns the chunk text with the carried-forward overlap removed.
func (c *Chunk) Body() string {
	if c.OverlapLen >= len(c.Text) {
		return ""
	}
	return c.Text[c.OverlapLen:]
}

// ChunkMetadata is the citation payload stored alongside each vector in
// the index. It carries everything needed to attribute an answer back
// to its source without a second lookup.
type ChunkMetadata struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Seq          int    `json:"seq"`
	Page         int    `json:"page"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
	Text         string `json:"text"`
}

// EmbeddingRecord pairs a chunk with its embedding vector for upsert
// into the vector index. Records are created at ingestion and never
// mutated; they are deleted only when the owning document is deleted or
// re-ingested.
type EmbeddingRecord struct {
	ChunkID  string        `json:"chunk_id"`
	Vector   []float32     `json:"vector"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Match is one ranked similarity hit from the vector index. Score is
// cosine similarity as reported by the index backend (higher is more
// similar; Qdrant cosine scores lie in [-1, 1], in practice [0, 1] for
// natural-language embeddings).
type Match struct {
	ChunkID  string        `json:"chunk_id"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`

	// Neighbor marks a chunk added by overlap-neighbour expansion
	// rather than retrieved on its own similarity.
	Neighbor bool `json:"neighbor,omitempty"`
}

// RetrievalResult is the ranked, deduplicated set of candidate chunks
// for one query. Scores are monotonically non-increasing in rank order
// and chunk ids are unique.
type RetrievalResult struct {
	QueryID string  `json:"query_id"`
	Query   string  `json:"query"`
	Matches []Match `json:"matches"`
}

// Contains reports whether a chunk id is present in the result.
func (r *RetrievalResult) Contains(chunkID string) bool {
	for _, m := range r.Matches {
		if m.ChunkID == chunkID {
			return true
		}
	}
	return false
}

// Citation attributes part of an answer to one retrieved chunk. Label
// is the 1-based ordinal the chunk was presented under in the grounding
// prompt.
type Citation struct {
	Label        int    `json:"label"`
	ChunkID      string `json:"chunk_id"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Page         int    `json:"page"`
}

// Answer is a synthesized, grounded response. Every citation resolves
// to a chunk present in the retrieval result that produced the answer;
// citations that do not resolve are dropped before the answer is
// returned. Insufficient is set when the supplied passages do not
// contain the evidence needed to answer.
type Answer struct {
	Text         string     `json:"text"`
	Citations    []Citation `json:"citations"`
	Rationale    string     `json:"rationale,omitempty"`
	Insufficient bool       `json:"insufficient"`
}
