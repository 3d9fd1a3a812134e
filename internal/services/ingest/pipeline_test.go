package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
	"github.com/responsa-ai/responsa/internal/services/chunker"
	"github.com/responsa-ai/responsa/internal/services/index"
	"github.com/responsa-ai/responsa/internal/services/retriever"
	"github.com/responsa-ai/responsa/internal/services/synthesizer"
)

// keywordEmbedder maps text to keyword-count vectors so cosine
// similarity in the memory index behaves like a tiny semantic search:
// chunks sharing keywords with the query rank above chunks that don't.
// Texts with no tracked keyword embed to the zero vector and score 0
// against everything, including each other.
type keywordEmbedder struct {
	keywords []string
}

func (e *keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := make([]float32, len(e.keywords))
		for k, keyword := range e.keywords {
			v[k] = float32(strings.Count(lower, keyword))
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *keywordEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *keywordEmbedder) Dimension() int { return len(e.keywords) }

type answerScript struct {
	response string
}

func (p *answerScript) GenerateContent(ctx context.Context, req *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	return &interfaces.ContentResponse{Text: p.response, Provider: "scripted", Model: "scripted-model"}, nil
}

func (p *answerScript) Close() error { return nil }

// policyDocument builds a three-page policy with the claim-filing
// sentence on page two, mirroring how the loader assembles sections.
func policyDocument() *models.Document {
	pages := []string{
		"Premiums are due on the first of each month. Coverage lapses when a premium is more than fifteen days late.",
		"Claims must be filed within 30 days of the incident. Late submissions require a written waiver from the insurer.",
		"Renewal terms are reviewed annually. The insurer may adjust coverage limits at renewal with sixty days notice.",
	}

	doc := &models.Document{
		ID:     "doc_policy",
		Name:   "policy.pdf",
		Format: models.FormatPDF,
		Status: models.StatusPending,
	}
	var b strings.Builder
	for i, page := range pages {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		start := b.Len()
		b.WriteString(page)
		doc.Sections = append(doc.Sections, models.Section{Page: i + 1, Start: start, End: b.Len()})
	}
	doc.Text = b.String()
	return doc
}

type qaPipeline struct {
	ingest      *Service
	retriever   interfaces.Retriever
	synthesizer interfaces.Synthesizer
	idx         *index.MemoryIndex
	script      *answerScript
}

func newQAPipeline(t *testing.T, doc *models.Document, keywords []string) *qaPipeline {
	t.Helper()

	logger := common.GetLogger()
	embedder := &keywordEmbedder{keywords: keywords}
	// One chunk per page: each page is its own paragraph under the budget
	chunkCfg := &common.ChunkerConfig{MaxTokens: 30, OverlapTokens: 0}
	idx := index.NewMemoryIndex()
	require.NoError(t, idx.EnsureCollection(context.Background(), embedder.Dimension()))
	store := newMemStore()
	script := &answerScript{}

	return &qaPipeline{
		ingest: NewService(&fakeLoader{doc: doc}, chunker.NewService(chunkCfg, logger),
			embedder, idx, store, chunkCfg, logger),
		retriever: retriever.NewService(embedder, idx, store,
			&common.RetrievalConfig{TopK: 2, MinScore: 0.25}, logger),
		synthesizer: synthesizer.NewService(script,
			&common.SynthesisConfig{MaxContextChunks: 10, InsufficientText: "The supplied documents do not contain enough information to answer this question."},
			&common.LLMConfig{Temperature: 0.3, MaxTokens: 4500}, logger),
		idx:    idx,
		script: script,
	}
}

func TestPipeline_ClaimDeadlineAnswerCitesPageTwo(t *testing.T) {
	ctx := context.Background()
	p := newQAPipeline(t, policyDocument(), []string{"claim", "filed", "deadline"})

	doc, err := p.ingest.IngestFile(ctx, "policy.pdf", false)
	require.NoError(t, err)
	require.Equal(t, models.StatusReady, doc.Status)

	result, err := p.retriever.Retrieve(ctx, "What is the claim filing deadline?", nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)

	top := result.Matches[0]
	assert.Contains(t, top.Metadata.Text, "Claims must be filed within 30 days")
	assert.Equal(t, 2, top.Metadata.Page)

	p.script.response = `{"answer": "Claims must be filed within 30 days of the incident.", "citations": [1], "insufficient": false}`
	answer, err := p.synthesizer.Synthesize(ctx, "What is the claim filing deadline?", result)
	require.NoError(t, err)

	assert.False(t, answer.Insufficient)
	require.NotEmpty(t, answer.Citations)
	assert.Equal(t, 2, answer.Citations[0].Page)
	assert.Equal(t, top.ChunkID, answer.Citations[0].ChunkID)
}

func TestPipeline_AbsentTopicYieldsInsufficientEvidence(t *testing.T) {
	ctx := context.Background()
	p := newQAPipeline(t, policyDocument(), []string{"claim", "filed", "deadline"})

	_, err := p.ingest.IngestFile(ctx, "policy.pdf", false)
	require.NoError(t, err)

	// Nothing in the policy mentions pets: every score falls below the
	// floor, so the synthesizer never sees a chunk to misuse
	result, err := p.retriever.Retrieve(ctx, "Are pets covered while travelling abroad?", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)

	p.script.response = `should never be used`
	answer, err := p.synthesizer.Synthesize(ctx, "Are pets covered while travelling abroad?", result)
	require.NoError(t, err)

	assert.True(t, answer.Insufficient)
	assert.Empty(t, answer.Citations)
	assert.NotContains(t, answer.Text, "never be used")
}

func TestPipeline_ReingestLeavesExactlyOneChunkSet(t *testing.T) {
	ctx := context.Background()
	doc := policyDocument()
	p := newQAPipeline(t, doc, []string{"claim", "filed", "deadline"})

	_, err := p.ingest.IngestFile(ctx, "policy.pdf", false)
	require.NoError(t, err)

	// Shrink the document so the old chunking had more chunks than the new
	doc.Text = "Claims must be filed within 30 days of the incident."
	doc.Sections = []models.Section{{Page: 1, Start: 0, End: len(doc.Text)}}

	_, err = p.ingest.IngestFile(ctx, "policy.pdf", false)
	require.NoError(t, err)

	query, err := (&keywordEmbedder{keywords: []string{"claim", "filed", "deadline"}}).EmbedQuery(ctx, "claim filed deadline")
	require.NoError(t, err)
	matches, err := p.idx.Query(ctx, query, 50, nil)
	require.NoError(t, err)

	// Exactly the new generation's single chunk, no stale leftovers
	require.Len(t, matches, 1)
	assert.Equal(t, models.ChunkID("doc_policy", 0), matches[0].ChunkID)
	assert.Contains(t, matches[0].Metadata.Text, "within 30 days")
}
