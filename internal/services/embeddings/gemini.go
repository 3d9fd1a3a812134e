package embeddings

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiVectorizer produces embeddings through the Gemini embedding
// models. One EmbedContent call carries a whole batch.
type GeminiVectorizer struct {
	client    *genai.Client
	model     string
	dimension int
}

var _ Vectorizer = (*GeminiVectorizer)(nil)

// NewGeminiVectorizer creates a vectorizer bound to a model and output
// dimensionality.
func NewGeminiVectorizer(ctx context.Context, apiKey, model string, dimension int) (*GeminiVectorizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiVectorizer{
		client:    client,
		model:     model,
		dimension: dimension,
	}, nil
}

// EmbedBatch embeds every text in one request. The response preserves
// input order.
func (v *GeminiVectorizer) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	outputDim := int32(v.dimension)
	result, err := v.client.Models.EmbedContent(ctx, v.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", got, len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}
