package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
)

// MemoryIndex is an in-process vector index with cosine similarity.
// It backs tests and single-node deployments that have no Qdrant.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]*models.EmbeddingRecord
}

var _ interfaces.VectorIndex = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		points: make(map[string]*models.EmbeddingRecord),
	}
}

func (m *MemoryIndex) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return &models.IndexOperationError{Op: "ensure_collection", Collection: "memory", Err: fmt.Errorf("invalid dimension %d", dimension)}
	}
	m.mu.Lock()
	m.dimension = dimension
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, records []*models.EmbeddingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		if m.dimension > 0 && len(rec.Vector) != m.dimension {
			return &models.DimensionMismatchError{Want: m.dimension, Got: len(rec.Vector)}
		}
		m.points[rec.ChunkID] = rec
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, filter *interfaces.IndexFilter) ([]models.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]models.Match, 0, len(m.points))
	for _, rec := range m.points {
		if filter != nil && len(filter.DocumentIDs) > 0 && !containsString(filter.DocumentIDs, rec.Metadata.DocumentID) {
			continue
		}
		matches = append(matches, models.Match{
			ChunkID:  rec.ChunkID,
			Score:    cosineSimilarity(vector, rec.Vector),
			Metadata: rec.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Metadata.Seq < matches[j].Metadata.Seq
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) DeleteDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.points {
		if rec.Metadata.DocumentID == documentID {
			delete(m.points, id)
		}
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
