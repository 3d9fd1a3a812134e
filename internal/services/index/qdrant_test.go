package index

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
)

func newTestQdrant(url string) *QdrantIndex {
	return NewQdrantIndex(&common.IndexConfig{
		Provider:       "qdrant",
		URL:            url,
		APIKey:         "test-key",
		Collection:     "contracts",
		Timeout:        "2s",
		MaxRetries:     2,
		InitialBackoff: "1ms",
		MaxBackoff:     "5ms",
	}, common.GetLogger())
}

func TestPointID_DeterministicUUID(t *testing.T) {
	a := PointID("doc_a:0000")
	b := PointID("doc_a:0000")
	c := PointID("doc_a:0001")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	_, err := uuid.Parse(a)
	assert.NoError(t, err, "point ids must be valid UUIDs")
}

func TestQdrant_UpsertRequestShape(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/contracts/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	idx := newTestQdrant(server.URL)
	err := idx.Upsert(context.Background(), []*models.EmbeddingRecord{
		{
			ChunkID: "doc_a:0000",
			Vector:  []float32{0.1, 0.2},
			Metadata: models.ChunkMetadata{
				DocumentID:   "doc_a",
				DocumentName: "contract.pdf",
				Seq:          0,
				Page:         1,
				Text:         "termination clause",
			},
		},
	})
	require.NoError(t, err)

	points := captured["points"].([]any)
	require.Len(t, points, 1)
	point := points[0].(map[string]any)
	assert.Equal(t, PointID("doc_a:0000"), point["id"])

	payload := point["payload"].(map[string]any)
	assert.Equal(t, "doc_a:0000", payload["chunk_id"])
	assert.Equal(t, "doc_a", payload["document_id"])
	assert.Equal(t, "termination clause", payload["text"])
}

func TestQdrant_QueryParsesMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/contracts/points/search", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(3), req["limit"])
		require.Contains(t, req, "filter")

		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"score": 0.92,
					"payload": map[string]any{
						"chunk_id":    "doc_a:0004",
						"document_id": "doc_a",
						"seq":         4,
						"page":        2,
						"text":        "either party may terminate",
					},
				},
			},
		})
	}))
	defer server.Close()

	idx := newTestQdrant(server.URL)
	matches, err := idx.Query(context.Background(), []float32{0.1, 0.2}, 3, &interfaces.IndexFilter{DocumentIDs: []string{"doc_a"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, "doc_a:0004", matches[0].ChunkID)
	assert.InDelta(t, 0.92, matches[0].Score, 1e-9)
	assert.Equal(t, "doc_a", matches[0].Metadata.DocumentID)
	assert.Equal(t, 4, matches[0].Metadata.Seq)
	assert.Equal(t, 2, matches[0].Metadata.Page)
}

func TestQdrant_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	idx := newTestQdrant(server.URL)
	err := idx.EnsureCollection(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQdrant_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	idx := newTestQdrant(server.URL)
	err := idx.Upsert(context.Background(), []*models.EmbeddingRecord{
		{ChunkID: "doc_a:0000", Vector: []float32{0.1}},
	})

	var idxErr *models.IndexOperationError
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, "upsert", idxErr.Op)
	assert.Equal(t, "contracts", idxErr.Collection)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQdrant_EnsureCollectionAcceptsConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	idx := newTestQdrant(server.URL)
	assert.NoError(t, idx.EnsureCollection(context.Background(), 2))
}
