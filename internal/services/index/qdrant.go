// -----------------------------------------------------------------------
// Qdrant vector index - minimal REST client assuming cosine distance
// -----------------------------------------------------------------------

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
	"github.com/responsa-ai/responsa/internal/services/llm"
)

// pointIDNamespace seeds the deterministic UUIDs Qdrant requires as
// point ids. The same chunk id always maps to the same point, so
// re-upserting a chunk overwrites rather than duplicates.
var pointIDNamespace = uuid.MustParse("f3b5a1a0-0000-4000-8000-1a2b3c4d5e6f")

// QdrantIndex talks to Qdrant over its REST API. The collection is the
// namespace: one collection holds one corpus and queries never cross
// collections.
type QdrantIndex struct {
	url         string
	apiKey      string
	collection  string
	client      *http.Client
	retryConfig *llm.RetryConfig
	logger      arbor.ILogger
}

var _ interfaces.VectorIndex = (*QdrantIndex)(nil)

// NewQdrantIndex creates a client from configuration.
func NewQdrantIndex(config *common.IndexConfig, logger arbor.ILogger) *QdrantIndex {
	timeout := 15 * time.Second
	if d, err := time.ParseDuration(config.Timeout); err == nil && d > 0 {
		timeout = d
	}

	return &QdrantIndex{
		url:         config.URL,
		apiKey:      config.APIKey,
		collection:  config.Collection,
		client:      &http.Client{Timeout: timeout},
		retryConfig: llm.NewRetryConfig(config.MaxRetries, config.InitialBackoff, config.MaxBackoff, 0.2),
		logger:      logger,
	}
}

// PointID derives the Qdrant point id for a chunk id. Qdrant only
// accepts UUIDs or unsigned integers as ids.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(chunkID)).String()
}

// EnsureCollection creates the collection if missing. Qdrant returns
// 200 when the collection already exists with the same schema and 409
// when it exists, both of which are fine.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return &models.IndexOperationError{Op: "ensure_collection", Collection: q.collection, Err: fmt.Errorf("invalid dimension %d", dimension)}
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	err := q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", q.collection), body, nil, http.StatusConflict)
	if err != nil {
		return &models.IndexOperationError{Op: "ensure_collection", Collection: q.collection, Err: err}
	}
	return nil
}

// Upsert writes embedding records as points. The write waits for
// consistency so a returned nil means the points are queryable.
func (q *QdrantIndex) Upsert(ctx context.Context, records []*models.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]map[string]any, len(records))
	for i, rec := range records {
		points[i] = map[string]any{
			"id":     PointID(rec.ChunkID),
			"vector": rec.Vector,
			"payload": map[string]any{
				"chunk_id":      rec.ChunkID,
				"document_id":   rec.Metadata.DocumentID,
				"document_name": rec.Metadata.DocumentName,
				"seq":           rec.Metadata.Seq,
				"page":          rec.Metadata.Page,
				"start":         rec.Metadata.Start,
				"end":           rec.Metadata.End,
				"text":          rec.Metadata.Text,
			},
		}
	}

	body := map[string]any{"points": points}
	err := q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", q.collection), body, nil)
	if err != nil {
		return &models.IndexOperationError{Op: "upsert", Collection: q.collection, Err: err}
	}

	q.logger.Debug().
		Str("collection", q.collection).
		Int("points", len(records)).
		Msg("Upserted points")

	return nil
}

// Query runs a cosine similarity search, optionally filtered to a set
// of document ids. Results come back ordered by score descending.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, topK int, filter *interfaces.IndexFilter) ([]models.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if filter != nil && len(filter.DocumentIDs) > 0 {
		body["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key":   "document_id",
					"match": map[string]any{"any": filter.DocumentIDs},
				},
			},
		}
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", q.collection), body, &resp)
	if err != nil {
		return nil, &models.IndexOperationError{Op: "query", Collection: q.collection, Err: err}
	}

	matches := make([]models.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, models.Match{
			ChunkID:  payloadString(r.Payload, "chunk_id"),
			Score:    r.Score,
			Metadata: payloadMetadata(r.Payload),
		})
	}
	return matches, nil
}

// DeleteDocument removes every point belonging to a document.
func (q *QdrantIndex) DeleteDocument(ctx context.Context, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "document_id",
					"match": map[string]any{"value": documentID},
				},
			},
		},
	}
	err := q.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collection), body, nil)
	if err != nil {
		return &models.IndexOperationError{Op: "delete_document", Collection: q.collection, Err: err}
	}

	q.logger.Debug().
		Str("collection", q.collection).
		Str("doc_id", documentID).
		Msg("Deleted document points")

	return nil
}

// do issues one JSON request with retry on transport errors and 5xx
// responses. Extra acceptable status codes beyond 2xx can be supplied.
func (q *QdrantIndex) do(ctx context.Context, method, path string, body, out any, acceptable ...int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= q.retryConfig.MaxRetries; attempt++ {
		lastErr = q.doOnce(ctx, method, path, data, out, acceptable)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(lastErr) || attempt == q.retryConfig.MaxRetries {
			break
		}

		backoff := q.retryConfig.CalculateBackoff(attempt, 0)
		q.logger.Warn().
			Err(lastErr).
			Str("path", path).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Qdrant request failed, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// statusError distinguishes HTTP status failures from transport errors
// for retry policy.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	return e.message
}

func retryable(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.status >= 500 || se.status == http.StatusTooManyRequests
	}
	// Transport errors are worth one more try
	return true
}

func (q *QdrantIndex) doOnce(ctx context.Context, method, path string, data []byte, out any, acceptable []int) error {
	req, err := http.NewRequestWithContext(ctx, method, q.url+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, code := range acceptable {
		if resp.StatusCode == code {
			ok = true
		}
	}
	if !ok {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{
			status:  resp.StatusCode,
			message: fmt.Sprintf("qdrant %s %s failed: %s: %s", method, path, resp.Status, bytes.TrimSpace(detail)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func payloadInt(payload map[string]any, key string) int {
	// JSON numbers decode as float64
	v, _ := payload[key].(float64)
	return int(v)
}

func payloadMetadata(payload map[string]any) models.ChunkMetadata {
	return models.ChunkMetadata{
		DocumentID:   payloadString(payload, "document_id"),
		DocumentName: payloadString(payload, "document_name"),
		Seq:          payloadInt(payload, "seq"),
		Page:         payloadInt(payload, "page"),
		Start:        payloadInt(payload, "start"),
		End:          payloadInt(payload, "end"),
		Text:         payloadString(payload, "text"),
	}
}
