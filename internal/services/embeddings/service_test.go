package embeddings

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/models"
)

// fakeVectorizer returns deterministic vectors derived from input
// order and records concurrency.
type fakeVectorizer struct {
	mu        sync.Mutex
	dimension int
	calls     int
	inFlight  int
	peak      int
	failFirst int
	failErr   error
}

func (f *fakeVectorizer) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	shouldFail := f.calls <= f.failFirst
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if shouldFail {
		return nil, f.failErr
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, f.dimension)
		v[0] = float32(len(text))
		vectors[i] = v
	}
	return vectors, nil
}

func newTestService(v Vectorizer, batchSize, maxInFlight, maxRetries int) *Service {
	return NewService(v, &common.EmbeddingConfig{
		Model:          "test-embedding",
		Dimension:      4,
		BatchSize:      batchSize,
		MaxInFlight:    maxInFlight,
		MaxRetries:     maxRetries,
		InitialBackoff: "1ms",
		MaxBackoff:     "5ms",
	}, common.GetLogger())
}

func TestEmbed_PreservesInputOrder(t *testing.T) {
	fake := &fakeVectorizer{dimension: 4}
	svc := newTestService(fake, 3, 2, 0)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff", "g"}
	vectors, err := svc.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
}

func TestEmbed_BatchesInput(t *testing.T) {
	fake := &fakeVectorizer{dimension: 4}
	svc := newTestService(fake, 2, 1, 0)

	texts := []string{"a", "b", "c", "d", "e"}
	_, err := svc.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)
}

func TestEmbed_BoundsInFlightBatches(t *testing.T) {
	fake := &fakeVectorizer{dimension: 4}
	svc := newTestService(fake, 1, 2, 0)

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}
	_, err := svc.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.LessOrEqual(t, fake.peak, 2)
}

func TestEmbed_RetriesTransientFailure(t *testing.T) {
	fake := &fakeVectorizer{
		dimension: 4,
		failFirst: 2,
		failErr:   fmt.Errorf("429 RESOURCE_EXHAUSTED"),
	}
	svc := newTestService(fake, 10, 1, 3)

	vectors, err := svc.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 3, fake.calls)
}

func TestEmbed_FailsAfterRetriesExhausted(t *testing.T) {
	fake := &fakeVectorizer{
		dimension: 4,
		failFirst: 100,
		failErr:   fmt.Errorf("upstream unavailable"),
	}
	svc := newTestService(fake, 10, 1, 2)

	_, err := svc.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
	assert.Equal(t, 3, fake.calls)

	var provErr *models.EmbeddingProviderError
	assert.ErrorAs(t, err, &provErr, "exhausted retries must surface as a provider error")
}

func TestEmbedQuery_ExhaustionIsProviderError(t *testing.T) {
	fake := &fakeVectorizer{
		dimension: 4,
		failFirst: 100,
		failErr:   fmt.Errorf("upstream unavailable"),
	}
	svc := newTestService(fake, 10, 1, 1)

	_, err := svc.EmbedQuery(context.Background(), "what is the termination clause?")
	require.Error(t, err)

	var provErr *models.EmbeddingProviderError
	assert.ErrorAs(t, err, &provErr)
}

// slowVectorizer blocks until its context is done.
type slowVectorizer struct{}

func (s *slowVectorizer) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEmbed_PerCallTimeout(t *testing.T) {
	svc := NewService(&slowVectorizer{}, &common.EmbeddingConfig{
		Model:          "test-embedding",
		Dimension:      4,
		BatchSize:      10,
		MaxInFlight:    1,
		MaxRetries:     1,
		InitialBackoff: "1ms",
		MaxBackoff:     "5ms",
		Timeout:        "10ms",
	}, common.GetLogger())

	start := time.Now()
	_, err := svc.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadline exceeded")
	assert.Less(t, time.Since(start), 2*time.Second, "per-call timeout must bound a hung provider")
}

func TestEmbed_DimensionMismatchIsFatal(t *testing.T) {
	fake := &fakeVectorizer{dimension: 8}
	svc := newTestService(fake, 10, 1, 3)

	_, err := svc.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)

	var dimErr *models.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Want)
	assert.Equal(t, 8, dimErr.Got)
	assert.Equal(t, 1, fake.calls, "dimension mismatch must not be retried")
}

func TestEmbed_CancelledContext(t *testing.T) {
	fake := &fakeVectorizer{dimension: 4}
	svc := newTestService(fake, 1, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Embed(ctx, []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedQuery(t *testing.T) {
	fake := &fakeVectorizer{dimension: 4}
	svc := newTestService(fake, 10, 1, 0)

	vector, err := svc.EmbedQuery(context.Background(), "what is the termination clause?")
	require.NoError(t, err)
	assert.Len(t, vector, 4)
	assert.Equal(t, 4, svc.Dimension())
}
