// -----------------------------------------------------------------------
// Embedding service - batches chunk text through an embedding provider
// with bounded concurrency, rate limiting and retry
// -----------------------------------------------------------------------

package embeddings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
	"github.com/responsa-ai/responsa/internal/services/llm"
)

// Vectorizer is the raw provider call: one request, one batch of texts,
// one vector per text in input order.
type Vectorizer interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Service implements EmbeddingClient on top of a Vectorizer. It splits
// large inputs into provider-sized batches, runs a bounded number of
// batches in flight, rate-limits requests and retries transient
// failures with backoff.
type Service struct {
	vectorizer  Vectorizer
	dimension   int
	batchSize   int
	maxInFlight int
	timeout     time.Duration
	limiter     *rate.Limiter
	retryConfig *llm.RetryConfig
	logger      arbor.ILogger
}

var _ interfaces.EmbeddingClient = (*Service)(nil)

// NewService wires a vectorizer into the batching service.
func NewService(vectorizer Vectorizer, config *common.EmbeddingConfig, logger arbor.ILogger) *Service {
	limit := rate.Inf
	if config.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(config.RequestsPerMinute) / 60.0)
	}

	timeout := 30 * time.Second
	if d, err := time.ParseDuration(config.Timeout); err == nil && d > 0 {
		timeout = d
	}

	return &Service{
		vectorizer:  vectorizer,
		dimension:   config.Dimension,
		batchSize:   config.BatchSize,
		maxInFlight: config.MaxInFlight,
		timeout:     timeout,
		limiter:     rate.NewLimiter(limit, 1),
		retryConfig: llm.NewRetryConfig(config.MaxRetries, config.InitialBackoff, config.MaxBackoff, config.BackoffJitter),
		logger:      logger,
	}
}

// Dimension returns the configured vector dimensionality.
func (s *Service) Dimension() int {
	return s.dimension
}

// EmbedQuery embeds a single query string.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Embed embeds every text, preserving input order. Batches run
// concurrently up to the in-flight bound; the first failure cancels the
// remaining batches and no partial result is returned.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	vectors := make([][]float32, len(texts))

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	inFlight := s.maxInFlight
	if inFlight < 1 {
		inFlight = 1
	}
	sem := make(chan struct{}, inFlight)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for offset := 0; offset < len(texts); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		select {
		case sem <- struct{}{}:
		case <-batchCtx.Done():
		}
		if batchCtx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(offset, end int) {
			defer wg.Done()
			defer func() { <-sem }()

			batch, err := s.embedBatch(batchCtx, texts[offset:end])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
				return
			}
			copy(vectors[offset:end], batch)
		}(offset, end)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("texts", len(texts)).
		Int("batch_size", s.batchSize).
		Dur("duration", time.Since(start)).
		Msg("Embedded texts")

	return vectors, nil
}

// embedBatch runs one provider batch with rate limiting and retry.
// Dimension mismatches are a configuration fault, never retried.
func (s *Service) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		// Each attempt carries its own deadline
		callCtx, cancel := s.callContext(ctx)
		vectors, err := s.vectorizer.EmbedBatch(callCtx, texts)
		cancel()
		if err == nil {
			for _, v := range vectors {
				if len(v) != s.dimension {
					return nil, &models.DimensionMismatchError{Want: s.dimension, Got: len(v)}
				}
			}
			return vectors, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == s.retryConfig.MaxRetries {
			break
		}

		backoff := s.retryConfig.CalculateBackoff(attempt, llm.ExtractRetryDelay(err))
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", s.retryConfig.MaxRetries).
			Dur("backoff", backoff).
			Msg("Embedding batch failed, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, &models.EmbeddingProviderError{
		Err: fmt.Errorf("embedding failed after %d attempts: %w", s.retryConfig.MaxRetries+1, lastErr),
	}
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
