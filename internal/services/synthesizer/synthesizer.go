// -----------------------------------------------------------------------
// Synthesizer - composes a grounded answer from retrieved chunks and
// enforces the citation contract on the model output
// -----------------------------------------------------------------------

package synthesizer

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
)

// Service implements the Synthesizer interface on top of an LLM
// provider.
type Service struct {
	provider         interfaces.LLMProvider
	maxContextChunks int
	insufficientText string
	temperature      float32
	maxTokens        int
	logger           arbor.ILogger
}

var _ interfaces.Synthesizer = (*Service)(nil)

// NewService wires the synthesis dependencies.
func NewService(provider interfaces.LLMProvider, config *common.SynthesisConfig, llmConfig *common.LLMConfig, logger arbor.ILogger) *Service {
	return &Service{
		provider:         provider,
		maxContextChunks: config.MaxContextChunks,
		insufficientText: config.InsufficientText,
		temperature:      llmConfig.Temperature,
		maxTokens:        llmConfig.MaxTokens,
		logger:           logger,
	}
}

// Synthesize answers the query from the retrieval result. The returned
// answer either carries at least one citation that resolves to a
// retrieved chunk, or is an explicit insufficient-evidence response.
// An empty retrieval result short-circuits without a provider call.
func (s *Service) Synthesize(ctx context.Context, query string, result *models.RetrievalResult) (*models.Answer, error) {
	if result == nil || len(result.Matches) == 0 {
		s.logger.Debug().
			Str("query_id", queryID(result)).
			Msg("No retrieved chunks, returning insufficient-evidence answer")
		return s.insufficientAnswer(""), nil
	}

	matches := result.Matches
	if s.maxContextChunks > 0 && len(matches) > s.maxContextChunks {
		matches = matches[:s.maxContextChunks]
	}

	start := time.Now()
	response, err := s.provider.GenerateContent(ctx, &interfaces.ContentRequest{
		Messages: []interfaces.Message{
			{Role: "user", Content: buildUserPrompt(query, matches)},
		},
		SystemInstruction: systemPrompt,
		Temperature:       s.temperature,
		MaxTokens:         s.maxTokens,
		ResponseSchema:    responseSchema,
	})
	if err != nil {
		return nil, &models.SynthesisProviderError{QueryID: result.QueryID, Err: err}
	}

	parsed := parseModelAnswer(response.Text)
	citations, dropped := GroundCitations(parsed.Citations, matches)
	if len(dropped) > 0 {
		s.logger.Warn().
			Str("query_id", result.QueryID).
			Int("dropped", len(dropped)).
			Msg("Model cited excerpts outside the retrieval result, dropping")
	}

	// An answer that survives with no resolvable citation is treated as
	// ungrounded and downgraded rather than returned as fact
	if parsed.Insufficient || strings.TrimSpace(parsed.Answer) == "" || len(citations) == 0 {
		s.logger.Debug().
			Str("query_id", result.QueryID).
			Bool("model_flagged", parsed.Insufficient).
			Dur("duration", time.Since(start)).
			Msg("Synthesis downgraded to insufficient evidence")
		return s.insufficientAnswer(parsed.Rationale), nil
	}

	s.logger.Debug().
		Str("query_id", result.QueryID).
		Str("provider", response.Provider).
		Int("citations", len(citations)).
		Dur("duration", time.Since(start)).
		Msg("Answer synthesized")

	return &models.Answer{
		Text:      parsed.Answer,
		Citations: citations,
		Rationale: parsed.Rationale,
	}, nil
}

func (s *Service) insufficientAnswer(rationale string) *models.Answer {
	return &models.Answer{
		Text:         s.insufficientText,
		Rationale:    rationale,
		Insufficient: true,
	}
}

func queryID(result *models.RetrievalResult) string {
	if result == nil {
		return ""
	}
	return result.QueryID
}
