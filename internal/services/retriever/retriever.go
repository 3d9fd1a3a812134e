// -----------------------------------------------------------------------
// Retriever - embeds a query, searches the vector index and assembles a
// ranked, deduplicated candidate set with optional neighbour expansion
// -----------------------------------------------------------------------

package retriever

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
)

// Service implements the Retriever interface.
type Service struct {
	embeddings      interfaces.EmbeddingClient
	index           interfaces.VectorIndex
	storage         interfaces.DocumentStorage
	topK            int
	minScore        float64
	expandNeighbors bool
	logger          arbor.ILogger
}

var _ interfaces.Retriever = (*Service)(nil)

// NewService wires the retrieval pipeline dependencies.
func NewService(embeddings interfaces.EmbeddingClient, index interfaces.VectorIndex, storage interfaces.DocumentStorage, config *common.RetrievalConfig, logger arbor.ILogger) *Service {
	return &Service{
		embeddings:      embeddings,
		index:           index,
		storage:         storage,
		topK:            config.TopK,
		minScore:        config.MinScore,
		expandNeighbors: config.ExpandNeighbors,
		logger:          logger,
	}
}

// Retrieve runs the query end to end: embed, search, dedupe, rank,
// floor, truncate, expand. The returned matches are ordered by score
// descending with sequence index breaking ties, and every chunk id
// appears at most once.
func (s *Service) Retrieve(ctx context.Context, queryText string, filter *interfaces.IndexFilter) (*models.RetrievalResult, error) {
	start := time.Now()
	queryID := common.NewQueryID()

	vector, err := s.embeddings.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Over-fetch so deduplication cannot starve the candidate set
	matches, err := s.index.Query(ctx, vector, s.topK*2, filter)
	if err != nil {
		return nil, err
	}

	matches = dedupe(matches)
	rank(matches)
	matches = s.applyFloor(matches)
	if len(matches) > s.topK {
		matches = matches[:s.topK]
	}
	if s.expandNeighbors {
		matches = s.expand(matches)
	}

	s.logger.Debug().
		Str("query_id", queryID).
		Int("matches", len(matches)).
		Dur("duration", time.Since(start)).
		Msg("Query retrieved")

	return &models.RetrievalResult{
		QueryID: queryID,
		Query:   queryText,
		Matches: matches,
	}, nil
}

// dedupe keeps the highest-scoring entry per chunk id.
func dedupe(matches []models.Match) []models.Match {
	best := make(map[string]int, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if i, seen := best[m.ChunkID]; seen {
			if m.Score > out[i].Score {
				out[i] = m
			}
			continue
		}
		best[m.ChunkID] = len(out)
		out = append(out, m)
	}
	return out
}

// rank orders by score descending; equal scores fall back to sequence
// index ascending so ranking is deterministic.
func rank(matches []models.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Metadata.Seq < matches[j].Metadata.Seq
	})
}

func (s *Service) applyFloor(matches []models.Match) []models.Match {
	if s.minScore <= 0 {
		return matches
	}
	out := matches[:0]
	for _, m := range matches {
		if m.Score >= s.minScore {
			out = append(out, m)
		}
	}
	return out
}

// expand inserts each match's stored overlap neighbours directly after
// it. Neighbours inherit the parent's score, which keeps the ordering
// invariant intact, and are flagged so the synthesizer can distinguish
// them from direct hits. A chunk already present is never added twice.
func (s *Service) expand(matches []models.Match) []models.Match {
	seen := make(map[string]bool, len(matches)*3)
	for _, m := range matches {
		seen[m.ChunkID] = true
	}

	out := make([]models.Match, 0, len(matches)*3)
	for _, m := range matches {
		out = append(out, m)
		for _, neighborID := range s.neighborIDs(m.ChunkID) {
			if neighborID == "" || seen[neighborID] {
				continue
			}
			chunk, err := s.storage.GetChunk(neighborID)
			if err != nil {
				s.logger.Debug().
					Str("chunk_id", neighborID).
					Err(err).
					Msg("Neighbour chunk not in storage, skipping expansion")
				continue
			}
			seen[neighborID] = true
			out = append(out, models.Match{
				ChunkID:  chunk.ID,
				Score:    m.Score,
				Neighbor: true,
				Metadata: models.ChunkMetadata{
					DocumentID:   chunk.DocumentID,
					DocumentName: m.Metadata.DocumentName,
					Seq:          chunk.Seq,
					Page:         chunk.Page,
					Start:        chunk.Start,
					End:          chunk.End,
					Text:         chunk.Text,
				},
			})
		}
	}
	return out
}

func (s *Service) neighborIDs(chunkID string) []string {
	chunk, err := s.storage.GetChunk(chunkID)
	if err != nil {
		return nil
	}
	return []string{chunk.PrevID, chunk.NextID}
}
