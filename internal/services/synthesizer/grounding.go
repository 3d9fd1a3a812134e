package synthesizer

import "github.com/responsa-ai/responsa/internal/models"

// GroundCitations validates model citations against the retrieval
// result. Citation n refers to matches[n-1]; anything out of range is
// dropped. The function is pure: same inputs, same outputs, no provider
// involvement.
func GroundCitations(citations []int, matches []models.Match) (valid []models.Citation, dropped []int) {
	seen := make(map[int]bool, len(citations))
	for _, n := range citations {
		if seen[n] {
			continue
		}
		seen[n] = true

		if n < 1 || n > len(matches) {
			dropped = append(dropped, n)
			continue
		}
		m := matches[n-1]
		valid = append(valid, models.Citation{
			Label:        n,
			ChunkID:      m.ChunkID,
			DocumentID:   m.Metadata.DocumentID,
			DocumentName: m.Metadata.DocumentName,
			Page:         m.Metadata.Page,
		})
	}
	return valid, dropped
}
