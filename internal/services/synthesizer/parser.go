package synthesizer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// modelAnswer is the raw shape the provider returns before grounding
// validation.
type modelAnswer struct {
	Answer       string `json:"answer"`
	Citations    []int  `json:"citations"`
	Rationale    string `json:"rationale"`
	Insufficient bool   `json:"insufficient"`
}

var inlineCitationRegex = regexp.MustCompile(`\[(\d+)\]`)

// parseModelAnswer decodes the provider response. Providers that honor
// the response schema return bare JSON; others wrap it in code fences
// or fall back to prose with inline [n] citations, both of which are
// recovered here.
func parseModelAnswer(text string) *modelAnswer {
	cleaned := stripCodeFences(text)

	var parsed modelAnswer
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		return &parsed
	}

	// Prose fallback: treat the whole response as the answer and pull
	// inline citation markers out of it
	return &modelAnswer{
		Answer:    strings.TrimSpace(text),
		Citations: extractInlineCitations(text),
	}
}

func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func extractInlineCitations(text string) []int {
	var citations []int
	seen := make(map[int]bool)
	for _, m := range inlineCitationRegex.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		citations = append(citations, n)
	}
	return citations
}
