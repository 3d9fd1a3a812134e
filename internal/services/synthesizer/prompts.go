package synthesizer

import (
	"fmt"
	"strings"

	"github.com/responsa-ai/responsa/internal/models"
)

// systemPrompt constrains the model to the supplied excerpts. The
// numbered-citation contract is what grounding validation checks
// against afterwards.
const systemPrompt = `You are a document analyst answering questions strictly from the numbered excerpts provided.

Rules:
- Use ONLY information stated in the excerpts. Never use outside knowledge.
- Cite every claim with the excerpt numbers that support it.
- If the excerpts do not contain enough information to answer, set "insufficient" to true and leave the answer empty.
- Respond with JSON: {"answer": string, "citations": [excerpt numbers], "rationale": string, "insufficient": boolean}`

// responseSchema is the structured-output contract sent to providers
// that support JSON schema enforcement.
var responseSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"answer": map[string]interface{}{
			"type":        "string",
			"description": "The answer composed only from the excerpts, empty when insufficient",
		},
		"citations": map[string]interface{}{
			"type":        "array",
			"description": "Excerpt numbers supporting the answer",
			"items": map[string]interface{}{
				"type": "integer",
			},
		},
		"rationale": map[string]interface{}{
			"type":        "string",
			"description": "Brief reasoning connecting excerpts to the answer",
		},
		"insufficient": map[string]interface{}{
			"type":        "boolean",
			"description": "True when the excerpts cannot support an answer",
		},
	},
	"required": []string{"answer", "insufficient"},
}

// buildUserPrompt enumerates the retrieved excerpts and appends the
// question. Excerpt numbers are 1-based: they are the citation keys the
// model must use.
func buildUserPrompt(query string, matches []models.Match) string {
	var sb strings.Builder
	sb.WriteString("Excerpts:\n\n")
	for i, m := range matches {
		sb.WriteString(fmt.Sprintf("[%d]", i+1))
		if m.Metadata.DocumentName != "" {
			sb.WriteString(fmt.Sprintf(" (%s", m.Metadata.DocumentName))
			if m.Metadata.Page > 0 {
				sb.WriteString(fmt.Sprintf(", page %d", m.Metadata.Page))
			}
			sb.WriteString(")")
		} else if m.Metadata.Page > 0 {
			sb.WriteString(fmt.Sprintf(" (page %d)", m.Metadata.Page))
		}
		sb.WriteString("\n")
		sb.WriteString(m.Metadata.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}
