package loader

import "strings"

// NormalizeText collapses whitespace while preserving paragraph
// boundaries. Losing the blank lines between paragraphs degrades chunk
// quality, so runs of 2+ newlines collapse to exactly one blank line
// and everything else collapses to single spaces.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	paragraphs := splitParagraphs(text)

	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		// Join wrapped lines within a paragraph and collapse runs of
		// spaces and tabs.
		fields := strings.Fields(p)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}

	return strings.Join(out, "\n\n")
}

// splitParagraphs splits on blank lines (possibly containing spaces).
func splitParagraphs(text string) []string {
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return paragraphs
}
