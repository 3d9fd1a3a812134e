package interfaces

import "context"

// Message represents a single message in a model conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// ContentRequest is a provider-agnostic content generation request.
type ContentRequest struct {
	Messages          []Message
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string

	// ResponseSchema, when set, asks the provider for structured JSON
	// output matching the schema. Providers without native schema
	// support fall back to prompt-level instruction.
	ResponseSchema map[string]interface{}
}

// ContentResponse is a provider-agnostic content generation response.
type ContentResponse struct {
	Text     string
	Provider string
	Model    string
}

// LLMProvider abstracts the language-model capability so the grounding
// validation around it stays unit-testable with a scripted fake.
// Implementations retry transient failures internally with bounded
// backoff and must be safe for concurrent use.
type LLMProvider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	Close() error
}
