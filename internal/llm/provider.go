package llm

import (
	"context"
	"encoding/json"
)

// Provider is the abstraction every review analyzer talks to.
// A call sends one prompt and returns the model's structured JSON.
type Provider interface {
	// Generate sends a prompt to the model. When req.Schema is set the
	// provider asks for JSON matching it and validates the reply before
	// returning; Content is then the validated object.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes one model call.
type Request struct {
	// System is the reviewer role and output rules.
	System string

	// Messages holds the conversation. Review calls are single-turn, so this
	// is normally one user message containing the question text.
	Messages []Message

	// Schema is the JSON Schema the reply must conform to. Nil means the
	// reply is returned as raw text.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the vendor default untouched.
	Temperature float64
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names a JSON Schema definition for structured output.
type Schema struct {
	// Name is a kebab-case identifier such as "correctness-feedback". It is
	// the tool name for Anthropic, the schema name for OpenAI and the
	// compiled-schema cache key.
	Name string

	Description string

	Definition map[string]any
}

// Response holds the model output.
type Response struct {
	// Content is the validated JSON object when a Schema was requested,
	// otherwise the raw text.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
