// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for tool-calling models.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Tool schema translation to the provider's dialect
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
// The agent loop only ever needs native tool calling, so that is the whole
// surface.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// ChatWithTools sends a chat completion request with tool definitions.
	// The LLM may respond with tool calls in LLMResponse.ToolCalls.
	ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error)
}
