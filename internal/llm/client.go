// Package llm provides reasoning-provider client interfaces and implementations.
package llm

import (
	"context"
	"encoding/json"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ChatMessage represents one entry of the exchange sent to the provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool describes one catalog entry in provider-neutral form.
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// ToolCall is a tool invocation requested by the provider.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ReasoningRequest carries one stateless reasoning call: the full exchange
// plus the tool catalog. Providers must not rely on memory between calls.
type ReasoningRequest struct {
	Model       string
	Messages    []ChatMessage
	Tools       []Tool
	MaxTokens   int
	Temperature float32
}

// ReasoningResult is the provider's answer: natural-language text, requested
// tool calls in the order the provider emitted them, or both.
type ReasoningResult struct {
	ReplyText string
	ToolCalls []ToolCall
	Model     string
	TokensIn  int
	TokensOut int
}

// Client is the interface for reasoning providers. Implementations bound
// every call with a timeout and translate provider failures into
// apperr.ErrReasoningUnavailable so the orchestrator can degrade gracefully.
type Client interface {
	Reason(ctx context.Context, req *ReasoningRequest) (*ReasoningResult, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of reasoning provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)
