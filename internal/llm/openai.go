package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/pkg/metrics"
)

// OpenAIClient is the OpenAI reasoning client.
type OpenAIClient struct {
	client  *openai.Client
	timeout time.Duration
}

// NewOpenAIClient creates a new OpenAI client with a per-call timeout.
func NewOpenAIClient(apiKey string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		timeout: timeout,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Reason sends one stateless reasoning call with the tool catalog attached.
func (c *OpenAIClient) Reason(ctx context.Context, req *ReasoningRequest) (*ReasoningResult, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = "gpt-4o"
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Tools:       convertOpenAITools(req.Tools),
	})
	if err != nil {
		metrics.RecordReasoning(c.Name(), "error", time.Since(start).Seconds(), 0, 0)
		return nil, fmt.Errorf("%w: %v", apperr.ErrReasoningUnavailable, err)
	}

	result := &ReasoningResult{
		Model:     resp.Model,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		result.ReplyText = choice.Message.Content

		for _, tc := range choice.Message.ToolCalls {
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
	}

	metrics.RecordReasoning(c.Name(), "success", time.Since(start).Seconds(), result.TokensIn, result.TokensOut)

	return result, nil
}

func convertOpenAITools(tools []Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}

	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}
