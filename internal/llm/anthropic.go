package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/pkg/metrics"
)

// AnthropicClient is the Anthropic reasoning client.
type AnthropicClient struct {
	client  *anthropic.Client
	timeout time.Duration
}

// NewAnthropicClient creates a new Anthropic client with a per-call timeout.
func NewAnthropicClient(apiKey string, timeout time.Duration) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &AnthropicClient{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		timeout: timeout,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Reason sends one stateless reasoning call with the tool catalog attached.
// The system directive travels in the dedicated system parameter; everything
// else stays in the message list.
func (c *AnthropicClient) Reason(ctx context.Context, req *ReasoningRequest) (*ReasoningResult, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			system = append(system, anthropic.TextBlockParam{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(msg.Content),
			})
			continue
		}

		messages = append(messages, anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(msg.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				},
			}),
		})
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(model),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages:  anthropic.F(messages),
	}
	if len(system) > 0 {
		params.System = anthropic.F(system)
	}
	if tools := convertAnthropicTools(req.Tools); len(tools) > 0 {
		params.Tools = anthropic.F(tools)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		metrics.RecordReasoning(c.Name(), "error", time.Since(start).Seconds(), 0, 0)
		return nil, fmt.Errorf("%w: %v", apperr.ErrReasoningUnavailable, err)
	}

	result := &ReasoningResult{
		Model:     resp.Model,
		TokensIn:  int(resp.Usage.InputTokens),
		TokensOut: int(resp.Usage.OutputTokens),
	}

	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.ContentBlockTypeText:
			result.ReplyText += block.Text
		case anthropic.ContentBlockTypeToolUse:
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: json.RawMessage(block.Input),
			})
		}
	}

	metrics.RecordReasoning(c.Name(), "success", time.Since(start).Seconds(), result.TokensIn, result.TokensOut)

	return result, nil
}

func convertAnthropicTools(tools []Tool) []anthropic.ToolParam {
	out := make([]anthropic.ToolParam, 0, len(tools))
	for _, t := range tools {
		// Round-trip the schema through JSON to the generic map shape the
		// SDK expects for input_schema.
		var schema map[string]any
		data, err := json.Marshal(t.Parameters)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &schema); err != nil {
			continue
		}

		out = append(out, anthropic.ToolParam{
			Name:        anthropic.F(t.Name),
			Description: anthropic.F(t.Description),
			InputSchema: anthropic.F[interface{}](schema),
		})
	}
	return out
}
