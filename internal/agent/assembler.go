// Package agent assembles the bounded conversational context supplied to the
// reasoning provider on every turn.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/tasklane-ai/chat-orchestrator/internal/llm"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
	"github.com/tasklane-ai/chat-orchestrator/pkg/logger"
	"github.com/tasklane-ai/chat-orchestrator/pkg/metrics"
)

const (
	// DefaultMaxMessages is the default recent-message window.
	DefaultMaxMessages = 20

	// DefaultSizeBudget is the default size ceiling for one exchange,
	// measured in estimated tokens.
	DefaultSizeBudget = 8000

	// messageOverhead approximates per-message framing cost.
	messageOverhead = 4
)

// MessageSource yields a conversation's recent messages, already verified to
// be owned by the requesting user.
type MessageSource interface {
	RecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error)
}

// Assembler builds the ordered exchange for one reasoning call: the fixed
// system directive followed by a bounded window of recent messages.
type Assembler struct {
	source      MessageSource
	maxMessages int
	sizeBudget  int
	logger      *logger.Logger
}

// NewAssembler creates a context assembler. Zero limits fall back to the
// defaults (20 messages, 8000 units).
func NewAssembler(source MessageSource, maxMessages, sizeBudget int, log *logger.Logger) *Assembler {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if sizeBudget <= 0 {
		sizeBudget = DefaultSizeBudget
	}

	return &Assembler{
		source:      source,
		maxMessages: maxMessages,
		sizeBudget:  sizeBudget,
		logger:      log,
	}
}

// BuildContext loads the most recent window of the conversation, oldest to
// newest, prepends the system directive, and enforces the size budget by
// dropping the oldest non-system messages first. The most recent message
// is never dropped. Returns the exchange and whether truncation occurred.
func (a *Assembler) BuildContext(ctx context.Context, userID, conversationID string) ([]llm.ChatMessage, bool, error) {
	msgs, err := a.source.RecentMessages(ctx, userID, conversationID, a.maxMessages)
	if err != nil {
		return nil, false, err
	}

	exchange := make([]llm.ChatMessage, 0, len(msgs)+1)
	exchange = append(exchange, llm.ChatMessage{Role: string(model.RoleSystem), Content: SystemDirective})
	for _, msg := range msgs {
		exchange = append(exchange, llm.ChatMessage{
			Role:    string(msg.Sender),
			Content: msg.Content,
		})
	}

	truncated := false
	dropped := 0
	for EstimateSize(exchange) > a.sizeBudget && len(exchange) > 2 {
		// Index 0 is the directive; index 1 is the oldest droppable message.
		exchange = append(exchange[:1], exchange[2:]...)
		truncated = true
		dropped++
	}

	if truncated {
		metrics.ContextTruncationsTotal.Inc()
		a.logger.Info("context truncated to fit size budget",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", userID),
			zap.Int("dropped", dropped),
			zap.Int("budget", a.sizeBudget),
		)
	}

	return exchange, truncated, nil
}

// EstimateSize approximates the token cost of an exchange. Four bytes per
// token is the same rough estimate the provider clients use; the budget only
// needs to be directionally right.
func EstimateSize(messages []llm.ChatMessage) int {
	total := 0
	for _, msg := range messages {
		total += len(msg.Content)/4 + messageOverhead
	}
	return total
}
