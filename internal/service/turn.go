package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tasklane-ai/chat-orchestrator/internal/agent"
	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/internal/llm"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
	"github.com/tasklane-ai/chat-orchestrator/internal/tool"
	"github.com/tasklane-ai/chat-orchestrator/pkg/logger"
	"github.com/tasklane-ai/chat-orchestrator/pkg/metrics"
)

const (
	titleLength = 60

	replyReasoningDown = "I'm sorry, I'm having trouble thinking right now. Please try again in a moment."
	replyUnexpected    = "I'm sorry, something went wrong while handling that. Please try again."
)

// Turn outcomes recorded in metrics.
const (
	outcomeOK        = "ok"
	outcomeDegraded  = "degraded"
	outcomeValidated = "validation_rejected"
	outcomeFailed    = "failed"
)

// TurnResult is what one accepted turn produced.
type TurnResult struct {
	ConversationID string
	Message        *model.Message
	ToolsInvoked   []model.ToolOutcome
	TasksModified  []int64
}

// TurnService runs the full pipeline for one chat turn: validate, resolve
// the conversation, persist the user message, assemble context, reason,
// dispatch tool calls, and persist the assistant reply. Once the user
// message is durable the turn always produces an assistant message, even
// when reasoning or tools fail.
type TurnService struct {
	conversations *ConversationService
	dispatcher    *tool.Dispatcher
	assembler     *agent.Assembler
	client        llm.Client
	model         string
	logger        *logger.Logger
}

// NewTurnService creates a turn orchestrator.
func NewTurnService(conversations *ConversationService, dispatcher *tool.Dispatcher, assembler *agent.Assembler, client llm.Client, reasoningModel string, log *logger.Logger) *TurnService {
	return &TurnService{
		conversations: conversations,
		dispatcher:    dispatcher,
		assembler:     assembler,
		client:        client,
		model:         reasoningModel,
		logger:        log,
	}
}

// HandleTurn processes one user message. An empty conversationID starts a
// new conversation titled from the message.
func (s *TurnService) HandleTurn(ctx context.Context, userID, text, conversationID string) (*TurnResult, error) {
	start := time.Now()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		metrics.RecordTurn(outcomeValidated, time.Since(start).Seconds())
		return nil, apperr.Validationf("message must not be empty")
	}
	if utf8.RuneCountInString(trimmed) > model.MaxMessageLength {
		metrics.RecordTurn(outcomeValidated, time.Since(start).Seconds())
		return nil, apperr.Validationf("message must be at most %d characters", model.MaxMessageLength)
	}

	var (
		conv *model.Conversation
		err  error
	)
	if conversationID != "" {
		conv, err = s.conversations.Get(ctx, userID, conversationID)
	} else {
		conv, err = s.conversations.Create(ctx, userID, titleFromMessage(trimmed))
	}
	if err != nil {
		metrics.RecordTurn(outcomeFailed, time.Since(start).Seconds())
		return nil, err
	}

	// The user message is persisted before any reasoning so a later failure
	// never loses what the user said.
	userMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Sender:         model.RoleUser,
		Content:        trimmed,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.conversations.AppendMessage(ctx, userID, userMsg); err != nil {
		metrics.RecordTurn(outcomeFailed, time.Since(start).Seconds())
		return nil, err
	}

	result, outcome := s.completeTurn(ctx, userID, conv)
	metrics.RecordTurn(outcome, time.Since(start).Seconds())
	return result, nil
}

// completeTurn runs everything after the user message is durable. It never
// returns an error: every failure path degrades into an apologetic
// assistant message.
func (s *TurnService) completeTurn(ctx context.Context, userID string, conv *model.Conversation) (result *TurnResult, outcome string) {
	log := s.logger.WithTurn(userID, conv.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("turn pipeline panicked", zap.Any("panic", r))
			s.conversations.RecordEvent(ctx, userID, conv.ID, model.EventTypeError, "turn pipeline panicked")
			result = s.degrade(ctx, userID, conv, replyUnexpected)
			outcome = outcomeFailed
		}
	}()

	exchange, truncated, err := s.assembler.BuildContext(ctx, userID, conv.ID)
	if err != nil {
		log.Error("context assembly failed", zap.Error(err))
		s.conversations.RecordEvent(ctx, userID, conv.ID, model.EventTypeError, "context assembly failed")
		return s.degrade(ctx, userID, conv, replyUnexpected), outcomeDegraded
	}
	if truncated {
		s.conversations.RecordEvent(ctx, userID, conv.ID, model.EventTypeTruncation, "context trimmed to size budget")
	}

	reasoning, err := s.client.Reason(ctx, &llm.ReasoningRequest{
		Model:    s.model,
		Messages: exchange,
		Tools:    tool.Catalog(),
	})
	if err != nil {
		eventType := model.EventTypeError
		if errors.Is(err, apperr.ErrReasoningUnavailable) {
			eventType = model.EventTypeTimeout
		}
		log.Error("reasoning call failed",
			zap.String("provider", s.client.Name()),
			zap.Error(err),
		)
		s.conversations.RecordEvent(ctx, userID, conv.ID, eventType, err.Error())
		return s.degrade(ctx, userID, conv, replyReasoningDown), outcomeDegraded
	}

	// Tool calls run strictly in the order the provider emitted them. A
	// failed call is reported and the rest still run.
	results := make([]tool.Result, 0, len(reasoning.ToolCalls))
	for _, call := range reasoning.ToolCalls {
		results = append(results, s.dispatcher.Invoke(ctx, call.Name, call.Arguments, userID))
	}

	reply := strings.TrimSpace(reasoning.ReplyText)
	if reply == "" {
		reply = composeReply(results)
	}

	outcomes := make([]model.ToolOutcome, 0, len(results))
	var taskIDs []int64
	for _, r := range results {
		outcomes = append(outcomes, model.ToolOutcome{Tool: r.Tool, Success: r.Success})
		taskIDs = append(taskIDs, r.TaskIDs...)
	}

	meta := &model.MessageMeta{
		ToolsInvoked:   outcomes,
		TasksModified:  taskIDs,
		TokensEstimate: reasoning.TokensIn + reasoning.TokensOut,
		Model:          reasoning.Model,
	}

	assistantMsg := s.persistAssistant(ctx, userID, conv, reply, meta)

	return &TurnResult{
		ConversationID: conv.ID,
		Message:        assistantMsg,
		ToolsInvoked:   outcomes,
		TasksModified:  taskIDs,
	}, outcomeOK
}

// degrade persists an apologetic assistant message and wraps it as the turn
// result so the caller still gets a coherent response.
func (s *TurnService) degrade(ctx context.Context, userID string, conv *model.Conversation, reply string) *TurnResult {
	msg := s.persistAssistant(ctx, userID, conv, reply, nil)
	return &TurnResult{
		ConversationID: conv.ID,
		Message:        msg,
		ToolsInvoked:   []model.ToolOutcome{},
		TasksModified:  nil,
	}
}

// persistAssistant appends the assistant reply. If the append itself fails
// the composed message is still returned to the caller; only its durability
// is lost, and that is logged.
func (s *TurnService) persistAssistant(ctx context.Context, userID string, conv *model.Conversation, content string, meta *model.MessageMeta) *model.Message {
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Sender:         model.RoleAssistant,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
		Meta:           meta,
	}

	if err := s.conversations.AppendMessage(ctx, userID, msg); err != nil {
		s.logger.Error("failed to persist assistant message",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
	}

	return msg
}

// titleFromMessage derives a conversation title from its first message.
func titleFromMessage(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLength {
		return text
	}
	return string(runes[:titleLength]) + "…"
}
