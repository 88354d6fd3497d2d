// Package service provides the orchestration core: the conversation access
// guard and the turn orchestrator.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
	"github.com/tasklane-ai/chat-orchestrator/internal/store"
	"github.com/tasklane-ai/chat-orchestrator/pkg/logger"
	"github.com/tasklane-ai/chat-orchestrator/pkg/metrics"
)

const previewLength = 80

// ConversationService is the ownership-checking wrapper around all
// conversation reads, writes, and deletes. Nothing else in the service
// touches the conversation store directly.
type ConversationService struct {
	store  store.ConversationStore
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st store.ConversationStore, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  st,
		logger: log,
	}
}

// Create creates a new conversation owned by userID.
func (s *ConversationService) Create(ctx context.Context, userID, title string) (*model.Conversation, error) {
	now := time.Now().UTC()

	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	metrics.ConversationsTotal.Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
	)

	return conv, nil
}

// Get retrieves a conversation owned by userID. A conversation that exists
// but belongs to someone else is indistinguishable from a missing one.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	// The store already scopes by owner; this guards against any
	// implementation that doesn't key on the user.
	if conv.UserID != userID {
		return nil, apperr.ErrNotFound
	}

	return conv, nil
}

// List retrieves a page of the caller's conversations, most recently
// updated first.
func (s *ConversationService) List(ctx context.Context, userID string, limit, offset int) (*model.ListConversationsResponse, error) {
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := len(convs)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &model.ListConversationsResponse{
		Conversations: convs[start:end],
		Total:         total,
		HasMore:       end < total,
	}, nil
}

// Delete removes a conversation owned by userID, cascading to its messages.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return err
	}

	if err := s.store.DeleteConversation(ctx, userID, conversationID); err != nil {
		return err
	}

	s.logger.Info("conversation deleted",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", userID),
	)

	return nil
}

// History returns a conversation with its full ordered message log.
func (s *ConversationService) History(ctx context.Context, userID, conversationID string) (*model.ConversationDetail, error) {
	conv, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.Messages(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	return &model.ConversationDetail{
		Conversation: *conv,
		Messages:     msgs,
	}, nil
}

// AppendMessage appends one message to a conversation owned by userID and
// advances the conversation's counters and timestamp.
func (s *ConversationService) AppendMessage(ctx context.Context, userID string, msg *model.Message) error {
	conv, err := s.Get(ctx, userID, msg.ConversationID)
	if err != nil {
		return err
	}

	seq, err := s.store.AppendMessage(ctx, userID, msg)
	if err != nil {
		return err
	}
	msg.Sequence = seq

	conv.MessageCount++
	conv.LastMessagePreview = preview(msg.Content)
	conv.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateConversation(ctx, conv); err != nil {
		// The message is durable; a stale counter is tolerable.
		s.logger.Warn("failed to update conversation record after append",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
	}

	metrics.MessagesTotal.WithLabelValues(string(msg.Sender)).Inc()

	return nil
}

// RecentMessages returns the most recent limit messages of a conversation
// owned by userID, oldest first.
func (s *ConversationService) RecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	return s.store.RecentMessages(ctx, userID, conversationID, limit)
}

// RecordEvent records a turn event for observability. Event failures are
// logged and swallowed; they never fail a turn.
func (s *ConversationService) RecordEvent(ctx context.Context, userID, conversationID string, eventType model.EventType, reason string) {
	event := &model.TurnEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           eventType,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.AppendEvent(ctx, userID, event); err != nil {
		s.logger.Warn("failed to record turn event",
			zap.String("conversation_id", conversationID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "…"
}
