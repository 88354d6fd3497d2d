package store

import (
	"context"
	"errors"
	"sort"

	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
	natsclient "github.com/tasklane-ai/chat-orchestrator/internal/nats"
)

// NATSConversationStore backs the conversation store with JetStream: message
// logs live on an append-only stream, conversation records in a KV bucket.
type NATSConversationStore struct {
	streams *natsclient.StreamManager
	records *natsclient.RecordStore
}

// NewNATSConversationStore creates a conversation store over an established
// NATS client.
func NewNATSConversationStore(streams *natsclient.StreamManager, records *natsclient.RecordStore) *NATSConversationStore {
	return &NATSConversationStore{
		streams: streams,
		records: records,
	}
}

// CreateConversation stores a new conversation record.
func (s *NATSConversationStore) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	if err := s.records.Put(ctx, conv); err != nil {
		return apperr.Storef("create conversation: %v", err)
	}
	return nil
}

// GetConversation returns a conversation owned by userID. The KV key embeds
// the owner, so a cross-user probe resolves to the same not-found as a
// missing conversation.
func (s *NATSConversationStore) GetConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.records.Get(ctx, userID, conversationID)
	if errors.Is(err, natsclient.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storef("get conversation: %v", err)
	}
	return conv, nil
}

// ListConversations returns all conversations owned by userID, most recently
// updated first.
func (s *NATSConversationStore) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	convs, err := s.records.List(ctx, userID)
	if err != nil {
		return nil, apperr.Storef("list conversations: %v", err)
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	return convs, nil
}

// UpdateConversation rewrites a conversation record.
func (s *NATSConversationStore) UpdateConversation(ctx context.Context, conv *model.Conversation) error {
	if err := s.records.Put(ctx, conv); err != nil {
		return apperr.Storef("update conversation: %v", err)
	}
	return nil
}

// DeleteConversation removes the record and purges the conversation's
// messages and events from the stream.
func (s *NATSConversationStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return err
	}

	if err := s.streams.PurgeConversation(ctx, userID, conversationID); err != nil {
		return apperr.Storef("purge conversation: %v", err)
	}

	if err := s.records.Delete(ctx, userID, conversationID); err != nil {
		return apperr.Storef("delete conversation record: %v", err)
	}

	return nil
}

// AppendMessage publishes a message to the conversation's log.
func (s *NATSConversationStore) AppendMessage(ctx context.Context, userID string, msg *model.Message) (uint64, error) {
	seq, err := s.streams.PublishMessage(ctx, userID, msg)
	if err != nil {
		return 0, apperr.Storef("append message: %v", err)
	}
	return seq, nil
}

// Messages returns the full ordered message history.
func (s *NATSConversationStore) Messages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	msgs, err := s.streams.Messages(ctx, userID, conversationID)
	if err != nil {
		return nil, apperr.Storef("read messages: %v", err)
	}
	return msgs, nil
}

// RecentMessages returns the most recent limit messages, oldest first.
func (s *NATSConversationStore) RecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error) {
	msgs, err := s.streams.RecentMessages(ctx, userID, conversationID, limit)
	if err != nil {
		return nil, apperr.Storef("read recent messages: %v", err)
	}
	return msgs, nil
}

// AppendEvent publishes a turn event next to the conversation's messages.
func (s *NATSConversationStore) AppendEvent(ctx context.Context, userID string, event *model.TurnEvent) error {
	if _, err := s.streams.PublishEvent(ctx, userID, event); err != nil {
		return apperr.Storef("append event: %v", err)
	}
	return nil
}
