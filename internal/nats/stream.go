package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tasklane-ai/chat-orchestrator/internal/model"
)

const (
	// StreamName is the name of the conversations stream.
	StreamName = "CONVERSATIONS"

	// SubjectPrefix is the prefix for all conversation subjects.
	SubjectPrefix = "conv"

	// fetchBatchSize is the consumer batch size when draining a conversation.
	fetchBatchSize = 100
)

// StreamManager handles JetStream stream operations. The stream is the
// append-only message log: messages are only ever published, never edited;
// the only removal path is a per-conversation subject purge on delete.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the conversations stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Create stream. Purge stays allowed: conversation deletion cascades to
	// its messages via a subject purge.
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,     // 1 year
		MaxBytes:    100 * 1024 * 1024 * 1024, // 100GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		Description: "All conversation messages and turn events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a message.
func MessageSubject(userID, conversationID string, sender model.Role) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, userID, conversationID, sender)
}

// EventSubject returns the subject for a turn event.
func EventSubject(userID, conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, userID, conversationID, eventType)
}

// ConversationFilter returns the filter subject for everything in a conversation.
func ConversationFilter(userID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.>", SubjectPrefix, userID, conversationID)
}

// PublishMessage publishes a message to JetStream and returns its stream sequence.
func (m *StreamManager) PublishMessage(ctx context.Context, userID string, msg *model.Message) (uint64, error) {
	subject := MessageSubject(userID, msg.ConversationID, msg.Sender)

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish message: %w", err)
	}

	return ack.Sequence, nil
}

// PublishEvent publishes a turn event to JetStream.
func (m *StreamManager) PublishEvent(ctx context.Context, userID string, event *model.TurnEvent) (uint64, error) {
	subject := EventSubject(userID, event.ConversationID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}

// Messages retrieves all messages of a conversation in stream order.
func (m *StreamManager) Messages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	js := m.client.JetStream()

	filterSubject := fmt.Sprintf("%s.%s.%s.msg.>", SubjectPrefix, userID, conversationID)

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	var messages []model.Message

	// Drain the conversation's subject space in batches. FetchNoWait returns
	// an empty batch once the consumer has no pending messages.
	for {
		batch, err := consumer.FetchNoWait(fetchBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch messages: %w", err)
		}

		count := 0
		for msg := range batch.Messages() {
			count++

			var message model.Message
			if err := json.Unmarshal(msg.Data(), &message); err != nil {
				continue
			}

			if meta, err := msg.Metadata(); err == nil {
				message.Sequence = meta.Sequence.Stream
			}

			messages = append(messages, message)
		}

		if batch.Error() != nil {
			return nil, fmt.Errorf("batch error: %w", batch.Error())
		}

		if count < fetchBatchSize {
			break
		}
	}

	return messages, nil
}

// RecentMessages retrieves the most recent limit messages of a conversation,
// oldest first.
func (m *StreamManager) RecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error) {
	messages, err := m.Messages(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}

// PurgeConversation removes every message and event of a conversation from
// the stream. Called only from the owner-checked delete path.
func (m *StreamManager) PurgeConversation(ctx context.Context, userID, conversationID string) error {
	stream, err := m.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	if err := stream.Purge(ctx, jetstream.WithPurgeSubject(ConversationFilter(userID, conversationID))); err != nil {
		return fmt.Errorf("failed to purge conversation subjects: %w", err)
	}

	return nil
}
