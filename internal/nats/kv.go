package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tasklane-ai/chat-orchestrator/internal/model"
)

// BucketName is the KV bucket holding conversation records.
const BucketName = "CONVERSATION_RECORDS"

// ErrRecordNotFound is returned when no conversation record exists for a key.
var ErrRecordNotFound = errors.New("conversation record not found")

// RecordStore keeps conversation metadata (owner, title, counters) in a
// JetStream KV bucket so the service itself holds no conversation state.
// Keys are "<userID>.<conversationID>"; owner listing is a prefix scan.
type RecordStore struct {
	client *Client
	kv     jetstream.KeyValue
}

// NewRecordStore creates the record store, ensuring the bucket exists.
func NewRecordStore(ctx context.Context, client *Client) (*RecordStore, error) {
	js := client.JetStream()

	kv, err := js.KeyValue(ctx, BucketName)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketName,
			Description: "Conversation ownership and metadata records",
			History:     1,
			Storage:     jetstream.FileStorage,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open KV bucket: %w", err)
	}

	return &RecordStore{client: client, kv: kv}, nil
}

func recordKey(userID, conversationID string) string {
	return userID + "." + conversationID
}

// Put writes a conversation record.
func (s *RecordStore) Put(ctx context.Context, conv *model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if _, err := s.kv.Put(ctx, recordKey(conv.UserID, conv.ID), data); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}

	return nil
}

// Get reads one conversation record by owner and ID.
func (s *RecordStore) Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	entry, err := s.kv.Get(ctx, recordKey(userID, conversationID))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var conv model.Conversation
	if err := json.Unmarshal(entry.Value(), &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &conv, nil
}

// List returns all conversation records owned by a user.
func (s *RecordStore) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	keys, err := s.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	prefix := userID + "."

	var convs []model.Conversation
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}

		var conv model.Conversation
		if err := json.Unmarshal(entry.Value(), &conv); err != nil {
			continue
		}

		convs = append(convs, conv)
	}

	return convs, nil
}

// Delete removes a conversation record.
func (s *RecordStore) Delete(ctx context.Context, userID, conversationID string) error {
	if err := s.kv.Delete(ctx, recordKey(userID, conversationID)); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
