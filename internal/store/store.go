// Package store defines the durable-storage contracts the orchestration core
// depends on, plus their NATS, SQLite, and in-memory implementations.
//
// Every operation that touches existing data is scoped to an owning user ID.
// Implementations return apperr.ErrNotFound for both "does not exist" and
// "owned by someone else", and wrap everything else in apperr.ErrStore.
package store

import (
	"context"

	"github.com/tasklane-ai/chat-orchestrator/internal/model"
)

// ConversationStore persists conversation records and their append-only
// message logs.
type ConversationStore interface {
	// CreateConversation stores a new conversation record.
	CreateConversation(ctx context.Context, conv *model.Conversation) error

	// GetConversation returns a conversation owned by userID.
	GetConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error)

	// ListConversations returns all conversations owned by userID.
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)

	// UpdateConversation rewrites a conversation record (title, counters,
	// updated_at). The owner is never changed.
	UpdateConversation(ctx context.Context, conv *model.Conversation) error

	// DeleteConversation removes the record and cascades to all of the
	// conversation's messages.
	DeleteConversation(ctx context.Context, userID, conversationID string) error

	// AppendMessage appends a message to the conversation's log and returns
	// the assigned sequence. Messages are immutable once appended.
	AppendMessage(ctx context.Context, userID string, msg *model.Message) (uint64, error)

	// Messages returns the full ordered message history of a conversation.
	Messages(ctx context.Context, userID, conversationID string) ([]model.Message, error)

	// RecentMessages returns the most recent limit messages, oldest first.
	RecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error)

	// AppendEvent records a turn event next to the conversation's messages.
	AppendEvent(ctx context.Context, userID string, event *model.TurnEvent) error
}

// TaskStore is the external task collaborator. All lookups are filtered by
// owner so an unowned task is indistinguishable from a missing one.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) (*model.Task, error)
	GetTask(ctx context.Context, userID string, taskID int64) (*model.Task, error)
	ListTasks(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, error)
	UpdateTask(ctx context.Context, userID string, taskID int64, update model.TaskUpdate) (*model.Task, error)
	DeleteTask(ctx context.Context, userID string, taskID int64) error
}
