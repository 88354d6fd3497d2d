package store

import (
	"context"
	"sync"

	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
)

// MemoryConversationStore is a map-backed ConversationStore. It exists for
// tests and for running the service without NATS; it honors the same
// ownership and append-only semantics as the JetStream implementation.
type MemoryConversationStore struct {
	mu       sync.RWMutex
	convs    map[string]*model.Conversation
	messages map[string][]model.Message
	events   map[string][]model.TurnEvent
	seq      uint64
}

// NewMemoryConversationStore creates an empty in-memory conversation store.
func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{
		convs:    make(map[string]*model.Conversation),
		messages: make(map[string][]model.Message),
		events:   make(map[string][]model.TurnEvent),
	}
}

// CreateConversation stores a new conversation record.
func (s *MemoryConversationStore) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *conv
	s.convs[conv.ID] = &copied
	return nil
}

func (s *MemoryConversationStore) owned(userID, conversationID string) (*model.Conversation, error) {
	conv, exists := s.convs[conversationID]
	if !exists || conv.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return conv, nil
}

// GetConversation returns a conversation owned by userID.
func (s *MemoryConversationStore) GetConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, err := s.owned(userID, conversationID)
	if err != nil {
		return nil, err
	}

	copied := *conv
	return &copied, nil
}

// ListConversations returns all conversations owned by userID, most recently
// updated first.
func (s *MemoryConversationStore) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []model.Conversation
	for _, conv := range s.convs {
		if conv.UserID == userID {
			convs = append(convs, *conv)
		}
	}

	for i := 0; i < len(convs); i++ {
		for j := i + 1; j < len(convs); j++ {
			if convs[j].UpdatedAt.After(convs[i].UpdatedAt) {
				convs[i], convs[j] = convs[j], convs[i]
			}
		}
	}

	return convs, nil
}

// UpdateConversation rewrites a conversation record.
func (s *MemoryConversationStore) UpdateConversation(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(conv.UserID, conv.ID); err != nil {
		return err
	}

	copied := *conv
	s.convs[conv.ID] = &copied
	return nil
}

// DeleteConversation removes the record and its messages.
func (s *MemoryConversationStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(userID, conversationID); err != nil {
		return err
	}

	delete(s.convs, conversationID)
	delete(s.messages, conversationID)
	delete(s.events, conversationID)
	return nil
}

// AppendMessage appends a message to the conversation's log.
func (s *MemoryConversationStore) AppendMessage(ctx context.Context, userID string, msg *model.Message) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(userID, msg.ConversationID); err != nil {
		return 0, err
	}

	s.seq++
	copied := *msg
	copied.Sequence = s.seq
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], copied)
	return s.seq, nil
}

// Messages returns the full ordered message history.
func (s *MemoryConversationStore) Messages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.owned(userID, conversationID); err != nil {
		return nil, err
	}

	msgs := s.messages[conversationID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// RecentMessages returns the most recent limit messages, oldest first.
func (s *MemoryConversationStore) RecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error) {
	msgs, err := s.Messages(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// AppendEvent records a turn event.
func (s *MemoryConversationStore) AppendEvent(ctx context.Context, userID string, event *model.TurnEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.ConversationID] = append(s.events[event.ConversationID], *event)
	return nil
}

// Events returns recorded events for a conversation. Test helper.
func (s *MemoryConversationStore) Events(conversationID string) []model.TurnEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[conversationID]
	out := make([]model.TurnEvent, len(events))
	copy(out, events)
	return out
}

// MemoryTaskStore is a map-backed TaskStore for tests and NATS-free runs.
type MemoryTaskStore struct {
	mu     sync.RWMutex
	tasks  map[int64]*model.Task
	nextID int64
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[int64]*model.Task)}
}

// CreateTask inserts a task and assigns it an ID.
func (s *MemoryTaskStore) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	copied := *task
	copied.ID = s.nextID
	s.tasks[copied.ID] = &copied

	result := copied
	return &result, nil
}

// GetTask returns a task owned by userID.
func (s *MemoryTaskStore) GetTask(ctx context.Context, userID string, taskID int64) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists || task.UserID != userID {
		return nil, apperr.ErrNotFound
	}

	copied := *task
	return &copied, nil
}

// ListTasks returns a page of tasks owned by userID, newest first.
func (s *MemoryTaskStore) ListTasks(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []model.Task
	for id := s.nextID; id >= 1; id-- {
		task, exists := s.tasks[id]
		if !exists || task.UserID != userID {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		tasks = append(tasks, *task)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	start := filter.Offset
	if start > len(tasks) {
		start = len(tasks)
	}
	end := start + limit
	if end > len(tasks) {
		end = len(tasks)
	}

	return tasks[start:end], nil
}

// UpdateTask applies the non-nil fields of update to a task owned by userID.
func (s *MemoryTaskStore) UpdateTask(ctx context.Context, userID string, taskID int64, update model.TaskUpdate) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.Empty() {
		return nil, apperr.Validationf("no fields to update")
	}

	task, exists := s.tasks[taskID]
	if !exists || task.UserID != userID {
		return nil, apperr.ErrNotFound
	}

	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Completed != nil {
		task.Completed = *update.Completed
	}

	copied := *task
	return &copied, nil
}

// DeleteTask removes a task owned by userID.
func (s *MemoryTaskStore) DeleteTask(ctx context.Context, userID string, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists || task.UserID != userID {
		return apperr.ErrNotFound
	}

	delete(s.tasks, taskID)
	return nil
}
