package model

import (
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MaxMessageLength is the maximum message content length in runes.
const MaxMessageLength = 10000

// ToolOutcome records one tool invocation on an assistant message.
type ToolOutcome struct {
	Tool    string `json:"tool"`
	Success bool   `json:"success"`
}

// MessageMeta is optional structured metadata attached to assistant messages.
type MessageMeta struct {
	ToolsInvoked   []ToolOutcome `json:"tools_invoked,omitempty"`
	TasksModified  []int64       `json:"tasks_modified,omitempty"`
	TokensEstimate int           `json:"tokens_estimate,omitempty"`
	Model          string        `json:"model,omitempty"`
}

// Message is one entry in a conversation's append-only log. Messages are
// immutable after creation; ordering is by CreatedAt with stream sequence
// breaking ties.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Sender         Role         `json:"sender"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"created_at"`
	Meta           *MessageMeta `json:"meta,omitempty"`

	// Sequence is assigned by the message log on append.
	Sequence uint64 `json:"sequence,omitempty"`
}
