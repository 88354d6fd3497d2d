package model

import (
	"time"
)

// EventType classifies a turn event.
type EventType string

const (
	EventTypeError      EventType = "error"
	EventTypeRateLimit  EventType = "rate_limit"
	EventTypeTimeout    EventType = "timeout"
	EventTypeTruncation EventType = "truncation"
)

// TurnEvent is an observability record appended next to a conversation's
// messages when something noteworthy happens during a turn.
type TurnEvent struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Type           EventType `json:"type"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}
