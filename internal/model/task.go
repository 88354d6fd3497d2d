package model

import (
	"time"
)

// Task is the task-store entity the tool catalog operates on. The orchestration
// core never touches a task without scoping the query to its owner.
type Task struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskUpdate carries the optional fields of an update; at least one must be
// set for the update to be valid.
type TaskUpdate struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Empty reports whether no updatable field is set.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Completed == nil
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Completed *bool
	Limit     int
	Offset    int
}
