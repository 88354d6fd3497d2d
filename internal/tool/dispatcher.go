// Package tool implements the fixed catalog of task operations the reasoning
// provider may request. Dispatch is a closed table keyed by tool name; every
// handler validates its arguments before touching the task store, and the
// acting user is always the verified identity of the enclosing turn, never
// anything read from tool arguments.
package tool

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/internal/store"
	"github.com/tasklane-ai/chat-orchestrator/pkg/logger"
	"github.com/tasklane-ai/chat-orchestrator/pkg/metrics"
)

// Tool names. The catalog is closed: an unknown name is a validation failure,
// never a lookup into arbitrary code.
const (
	NameAddTask      = "add_task"
	NameListTasks    = "list_tasks"
	NameCompleteTask = "complete_task"
	NameDeleteTask   = "delete_task"
	NameUpdateTask   = "update_task"
)

// Failure codes carried on unsuccessful results.
const (
	CodeValidation       = "validation_error"
	CodeNotFound         = "not_found_or_unauthorized"
	CodeStore            = "store_error"
	CodeAlreadyCompleted = "already_completed"
)

// errAlreadyCompleted marks the non-fatal informational failure for
// complete_task on a task that is already done.
var errAlreadyCompleted = errors.New("task is already completed")

// Result is the envelope every invocation returns. The dispatcher never lets
// an error escape past its boundary.
type Result struct {
	Tool    string `json:"tool"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`

	// TaskIDs lists tasks the call created or mutated. Internal bookkeeping
	// for the turn result, not part of the wire envelope.
	TaskIDs []int64 `json:"-"`
}

type handlerFunc func(ctx context.Context, userID string, args json.RawMessage) (any, []int64, error)

// Dispatcher routes validated tool invocations to the task store.
type Dispatcher struct {
	tasks    store.TaskStore
	logger   *logger.Logger
	handlers map[string]handlerFunc
}

// NewDispatcher creates a dispatcher over the given task store.
func NewDispatcher(tasks store.TaskStore, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		tasks:  tasks,
		logger: log,
	}

	d.handlers = map[string]handlerFunc{
		NameAddTask:      d.addTask,
		NameListTasks:    d.listTasks,
		NameCompleteTask: d.completeTask,
		NameDeleteTask:   d.deleteTask,
		NameUpdateTask:   d.updateTask,
	}

	return d
}

// Invoke executes one tool call on behalf of userID and always returns a
// Result, translating every failure into the envelope.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args json.RawMessage, userID string) (result Result) {
	result.Tool = name

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool handler panicked",
				zap.String("tool", name),
				zap.Any("panic", r),
			)
			result = Result{
				Tool:    name,
				Success: false,
				Error:   "the operation failed unexpectedly",
				Code:    CodeStore,
			}
		}
		metrics.RecordToolInvocation(name, result.Success)
	}()

	handler, ok := d.handlers[name]
	if !ok {
		result.Error = "unknown tool: " + name
		result.Code = CodeValidation
		return result
	}

	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	data, taskIDs, err := handler(ctx, userID, args)
	if err != nil {
		result.Error = userFacingError(err)
		result.Code = classify(err)

		d.logger.Warn("tool invocation failed",
			zap.String("tool", name),
			zap.String("user_id", userID),
			zap.String("code", result.Code),
			zap.Error(err),
		)
		return result
	}

	result.Success = true
	result.Data = data
	result.TaskIDs = taskIDs
	return result
}

func classify(err error) string {
	switch {
	case errors.Is(err, errAlreadyCompleted):
		return CodeAlreadyCompleted
	case errors.Is(err, apperr.ErrValidation):
		return CodeValidation
	case errors.Is(err, apperr.ErrNotFound):
		return CodeNotFound
	default:
		return CodeStore
	}
}

// userFacingError keeps store internals out of the envelope; validation and
// ownership messages are already written for the assistant to relay.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrNotFound), errors.Is(err, errAlreadyCompleted):
		return err.Error()
	default:
		return "the task store is unavailable right now"
	}
}
