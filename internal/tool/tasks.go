package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxListLimit         = 100
)

type addTaskArgs struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed,omitempty"`
}

func (d *Dispatcher) addTask(ctx context.Context, userID string, raw json.RawMessage) (any, []int64, error) {
	var args addTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, nil, apperr.Validationf("invalid add_task arguments")
	}

	title := strings.TrimSpace(args.Title)
	if err := validateTitle(title); err != nil {
		return nil, nil, err
	}
	if err := validateDescription(args.Description); err != nil {
		return nil, nil, err
	}

	task, err := d.tasks.CreateTask(ctx, &model.Task{
		UserID:      userID,
		Title:       title,
		Description: args.Description,
		Completed:   args.Completed,
	})
	if err != nil {
		return nil, nil, err
	}

	return task, []int64{task.ID}, nil
}

type listTasksArgs struct {
	Completed *bool `json:"completed,omitempty"`
	Limit     *int  `json:"limit,omitempty"`
	Offset    *int  `json:"offset,omitempty"`
}

func (d *Dispatcher) listTasks(ctx context.Context, userID string, raw json.RawMessage) (any, []int64, error) {
	var args listTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, nil, apperr.Validationf("invalid list_tasks arguments")
	}

	filter := model.TaskFilter{
		Completed: args.Completed,
		Limit:     maxListLimit,
	}

	if args.Limit != nil {
		if *args.Limit < 1 || *args.Limit > maxListLimit {
			return nil, nil, apperr.Validationf("limit must be between 1 and %d", maxListLimit)
		}
		filter.Limit = *args.Limit
	}

	if args.Offset != nil {
		if *args.Offset < 0 {
			return nil, nil, apperr.Validationf("offset must not be negative")
		}
		filter.Offset = *args.Offset
	}

	tasks, err := d.tasks.ListTasks(ctx, userID, filter)
	if err != nil {
		return nil, nil, err
	}

	// Listing mutates nothing, so no task IDs are reported as touched.
	return tasks, nil, nil
}

type taskIDArgs struct {
	TaskID int64 `json:"task_id"`
}

func (d *Dispatcher) completeTask(ctx context.Context, userID string, raw json.RawMessage) (any, []int64, error) {
	var args taskIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, nil, apperr.Validationf("invalid complete_task arguments")
	}
	if err := validateTaskID(args.TaskID); err != nil {
		return nil, nil, err
	}

	task, err := d.tasks.GetTask(ctx, userID, args.TaskID)
	if err != nil {
		return nil, nil, err
	}

	// Already-done is reported, not silently absorbed, so the assistant can
	// phrase an accurate reply.
	if task.Completed {
		return nil, nil, fmt.Errorf("task %d: %w", args.TaskID, errAlreadyCompleted)
	}

	completed := true
	updated, err := d.tasks.UpdateTask(ctx, userID, args.TaskID, model.TaskUpdate{Completed: &completed})
	if err != nil {
		return nil, nil, err
	}

	return updated, []int64{updated.ID}, nil
}

func (d *Dispatcher) deleteTask(ctx context.Context, userID string, raw json.RawMessage) (any, []int64, error) {
	var args taskIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, nil, apperr.Validationf("invalid delete_task arguments")
	}
	if err := validateTaskID(args.TaskID); err != nil {
		return nil, nil, err
	}

	if err := d.tasks.DeleteTask(ctx, userID, args.TaskID); err != nil {
		return nil, nil, err
	}

	return map[string]any{"task_id": args.TaskID, "deleted": true}, []int64{args.TaskID}, nil
}

type updateTaskArgs struct {
	TaskID      int64   `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

func (d *Dispatcher) updateTask(ctx context.Context, userID string, raw json.RawMessage) (any, []int64, error) {
	var args updateTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, nil, apperr.Validationf("invalid update_task arguments")
	}
	if err := validateTaskID(args.TaskID); err != nil {
		return nil, nil, err
	}

	update := model.TaskUpdate{
		Title:       args.Title,
		Description: args.Description,
		Completed:   args.Completed,
	}
	if update.Empty() {
		return nil, nil, apperr.Validationf("at least one of title, description, or completed must be provided")
	}

	if args.Title != nil {
		trimmed := strings.TrimSpace(*args.Title)
		if err := validateTitle(trimmed); err != nil {
			return nil, nil, err
		}
		update.Title = &trimmed
	}
	if args.Description != nil {
		if err := validateDescription(*args.Description); err != nil {
			return nil, nil, err
		}
	}

	task, err := d.tasks.UpdateTask(ctx, userID, args.TaskID, update)
	if err != nil {
		return nil, nil, err
	}

	return task, []int64{task.ID}, nil
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < 1 {
		return apperr.Validationf("title is required")
	}
	if n > maxTitleLength {
		return apperr.Validationf("title must be at most %d characters", maxTitleLength)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return apperr.Validationf("description must be at most %d characters", maxDescriptionLength)
	}
	return nil
}

func validateTaskID(id int64) error {
	if id <= 0 {
		return apperr.Validationf("task_id must be a positive integer")
	}
	return nil
}
