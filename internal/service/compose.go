package service

import (
	"fmt"
	"strings"

	"github.com/tasklane-ai/chat-orchestrator/internal/model"
	"github.com/tasklane-ai/chat-orchestrator/internal/tool"
)

// composeReply synthesizes a natural-language reply from tool results when
// the provider returned tool calls without accompanying text. Successful and
// failed calls are both reported, in invocation order.
func composeReply(results []tool.Result) string {
	if len(results) == 0 {
		return "I processed your request."
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, describeResult(r))
	}

	return strings.Join(parts, "\n\n")
}

func describeResult(r tool.Result) string {
	if !r.Success {
		return describeFailure(r)
	}

	switch r.Tool {
	case tool.NameAddTask:
		if task, ok := r.Data.(*model.Task); ok {
			return fmt.Sprintf("I've created a new task: %q (ID: %d).", task.Title, task.ID)
		}
		return "I've created the task."

	case tool.NameListTasks:
		tasks, ok := r.Data.([]model.Task)
		if !ok {
			return "I've retrieved your tasks."
		}
		return renderTaskList(tasks)

	case tool.NameCompleteTask:
		if task, ok := r.Data.(*model.Task); ok {
			return fmt.Sprintf("I've marked %q (ID: %d) as complete. Nice work!", task.Title, task.ID)
		}
		return "I've marked the task as complete."

	case tool.NameDeleteTask:
		if len(r.TaskIDs) == 1 {
			return fmt.Sprintf("I've deleted task %d.", r.TaskIDs[0])
		}
		return "I've deleted the task."

	case tool.NameUpdateTask:
		if task, ok := r.Data.(*model.Task); ok {
			return fmt.Sprintf("I've updated %q (ID: %d).", task.Title, task.ID)
		}
		return "I've updated the task."

	default:
		return "Done."
	}
}

func describeFailure(r tool.Result) string {
	verb := map[string]string{
		tool.NameAddTask:      "create that task",
		tool.NameListTasks:    "retrieve your tasks",
		tool.NameCompleteTask: "complete that task",
		tool.NameDeleteTask:   "delete that task",
		tool.NameUpdateTask:   "update that task",
	}[r.Tool]
	if verb == "" {
		verb = "do that"
	}

	if r.Code == tool.CodeAlreadyCompleted {
		return fmt.Sprintf("That task is already marked as complete (%s).", r.Error)
	}

	return fmt.Sprintf("I couldn't %s: %s.", verb, r.Error)
}

func renderTaskList(tasks []model.Task) string {
	if len(tasks) == 0 {
		return "You don't have any tasks yet. Would you like to create one?"
	}

	var b strings.Builder
	if len(tasks) == 1 {
		b.WriteString("Here is your task:\n")
	} else {
		fmt.Fprintf(&b, "Here are your %d tasks:\n", len(tasks))
	}

	for _, t := range tasks {
		marker := "○"
		if t.Completed {
			marker = "✓"
		}
		fmt.Fprintf(&b, "\n%s [%d] %s", marker, t.ID, t.Title)
		if t.Description != "" {
			fmt.Fprintf(&b, " - %s", t.Description)
		}
	}

	return b.String()
}
