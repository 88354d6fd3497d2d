package tool

import (
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/tasklane-ai/chat-orchestrator/internal/llm"
)

// Catalog returns the provider-facing definitions of the five task tools.
// The schemas mirror exactly what the handlers validate.
func Catalog() []llm.Tool {
	return []llm.Tool{
		{
			Name:        NameAddTask,
			Description: "Create a new task with title and optional description",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"title": {
						Type:        jsonschema.String,
						Description: "The title of the task (1-200 characters)",
					},
					"description": {
						Type:        jsonschema.String,
						Description: "Optional description of the task (up to 1000 characters)",
					},
					"completed": {
						Type:        jsonschema.Boolean,
						Description: "Initial completion state, defaults to false",
					},
				},
				Required: []string{"title"},
			},
		},
		{
			Name:        NameListTasks,
			Description: "List tasks with optional filters (completed, limit, offset)",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"completed": {
						Type:        jsonschema.Boolean,
						Description: "Filter by completion status",
					},
					"limit": {
						Type:        jsonschema.Integer,
						Description: "Maximum number of tasks to return (1-100, default 100)",
					},
					"offset": {
						Type:        jsonschema.Integer,
						Description: "Number of tasks to skip",
					},
				},
			},
		},
		{
			Name:        NameCompleteTask,
			Description: "Mark a task as complete by task ID",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"task_id": {
						Type:        jsonschema.Integer,
						Description: "The ID of the task to complete",
					},
				},
				Required: []string{"task_id"},
			},
		},
		{
			Name:        NameDeleteTask,
			Description: "Delete a task by task ID",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"task_id": {
						Type:        jsonschema.Integer,
						Description: "The ID of the task to delete",
					},
				},
				Required: []string{"task_id"},
			},
		},
		{
			Name:        NameUpdateTask,
			Description: "Update task fields (title, description, completed); at least one field is required",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"task_id": {
						Type:        jsonschema.Integer,
						Description: "The ID of the task to update",
					},
					"title": {
						Type:        jsonschema.String,
						Description: "New title for the task",
					},
					"description": {
						Type:        jsonschema.String,
						Description: "New description for the task",
					},
					"completed": {
						Type:        jsonschema.Boolean,
						Description: "New completion status",
					},
				},
				Required: []string{"task_id"},
			},
		},
	}
}
