package model

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// TurnContext summarizes what a turn did to the task store.
type TurnContext struct {
	TasksModified []int64       `json:"tasks_modified"`
	ToolsInvoked  []ToolOutcome `json:"tools_invoked"`
}

// ChatResponse is the structured result of one turn.
type ChatResponse struct {
	ConversationID string      `json:"conversation_id"`
	Message        Message     `json:"message"`
	Context        TurnContext `json:"context"`
}
