package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tasklane-ai/chat-orchestrator/internal/middleware"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
	"github.com/tasklane-ai/chat-orchestrator/internal/service"
	"github.com/tasklane-ai/chat-orchestrator/pkg/logger"
)

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	turns  *service.TurnService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(turns *service.TurnService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		turns:  turns,
		logger: log,
	}
}

// Chat handles POST /api/v1/chat. One request is one turn: the user message
// goes in, the assistant message and a summary of task changes come out.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := h.turns.HandleTurn(r.Context(), userID, req.Message, req.ConversationID)
	if err != nil {
		h.logger.Error("turn failed",
			zap.String("user_id", userID),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ChatResponse{
		ConversationID: result.ConversationID,
		Message:        *result.Message,
		Context: model.TurnContext{
			TasksModified: result.TasksModified,
			ToolsInvoked:  result.ToolsInvoked,
		},
	})
}
