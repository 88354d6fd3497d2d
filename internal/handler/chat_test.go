package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tasklane-ai/chat-orchestrator/internal/agent"
	"github.com/tasklane-ai/chat-orchestrator/internal/llm"
	"github.com/tasklane-ai/chat-orchestrator/internal/middleware"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
	"github.com/tasklane-ai/chat-orchestrator/internal/service"
	"github.com/tasklane-ai/chat-orchestrator/internal/store"
	"github.com/tasklane-ai/chat-orchestrator/internal/tool"
	"github.com/tasklane-ai/chat-orchestrator/pkg/logger"
)

type apiFixture struct {
	router *chi.Mux
	tasks  *store.MemoryTaskStore
	convs  *service.ConversationService
}

func newAPIFixture(mock *llm.MockClient) *apiFixture {
	log := logger.NewNop()
	convStore := store.NewMemoryConversationStore()
	taskStore := store.NewMemoryTaskStore()

	convs := service.NewConversationService(convStore, log)
	dispatcher := tool.NewDispatcher(taskStore, log)
	assembler := agent.NewAssembler(convs, 20, 8000, log)
	turns := service.NewTurnService(convs, dispatcher, assembler, mock, "test-model", log)

	chatHandler := NewChatHandler(turns, log)
	conversationHandler := NewConversationHandler(convs, log)

	r := chi.NewRouter()
	r.Post("/api/v1/chat", chatHandler.Chat)
	r.Get("/api/v1/conversations", conversationHandler.List)
	r.Get("/api/v1/conversations/{id}", conversationHandler.Get)
	r.Delete("/api/v1/conversations/{id}", conversationHandler.Delete)

	return &apiFixture{router: r, tasks: taskStore, convs: convs}
}

func (f *apiFixture) do(t *testing.T, userID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	f := newAPIFixture(&llm.MockClient{
		Results: []*llm.ReasoningResult{{
			ReplyText: "Created it.",
			ToolCalls: []llm.ToolCall{{
				ID:        "c1",
				Name:      tool.NameAddTask,
				Arguments: json.RawMessage(`{"title":"write tests"}`),
			}},
		}},
	})

	rec := f.do(t, "alice", http.MethodPost, "/api/v1/chat", model.ChatRequest{Message: "add a task to write tests"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp model.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ConversationID == "" {
		t.Fatal("no conversation ID in response")
	}
	if resp.Message.Sender != model.RoleAssistant || resp.Message.Content != "Created it." {
		t.Fatalf("message = %+v", resp.Message)
	}
	if len(resp.Context.ToolsInvoked) != 1 || !resp.Context.ToolsInvoked[0].Success {
		t.Fatalf("context = %+v", resp.Context)
	}
	if len(resp.Context.TasksModified) != 1 {
		t.Fatalf("tasks modified = %v", resp.Context.TasksModified)
	}

	if _, err := f.tasks.GetTask(context.Background(), "alice", resp.Context.TasksModified[0]); err != nil {
		t.Fatalf("task not durable: %v", err)
	}
}

func TestChatEndpointRejectsBadInput(t *testing.T) {
	f := newAPIFixture(&llm.MockClient{})

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"empty message", `{"message":""}`},
		{"too long", `{"message":"` + strings.Repeat("a", model.MaxMessageLength+1) + `"}`},
		{"bad conversation id", `{"message":"hi","conversation_id":"not-a-uuid"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(tc.body))
			req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, "alice"))
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestChatEndpointUnknownConversation(t *testing.T) {
	f := newAPIFixture(&llm.MockClient{})

	rec := f.do(t, "alice", http.MethodPost, "/api/v1/chat", model.ChatRequest{
		Message:        "hello",
		ConversationID: "22222222-2222-2222-2222-222222222222",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestConversationLifecycle(t *testing.T) {
	f := newAPIFixture(&llm.MockClient{
		Results: []*llm.ReasoningResult{{ReplyText: "hi"}},
	})

	rec := f.do(t, "alice", http.MethodPost, "/api/v1/chat", model.ChatRequest{Message: "start a conversation"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}
	var chat model.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &chat); err != nil {
		t.Fatalf("decode: %v", err)
	}
	convID := chat.ConversationID

	// List shows it.
	rec = f.do(t, "alice", http.MethodGet, "/api/v1/conversations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var page model.ListConversationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if page.Total != 1 || page.Conversations[0].ID != convID {
		t.Fatalf("list = %+v", page)
	}

	// Get returns the history.
	rec = f.do(t, "alice", http.MethodGet, "/api/v1/conversations/"+convID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var detail model.ConversationDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(detail.Messages) != 2 {
		t.Fatalf("history has %d messages, want 2", len(detail.Messages))
	}

	// Another user sees none of it.
	if rec = f.do(t, "bob", http.MethodGet, "/api/v1/conversations/"+convID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign get status = %d, want 404", rec.Code)
	}
	if rec = f.do(t, "bob", http.MethodDelete, "/api/v1/conversations/"+convID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d, want 404", rec.Code)
	}

	// Owner deletes; it is gone.
	if rec = f.do(t, "alice", http.MethodDelete, "/api/v1/conversations/"+convID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	if rec = f.do(t, "alice", http.MethodGet, "/api/v1/conversations/"+convID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}
