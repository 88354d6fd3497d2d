package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tasklane-ai/chat-orchestrator/internal/agent"
	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/internal/llm"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
	"github.com/tasklane-ai/chat-orchestrator/internal/store"
	"github.com/tasklane-ai/chat-orchestrator/internal/tool"
	"github.com/tasklane-ai/chat-orchestrator/pkg/logger"
)

type turnFixture struct {
	turns *TurnService
	convs *ConversationService
	conv  *store.MemoryConversationStore
	tasks *store.MemoryTaskStore
	llm   *llm.MockClient
}

func newTurnFixture(mock *llm.MockClient) *turnFixture {
	log := logger.NewNop()
	convStore := store.NewMemoryConversationStore()
	taskStore := store.NewMemoryTaskStore()

	convs := NewConversationService(convStore, log)
	dispatcher := tool.NewDispatcher(taskStore, log)
	assembler := agent.NewAssembler(convs, 20, 8000, log)

	return &turnFixture{
		turns: NewTurnService(convs, dispatcher, assembler, mock, "test-model", log),
		convs: convs,
		conv:  convStore,
		tasks: taskStore,
		llm:   mock,
	}
}

func toolCall(name string, args map[string]any) llm.ToolCall {
	raw, _ := json.Marshal(args)
	return llm.ToolCall{ID: "call-1", Name: name, Arguments: raw}
}

func TestHandleTurnValidation(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{})
	ctx := context.Background()

	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t "},
		{"too long", strings.Repeat("x", model.MaxMessageLength+1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.turns.HandleTurn(ctx, "alice", tc.text, "")
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}

	// Nothing may have been persisted for rejected turns.
	page, err := f.convs.List(ctx, "alice", 100, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("rejected turns created %d conversations", page.Total)
	}
}

func TestHandleTurnNewConversation(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{
		Results: []*llm.ReasoningResult{{ReplyText: "Hello! How can I help?", Model: "test-model"}},
	})
	ctx := context.Background()

	result, err := f.turns.HandleTurn(ctx, "alice", "hi there", "")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if result.ConversationID == "" {
		t.Fatal("no conversation ID returned")
	}
	if result.Message.Content != "Hello! How can I help?" {
		t.Fatalf("reply = %q", result.Message.Content)
	}

	conv, err := f.convs.Get(ctx, "alice", result.ConversationID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if conv.Title != "hi there" {
		t.Fatalf("auto title = %q, want the first message", conv.Title)
	}

	detail, err := f.convs.History(ctx, "alice", result.ConversationID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(detail.Messages) != 2 {
		t.Fatalf("persisted %d messages, want user + assistant", len(detail.Messages))
	}
	if detail.Messages[0].Sender != model.RoleUser || detail.Messages[1].Sender != model.RoleAssistant {
		t.Fatal("messages out of order")
	}
}

func TestHandleTurnAutoTitleTruncated(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{})
	ctx := context.Background()

	long := strings.Repeat("word ", 30)
	result, err := f.turns.HandleTurn(ctx, "alice", long, "")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	conv, err := f.convs.Get(ctx, "alice", result.ConversationID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if n := len([]rune(conv.Title)); n > 61 {
		t.Fatalf("title length = %d runes, want at most 61", n)
	}
}

func TestHandleTurnExistingConversationContext(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{
		Results: []*llm.ReasoningResult{
			{ReplyText: "first reply"},
			{ReplyText: "second reply"},
		},
	})
	ctx := context.Background()

	first, err := f.turns.HandleTurn(ctx, "alice", "first message", "")
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if _, err := f.turns.HandleTurn(ctx, "alice", "second message", first.ConversationID); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	if len(f.llm.Requests) != 2 {
		t.Fatalf("reasoning calls = %d, want 2", len(f.llm.Requests))
	}

	// The second call must carry the directive plus the full prior exchange.
	second := f.llm.Requests[1]
	if second.Messages[0].Role != string(model.RoleSystem) {
		t.Fatal("directive missing from exchange")
	}
	var contents []string
	for _, m := range second.Messages[1:] {
		contents = append(contents, m.Content)
	}
	want := []string{"first message", "first reply", "second message"}
	if len(contents) != len(want) {
		t.Fatalf("exchange = %v, want %v", contents, want)
	}
	for i := range want {
		if contents[i] != want[i] {
			t.Fatalf("exchange[%d] = %q, want %q", i, contents[i], want[i])
		}
	}
}

func TestHandleTurnUnknownConversation(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{})

	_, err := f.turns.HandleTurn(context.Background(), "alice", "hello", "11111111-1111-1111-1111-111111111111")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHandleTurnForeignConversation(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{})
	ctx := context.Background()

	bobs, err := f.turns.HandleTurn(ctx, "bob", "bob's opener", "")
	if err != nil {
		t.Fatalf("bob's turn: %v", err)
	}

	_, err = f.turns.HandleTurn(ctx, "alice", "let me in", bobs.ConversationID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHandleTurnToolInvocation(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{
		Results: []*llm.ReasoningResult{{
			ReplyText: "Done, I created the task.",
			ToolCalls: []llm.ToolCall{toolCall(tool.NameAddTask, map[string]any{"title": "buy milk"})},
			Model:     "test-model",
			TokensIn:  10,
			TokensOut: 5,
		}},
	})
	ctx := context.Background()

	result, err := f.turns.HandleTurn(ctx, "alice", "add a task to buy milk", "")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	if len(result.ToolsInvoked) != 1 || result.ToolsInvoked[0].Tool != tool.NameAddTask || !result.ToolsInvoked[0].Success {
		t.Fatalf("tools invoked = %+v", result.ToolsInvoked)
	}
	if len(result.TasksModified) != 1 {
		t.Fatalf("tasks modified = %v", result.TasksModified)
	}

	task, err := f.tasks.GetTask(ctx, "alice", result.TasksModified[0])
	if err != nil {
		t.Fatalf("task not created: %v", err)
	}
	if task.Title != "buy milk" {
		t.Fatalf("task title = %q", task.Title)
	}

	meta := result.Message.Meta
	if meta == nil {
		t.Fatal("assistant message has no metadata")
	}
	if len(meta.ToolsInvoked) != 1 || meta.Model != "test-model" || meta.TokensEstimate != 15 {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestHandleTurnToolFailureContinues(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{
		Results: []*llm.ReasoningResult{{
			ToolCalls: []llm.ToolCall{
				toolCall(tool.NameCompleteTask, map[string]any{"task_id": 999}),
				toolCall(tool.NameAddTask, map[string]any{"title": "still happens"}),
			},
		}},
	})
	ctx := context.Background()

	result, err := f.turns.HandleTurn(ctx, "alice", "complete 999 then add a task", "")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	if len(result.ToolsInvoked) != 2 {
		t.Fatalf("tools invoked = %+v, want both calls", result.ToolsInvoked)
	}
	if result.ToolsInvoked[0].Success {
		t.Fatal("first call should have failed")
	}
	if !result.ToolsInvoked[1].Success {
		t.Fatal("second call should have run despite the first failing")
	}

	// The synthesized reply must mention both outcomes.
	if !strings.Contains(result.Message.Content, "couldn't") {
		t.Fatalf("reply does not report the failure: %q", result.Message.Content)
	}
	if !strings.Contains(result.Message.Content, "still happens") {
		t.Fatalf("reply does not report the created task: %q", result.Message.Content)
	}
}

func TestHandleTurnReasoningFailure(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{
		Err: apperr.ErrReasoningUnavailable,
	})
	ctx := context.Background()

	result, err := f.turns.HandleTurn(ctx, "alice", "are you there?", "")
	if err != nil {
		t.Fatalf("a reasoning failure must not fail the turn: %v", err)
	}
	if result.Message.Sender != model.RoleAssistant {
		t.Fatal("no assistant message produced")
	}
	if !strings.Contains(result.Message.Content, "try again") {
		t.Fatalf("reply = %q, want an apologetic retry hint", result.Message.Content)
	}

	// The user message survived and both messages are in the log.
	detail, err := f.convs.History(ctx, "alice", result.ConversationID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(detail.Messages) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(detail.Messages))
	}
	if detail.Messages[0].Content != "are you there?" {
		t.Fatal("user message lost")
	}

	events := f.conv.Events(result.ConversationID)
	if len(events) != 1 || events[0].Type != model.EventTypeTimeout {
		t.Fatalf("events = %+v, want one timeout event", events)
	}
}

func TestHandleTurnSynthesizedListReply(t *testing.T) {
	f := newTurnFixture(&llm.MockClient{
		Results: []*llm.ReasoningResult{{
			// No text: the reply must be synthesized from the tool result.
			ToolCalls: []llm.ToolCall{toolCall(tool.NameListTasks, nil)},
		}},
	})
	ctx := context.Background()

	seedTask := func(title string, completed bool) {
		t.Helper()
		if _, err := f.tasks.CreateTask(ctx, &model.Task{UserID: "alice", Title: title, Completed: completed}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	seedTask("open task", false)
	seedTask("done task", true)

	result, err := f.turns.HandleTurn(ctx, "alice", "show my tasks", "")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	reply := result.Message.Content
	if !strings.Contains(reply, "open task") || !strings.Contains(reply, "done task") {
		t.Fatalf("synthesized reply missing tasks: %q", reply)
	}
	if !strings.Contains(reply, "✓") || !strings.Contains(reply, "○") {
		t.Fatalf("synthesized reply missing completion markers: %q", reply)
	}
}
