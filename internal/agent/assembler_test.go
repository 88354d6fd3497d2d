package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tasklane-ai/chat-orchestrator/internal/model"
	"github.com/tasklane-ai/chat-orchestrator/pkg/logger"
)

type fakeSource struct {
	messages []model.Message
	gotLimit int
}

func (f *fakeSource) RecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error) {
	f.gotLimit = limit
	if limit > 0 && len(f.messages) > limit {
		return f.messages[len(f.messages)-limit:], nil
	}
	return f.messages, nil
}

func makeMessages(n int, content string) []model.Message {
	msgs := make([]model.Message, n)
	for i := range msgs {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msgs[i] = model.Message{
			Sender:  role,
			Content: fmt.Sprintf("%s %d", content, i),
		}
	}
	return msgs
}

func TestBuildContextDirectiveFirst(t *testing.T) {
	src := &fakeSource{messages: makeMessages(3, "hello")}
	a := NewAssembler(src, 20, 8000, logger.NewNop())

	exchange, truncated, err := a.BuildContext(context.Background(), "alice", "conv-1")
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if truncated {
		t.Fatal("unexpected truncation")
	}
	if len(exchange) != 4 {
		t.Fatalf("exchange length = %d, want 4", len(exchange))
	}
	if exchange[0].Role != string(model.RoleSystem) || exchange[0].Content != SystemDirective {
		t.Fatal("system directive must be the first entry")
	}
	if exchange[1].Content != "hello 0" || exchange[3].Content != "hello 2" {
		t.Fatal("messages out of order")
	}
}

func TestBuildContextWindowLimit(t *testing.T) {
	src := &fakeSource{messages: makeMessages(50, "msg")}
	a := NewAssembler(src, 20, 8000, logger.NewNop())

	exchange, _, err := a.BuildContext(context.Background(), "alice", "conv-1")
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if src.gotLimit != 20 {
		t.Fatalf("requested window = %d, want 20", src.gotLimit)
	}
	// Directive plus the 20 most recent.
	if len(exchange) != 21 {
		t.Fatalf("exchange length = %d, want 21", len(exchange))
	}
	if exchange[len(exchange)-1].Content != "msg 49" {
		t.Fatalf("last message = %q, want the most recent", exchange[len(exchange)-1].Content)
	}
}

func TestBuildContextBudgetDropsOldestFirst(t *testing.T) {
	// Each message estimates to 1000/4+4 = 254 units; five of them plus the
	// directive exceed a budget of 800, so the oldest get dropped.
	big := strings.Repeat("x", 1000)
	src := &fakeSource{messages: makeMessages(5, big)}
	a := NewAssembler(src, 20, 800, logger.NewNop())

	exchange, truncated, err := a.BuildContext(context.Background(), "alice", "conv-1")
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if !truncated {
		t.Fatal("expected truncation")
	}
	if exchange[0].Content != SystemDirective {
		t.Fatal("directive must survive truncation")
	}
	last := exchange[len(exchange)-1]
	if !strings.HasSuffix(last.Content, " 4") {
		t.Fatalf("most recent message was dropped, last = %q...", last.Content[:20])
	}
	if EstimateSize(exchange) > 800+254 {
		// At most one message may straddle the boundary since the most
		// recent is never dropped.
		t.Fatalf("exchange size %d far exceeds budget", EstimateSize(exchange))
	}
}

func TestBuildContextNeverDropsMostRecent(t *testing.T) {
	// A single oversized message still goes through.
	huge := strings.Repeat("z", 100000)
	src := &fakeSource{messages: []model.Message{{Sender: model.RoleUser, Content: huge}}}
	a := NewAssembler(src, 20, 800, logger.NewNop())

	exchange, _, err := a.BuildContext(context.Background(), "alice", "conv-1")
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if len(exchange) != 2 {
		t.Fatalf("exchange length = %d, want directive plus the message", len(exchange))
	}
	if exchange[1].Content != huge {
		t.Fatal("most recent message must never be dropped")
	}
}

func TestEstimateSize(t *testing.T) {
	if got := EstimateSize(nil); got != 0 {
		t.Fatalf("EstimateSize(nil) = %d, want 0", got)
	}

	exchange, _, err := NewAssembler(&fakeSource{messages: makeMessages(2, strings.Repeat("a", 98))}, 20, 8000, logger.NewNop()).
		BuildContext(context.Background(), "alice", "conv-1")
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	// Directive plus two 100-byte messages ("...a 0"), 4 units overhead each.
	want := len(SystemDirective)/4 + 4 + 2*(100/4+4)
	if got := EstimateSize(exchange); got != want {
		t.Fatalf("EstimateSize = %d, want %d", got, want)
	}
}
