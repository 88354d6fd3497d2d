package llm

import (
	"context"
)

// MockClient allows tests to run turns without a real reasoning provider.
// Results are consumed in order; the last one repeats once the queue drains.
type MockClient struct {
	Results  []*ReasoningResult
	Err      error
	Requests []*ReasoningRequest
}

// Reason records the request and returns the next queued result or Err.
func (m *MockClient) Reason(ctx context.Context, req *ReasoningRequest) (*ReasoningResult, error) {
	m.Requests = append(m.Requests, req)

	if m.Err != nil {
		return nil, m.Err
	}

	if len(m.Results) == 0 {
		return &ReasoningResult{ReplyText: "ok"}, nil
	}

	result := m.Results[0]
	if len(m.Results) > 1 {
		m.Results = m.Results[1:]
	}
	return result, nil
}

// Name returns the provider name.
func (m *MockClient) Name() string {
	return "mock"
}
