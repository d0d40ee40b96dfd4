package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for Client. Without CompleteFunc it answers
// "mock response"; without StreamFunc it streams the CompleteFunc result
// as a single delta, or "mock stream response" in two deltas.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	StreamFunc   func(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)

	mu       sync.Mutex
	requests []CompletionRequest
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Requests returns every request received so far, in order.
func (m *MockClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.requests...)
}

func (m *MockClient) record(req CompletionRequest) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.record(req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response", StopReason: "stop"}, nil
}

func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	if m.StreamFunc != nil {
		m.record(req)
		return m.StreamFunc(ctx, req)
	}

	ch := make(chan StreamEvent, 3)
	defer close(ch)

	if m.CompleteFunc != nil {
		resp, err := m.Complete(ctx, req)
		if err != nil {
			ch <- StreamEvent{Type: EventError, Error: err.Error()}
			return ch, nil
		}
		if resp.Content != "" {
			ch <- StreamEvent{Type: EventDelta, Content: resp.Content}
		}
		ch <- StreamEvent{Type: EventDone, Response: resp}
		return ch, nil
	}

	m.record(req)
	ch <- StreamEvent{Type: EventDelta, Content: "mock "}
	ch <- StreamEvent{Type: EventDelta, Content: "stream response"}
	ch <- StreamEvent{
		Type:     EventDone,
		Response: &CompletionResponse{Content: "mock stream response", StopReason: "stop"},
	}
	return ch, nil
}
