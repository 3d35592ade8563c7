package backend

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/gateway-go/domain/message"
)

// mockStep is one scripted completion outcome.
type mockStep struct {
	resp Response
	err  error
}

// MockBackend returns a predefined sequence of responses for testing.
// When the sequence is exhausted it returns a plain "done" message.
type MockBackend struct {
	steps    []mockStep
	requests []Request
	index    int
	mu       sync.Mutex
}

// NewMockBackend creates a mock backend with the given responses.
func NewMockBackend(responses ...Response) *MockBackend {
	b := &MockBackend{}
	for _, resp := range responses {
		b.steps = append(b.steps, mockStep{resp: resp})
	}
	return b
}

// Name returns the backend name.
func (b *MockBackend) Name() string {
	return "mock"
}

// Complete returns the next outcome in the sequence.
func (b *MockBackend) Complete(_ context.Context, req Request) (Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests = append(b.requests, req)

	if b.index >= len(b.steps) {
		return Response{Message: message.NewAssistant("done"), StopReason: "end_turn"}, nil
	}

	step := b.steps[b.index]
	b.index++
	if step.err != nil {
		return Response{}, step.err
	}
	return step.resp, nil
}

// AddResponse appends a response to the sequence.
func (b *MockBackend) AddResponse(resp Response) *MockBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, mockStep{resp: resp})
	return b
}

// AddError appends a failing completion to the sequence.
func (b *MockBackend) AddError(err error) *MockBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, mockStep{err: err})
	return b
}

// Requests returns a copy of every request received.
func (b *MockBackend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// CallCount returns how many completions were requested.
func (b *MockBackend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// TextResponse builds a final assistant response.
func TextResponse(content string) Response {
	return Response{
		Message:    message.NewAssistant(content),
		StopReason: "end_turn",
	}
}

// ToolCallResponse builds a response requesting the given tool calls.
func ToolCallResponse(calls ...message.ToolCall) Response {
	return Response{
		Message:    message.NewAssistantToolCalls("", calls),
		StopReason: "tool_use",
	}
}
