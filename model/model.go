package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/toolmesh/core"
)

// ToolChoice controls whether the model may call tools.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone forbids tool calls.
	ToolChoiceNone ToolChoice = "none"
)

// Request captures the normalized model input produced by the orchestrator.
// Messages are already stripped to their wire form (see core.Message.Wire).
type Request struct {
	Messages   []core.Message        `json:"messages"`
	Tools      []core.ToolDefinition `json:"tools,omitempty"`
	ToolChoice ToolChoice            `json:"tool_choice,omitempty"`
	Stream     bool                  `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
//
// A final response carries either assistant text, tool calls, or both.
// ToolCalls keeps every call the provider returned; the orchestrator decides
// how many to honour.
type Response struct {
	ID           string                 `json:"id"`
	Partial      bool                   `json:"partial"`
	Content      string                 `json:"content"`
	ToolCalls    []core.ToolCallRequest `json:"tool_calls,omitempty"`
	FinishReason string                 `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage            `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation.
//
// Implementations close both channels when done. A provider that receives no
// usable choice sends an error wrapping core.ErrNoResponse.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Responses are keyed by the content of the last request message.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]Response
	requests  []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		responses: make(map[string]Response),
	}
}

// AddResponse registers a deterministic canned text completion for an input.
func (m *MockModel) AddResponse(input, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = Response{Content: response, FinishReason: "stop"}
}

// AddToolCall registers a canned tool call for an input.
func (m *MockModel) AddToolCall(input string, call core.ToolCallRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = Response{ToolCalls: []core.ToolCallRequest{call}, FinishReason: "tool_calls"}
}

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		input := req.Messages[len(req.Messages)-1].Content

		m.mu.Lock()
		resp, ok := m.responses[input]
		m.mu.Unlock()
		if !ok {
			resp = Response{Content: fmt.Sprintf("Mock response to: %s", input), FinishReason: "stop"}
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- resp:
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
