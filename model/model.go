// Package model defines the black-box language model capability agents may
// be backed by: given instructions and a message history, produce a text
// completion. Provider adapters live in the openai and anthropic
// subpackages; MockModel serves tests and examples.
package model

import (
	"context"
	"fmt"
)

// Message is a single chat turn handed to a model.
type Message struct {
	Role    string `json:"role"` // system, user or assistant
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// Request captures the normalized model input.
type Request struct {
	Instructions string    `json:"instructions"`
	Messages     []Message `json:"messages"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed model turn.
type Response struct {
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model is the minimal interface agents use to drive generation. Generate is
// unary: one hop of the conversation loop is one completion, and the
// orchestrator's per-hop timeout arrives through ctx.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Info() Info
}

// MockModel is a lightweight in-memory Model for tests and examples. It
// returns canned completions keyed on the last message content, falling back
// to a deterministic echo.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if len(req.Messages) == 0 {
		return Response{}, fmt.Errorf("no messages provided")
	}
	last := req.Messages[len(req.Messages)-1].Content
	if canned, ok := m.responses[last]; ok {
		return Response{Content: canned, FinishReason: "stop"}, nil
	}
	return Response{Content: fmt.Sprintf("echo: %s", last), FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
