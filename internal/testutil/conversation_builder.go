package testutil

import (
	"strconv"

	"github.com/hupe1980/toolmesh/core"
)

// ConversationBuilder provides a fluent helper for constructing conversations
// in tests.
// Example:
//
//	conv := NewConversationBuilder().System("be nice").User("hi").Assistant("hello").Build()
//
// Messages get deterministic IDs ("m1", "m2", ...) so assertions can compare
// whole values.
type ConversationBuilder struct {
	msgs []core.Message
}

// NewConversationBuilder creates an empty builder.
func NewConversationBuilder() *ConversationBuilder { return &ConversationBuilder{} }

func (b *ConversationBuilder) add(m core.Message) *ConversationBuilder {
	m.ID = "m" + strconv.Itoa(len(b.msgs)+1)
	b.msgs = append(b.msgs, m)
	return b
}

// System appends a system message (chainable).
func (b *ConversationBuilder) System(text string) *ConversationBuilder {
	return b.add(core.Message{Role: core.RoleSystem, Content: text})
}

// User appends a user message (chainable).
func (b *ConversationBuilder) User(text string) *ConversationBuilder {
	return b.add(core.Message{Role: core.RoleUser, Content: text})
}

// Assistant appends an assistant reply carrying an optional tool window (chainable).
func (b *ConversationBuilder) Assistant(text string, active ...core.ToolDefinition) *ConversationBuilder {
	return b.add(core.Message{Role: core.RoleAssistant, Content: text, ActiveTools: active})
}

// ToolCall appends an assistant tool call echo (chainable).
func (b *ConversationBuilder) ToolCall(id, name, args string) *ConversationBuilder {
	return b.add(core.Message{Role: core.RoleAssistant, ToolCall: &core.ToolCallRequest{ID: id, Name: name, Arguments: args}})
}

// FunctionResult appends a tool result carrying a tool window (chainable).
func (b *ConversationBuilder) FunctionResult(id, name, content string, active ...core.ToolDefinition) *ConversationBuilder {
	return b.add(core.Message{Role: core.RoleFunction, Name: name, ToolCallID: id, Content: content, ActiveTools: active})
}

// Build returns the conversation.
func (b *ConversationBuilder) Build() core.Conversation {
	return core.NewConversation(b.msgs...)
}

// Defs builds bare tool definitions with the given names; names other than
// the search tool get a GET binding on /<name>.
func Defs(names ...string) []core.ToolDefinition {
	defs := make([]core.ToolDefinition, len(names))
	for i, n := range names {
		defs[i] = core.ToolDefinition{
			Name:        n,
			Description: n + " tool",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			HTTP:        &core.HTTPBinding{Verb: "GET", Path: "/" + n},
		}
	}
	return defs
}
