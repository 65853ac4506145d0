package core

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleFunction marks the result of a tool call fed back to the model.
	RoleFunction Role = "function"
)

// ToolCallRequest describes a tool invocation requested by the model.
type ToolCallRequest struct {
	ID        string `json:"id,omitempty"` // Provider supplied (or generated) call id
	Name      string `json:"name"`         // Tool name
	Arguments string `json:"arguments"`    // Serialized JSON argument payload
}

// Message is one entry of a Conversation. After it is appended to a
// Conversation it must be treated as immutable.
//
// ActiveTools is the snapshot of tool definitions visible at the point the
// message was produced. The orchestrator reads it from the last message of a
// conversation to compute the next turn's tool window.
type Message struct {
	ID          string           `json:"id,omitempty"`
	Role        Role             `json:"role"`
	Content     string           `json:"content"`
	Name        string           `json:"name,omitempty"`
	ToolCall    *ToolCallRequest `json:"tool_call,omitempty"`
	ToolCallID  string           `json:"tool_call_id,omitempty"` // set on RoleFunction results
	ActiveTools []ToolDefinition `json:"active_tools,omitempty"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a plain assistant reply tagged with the tool
// window that was active when it was produced.
func NewAssistantMessage(content string, active []ToolDefinition) Message {
	return Message{ID: NewID(), Role: RoleAssistant, Content: content, ActiveTools: cloneDefs(active)}
}

// NewToolCallMessage creates the assistant echo of a tool call request.
func NewToolCallMessage(call ToolCallRequest) Message {
	c := call
	return Message{ID: NewID(), Role: RoleAssistant, ToolCall: &c}
}

// NewFunctionResultMessage creates the result message of a tool call.
func NewFunctionResultMessage(call ToolCallRequest, content string, active []ToolDefinition) Message {
	return Message{
		ID:          NewID(),
		Role:        RoleFunction,
		Name:        call.Name,
		Content:     content,
		ToolCallID:  call.ID,
		ActiveTools: cloneDefs(active),
	}
}

// Wire returns the subset of the message accepted by completion services:
// role, content, name and the pending tool call echo.
func (m Message) Wire() Message {
	w := Message{Role: m.Role, Content: m.Content, Name: m.Name, ToolCallID: m.ToolCallID}
	if m.ToolCall != nil {
		c := *m.ToolCall
		w.ToolCall = &c
	}
	return w
}

// HasToolCall reports whether the message is a tool call echo.
func (m Message) HasToolCall() bool { return m.ToolCall != nil }

func cloneDefs(defs []ToolDefinition) []ToolDefinition {
	if defs == nil {
		return nil
	}
	out := make([]ToolDefinition, len(defs))
	copy(out, defs)
	return out
}
