package core

import "encoding/json"

// Conversation is an immutable ordered sequence of messages. Insertion order
// is the only ordering guarantee. Every mutating operation returns a new
// Conversation that never shares its backing array with the receiver, so a
// value can be handed to concurrent readers without synchronization.
//
// The zero value is an empty conversation.
type Conversation struct {
	msgs []Message
}

// NewConversation creates a conversation from msgs. The slice is copied.
func NewConversation(msgs ...Message) Conversation {
	return Conversation{msgs: append([]Message(nil), msgs...)}
}

// Append returns a new conversation with msgs added at the end.
func (c Conversation) Append(msgs ...Message) Conversation {
	out := make([]Message, len(c.msgs), len(c.msgs)+len(msgs))
	copy(out, c.msgs)
	return Conversation{msgs: append(out, msgs...)}
}

// Messages returns a copy of the message sequence.
func (c Conversation) Messages() []Message {
	return append([]Message(nil), c.msgs...)
}

// Len returns the number of messages.
func (c Conversation) Len() int { return len(c.msgs) }

// At returns the i-th message.
func (c Conversation) At(i int) Message { return c.msgs[i] }

// Last returns the final message and whether one exists.
func (c Conversation) Last() (Message, bool) {
	if len(c.msgs) == 0 {
		return Message{}, false
	}
	return c.msgs[len(c.msgs)-1], true
}

// Filter returns a new conversation holding the messages for which keep
// returns true, in their original relative order.
func (c Conversation) Filter(keep func(Message) bool) Conversation {
	out := make([]Message, 0, len(c.msgs))
	for _, m := range c.msgs {
		if keep(m) {
			out = append(out, m)
		}
	}
	return Conversation{msgs: out}
}

// LastActiveTools returns the ActiveTools snapshot of the final message, or
// nil for an empty conversation.
func (c Conversation) LastActiveTools() []ToolDefinition {
	last, ok := c.Last()
	if !ok {
		return nil
	}
	return cloneDefs(last.ActiveTools)
}

// MarshalJSON encodes the conversation as a JSON array of messages.
func (c Conversation) MarshalJSON() ([]byte, error) {
	if c.msgs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.msgs)
}

// UnmarshalJSON decodes a JSON array of messages.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	c.msgs = msgs
	return nil
}
