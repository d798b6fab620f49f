package analysis

import "manbo/internal/adapters/ai"

// Conversation is the append-only message history of one analyst run. It
// wraps the raw message slice so callers cannot rewrite prior turns.
type Conversation struct {
	messages []ai.Message
}

// NewConversation starts a conversation with a system prompt and the user
// task description.
func NewConversation(systemPrompt, userPrompt string) *Conversation {
	return &Conversation{messages: []ai.Message{
		{Role: ai.RoleSystem, Content: systemPrompt},
		{Role: ai.RoleUser, Content: userPrompt},
	}}
}

// Append adds messages to the end of the history.
func (c *Conversation) Append(msgs ...ai.Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns the history for a model call. Callers must not mutate
// the returned slice.
func (c *Conversation) Messages() []ai.Message {
	return c.messages
}

// Len reports the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// HasToolResult reports whether any prior turn contains a tool result.
// This drives the framing choice: an analyst that already holds data is
// told to analyze, one without is told to call its tool first.
func (c *Conversation) HasToolResult() bool {
	for _, msg := range c.messages {
		if msg.Role == ai.RoleTool {
			return true
		}
	}
	return false
}
