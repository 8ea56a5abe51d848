package history

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a tool invocation requested by the model
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"args"`
}

// Message is one entry of a session transcript.
//
// Assistant messages may carry ToolCalls; tool messages carry the ToolCallID
// of the call they answer and appear after the assistant message that issued
// it and before the next assistant message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// System creates a system message
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User creates a user message
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant creates an assistant message
func Assistant(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResult creates the reply to the tool call with the given id
func ToolResult(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// HasToolCalls reports whether the message requests tool invocations
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// StringArg returns a string argument of the call, or "" when absent
func (tc ToolCall) StringArg(name string) string {
	if v, ok := tc.Arguments[name].(string); ok {
		return v
	}
	return ""
}

// EnsureSystemPrompt returns msgs with a system message at index 0,
// inserting one with the given content when missing.
func EnsureSystemPrompt(msgs []Message, prompt string) ([]Message, bool) {
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		return msgs, false
	}
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, System(prompt))
	out = append(out, msgs...)
	return out, true
}

// UserIndexes returns the transcript positions of the user messages in order
func UserIndexes(msgs []Message) []int {
	var idx []int
	for i, m := range msgs {
		if m.Role == RoleUser {
			idx = append(idx, i)
		}
	}
	return idx
}
