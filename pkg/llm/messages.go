package llm

//----------------------------------------------------------------
// Message - unified conversation message
//----------------------------------------------------------------

// Message represents one entry in a conversation.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system", "tool"
	Content string `json:"content"` // plain text content

	// ToolCalls contains tool invocation requests produced by the LLM
	// (only meaningful when Role is "assistant").
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links this message to the tool call it answers
	// (only meaningful when Role is "tool").
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolName records which tool produced this result
	// (only meaningful when Role is "tool").
	ToolName string `json:"tool_name,omitempty"`

	// Usage holds token accounting for an assistant response.
	Usage *Usage `json:"usage,omitempty"`
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the concrete function name and arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

//----------------------------------------------------------------
// ToolDefinition - callable contract advertised to the LLM
//----------------------------------------------------------------

// ToolDefinition describes one callable function advertised to the model.
// Parameters carries a JSON Schema object; each provider client converts it
// into its native tool format.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

//----------------------------------------------------------------
// Usage - token accounting
//----------------------------------------------------------------

// Usage is the normalized usage statistics structure.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	StopReason       string `json:"stop_reason,omitempty"`
}

//----------------------------------------------------------------
// Helper Functions - Message
//----------------------------------------------------------------

// NewTextMessage builds a plain text message.
func NewTextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: text,
	}
}

// NewSystemMessage builds a system message.
func NewSystemMessage(text string) Message {
	return NewTextMessage(RoleSystem, text)
}

// NewUserMessage builds a user message.
func NewUserMessage(text string) Message {
	return NewTextMessage(RoleUser, text)
}

// NewAssistantMessage builds an assistant message.
func NewAssistantMessage(text string) Message {
	return NewTextMessage(RoleAssistant, text)
}

// NewToolResultMessage builds a tool result message keyed by the call ID.
func NewToolResultMessage(callID, toolName, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		ToolName:   toolName,
	}
}

// HasToolCalls reports whether the message requests any tool invocation.
func (m *Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
