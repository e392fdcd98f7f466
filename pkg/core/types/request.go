package types

// MessageRequest is the request structure for one model turn.
type MessageRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	// Generation parameters
	MaxTokens   int      `json:"max_tokens,omitempty"`
	System      string   `json:"system,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Tools
	Tools      []Tool      `json:"tools,omitempty"`
	ToolChoice *ToolChoice `json:"tool_choice,omitempty"`
}
