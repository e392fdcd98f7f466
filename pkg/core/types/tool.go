package types

// Tool represents a tool that the model can use.
type Tool struct {
	Type        string      `json:"type"` // "function"
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	InputSchema *JSONSchema `json:"input_schema,omitempty"`
}

// ToolChoice specifies how the model should choose tools.
type ToolChoice struct {
	Type string `json:"type"`           // "auto", "any", "none", "tool"
	Name string `json:"name,omitempty"` // Required when type="tool"
}

// ToolTypeFunction is the only tool type this module registers.
const ToolTypeFunction = "function"

// NewFunctionTool creates a new function tool.
func NewFunctionTool(name, description string, schema *JSONSchema) Tool {
	return Tool{
		Type:        ToolTypeFunction,
		Name:        name,
		Description: description,
		InputSchema: schema,
	}
}

// ToolChoiceAuto returns a ToolChoice that lets the model decide.
func ToolChoiceAuto() *ToolChoice {
	return &ToolChoice{Type: "auto"}
}

// ToolChoiceNone prevents the model from using tools.
func ToolChoiceNone() *ToolChoice {
	return &ToolChoice{Type: "none"}
}
