package types

import (
	"encoding/json"
	"strings"
)

// MessageResponse is the model's response to one turn.
type MessageResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"` // "message"
	Role       string         `json:"role"` // "assistant"
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason"`
}

// StopReason indicates why generation stopped.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonMaxTokens StopReason = "max_tokens"
	StopReasonToolUse   StopReason = "tool_use"
)

// TextContent returns all text content concatenated.
func (r *MessageResponse) TextContent() string {
	var parts []string
	for _, block := range r.Content {
		if tb, ok := block.(TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

// ToolUses returns all tool use blocks.
func (r *MessageResponse) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, block := range r.Content {
		if tu, ok := block.(ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// FirstToolUse returns the first tool use block, or nil if none.
// Only one tool call per turn is honored by this module.
func (r *MessageResponse) FirstToolUse() *ToolUseBlock {
	for _, block := range r.Content {
		if tu, ok := block.(ToolUseBlock); ok {
			return &tu
		}
	}
	return nil
}

// HasToolUse returns true if the response contains tool calls.
func (r *MessageResponse) HasToolUse() bool {
	return r.FirstToolUse() != nil
}

// UnmarshalMessageResponse deserializes a MessageResponse, decoding content
// blocks into concrete ContentBlock implementations.
func UnmarshalMessageResponse(data []byte) (*MessageResponse, error) {
	var raw struct {
		ID         string            `json:"id"`
		Type       string            `json:"type"`
		Role       string            `json:"role"`
		Model      string            `json:"model"`
		Content    []json.RawMessage `json:"content"`
		StopReason StopReason        `json:"stop_reason"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	content := make([]ContentBlock, 0, len(raw.Content))
	for _, blockRaw := range raw.Content {
		block, err := UnmarshalContentBlock(blockRaw)
		if err != nil {
			return nil, err
		}
		content = append(content, block)
	}

	return &MessageResponse{
		ID:         raw.ID,
		Type:       raw.Type,
		Role:       raw.Role,
		Model:      raw.Model,
		Content:    content,
		StopReason: raw.StopReason,
	}, nil
}
