package types

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is the interface for all content types.
// INPUT:  text, image, tool_result
// OUTPUT: text, tool_use
type ContentBlock interface {
	BlockType() string
}

// TextBlock represents text content.
type TextBlock struct {
	Type string `json:"type"` // "text"
	Text string `json:"text"`
}

func (t TextBlock) BlockType() string { return "text" }

// ImageBlock represents image content.
type ImageBlock struct {
	Type   string      `json:"type"` // "image"
	Source ImageSource `json:"source"`
}

func (t ImageBlock) BlockType() string { return "image" }

// ImageSource contains the image data or reference.
type ImageSource struct {
	Type      string `json:"type"`                 // "base64" or "url"
	MediaType string `json:"media_type,omitempty"` // "image/png", etc.
	Data      string `json:"data,omitempty"`       // base64 data
	URL       string `json:"url,omitempty"`        // URL reference
}

// ToolUseBlock represents a tool call from the model. Raw preserves the
// argument bytes exactly as the model sent them; Input is a best-effort
// decode and is nil when those bytes are not valid JSON.
type ToolUseBlock struct {
	Type  string          `json:"type"` // "tool_use"
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input map[string]any  `json:"input"`
	Raw   json.RawMessage `json:"-"`
}

func (t ToolUseBlock) BlockType() string { return "tool_use" }

// RawInput returns the tool input for schema validation: the model's
// original bytes when available, otherwise Input re-encoded.
func (t ToolUseBlock) RawInput() (json.RawMessage, error) {
	if len(t.Raw) > 0 {
		return t.Raw, nil
	}
	return json.Marshal(t.Input)
}

// ToolResultBlock represents the result of a tool call.
type ToolResultBlock struct {
	Type      string         `json:"type"` // "tool_result"
	ToolUseID string         `json:"tool_use_id"`
	Content   []ContentBlock `json:"content"`
	IsError   bool           `json:"is_error,omitempty"`
}

func (t ToolResultBlock) BlockType() string { return "tool_result" }

// MarshalJSON implements custom JSON marshaling for ToolResultBlock.
func (t ToolResultBlock) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"type":        t.Type,
		"tool_use_id": t.ToolUseID,
	}
	if t.IsError {
		m["is_error"] = true
	}
	if len(t.Content) > 0 {
		contentJSON := make([]json.RawMessage, len(t.Content))
		for i, block := range t.Content {
			b, err := json.Marshal(block)
			if err != nil {
				return nil, err
			}
			contentJSON[i] = b
		}
		m["content"] = contentJSON
	}
	return json.Marshal(m)
}

// UnmarshalContentBlock deserializes a content block from JSON.
func UnmarshalContentBlock(data []byte) (ContentBlock, error) {
	var typeHolder struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &typeHolder); err != nil {
		return nil, err
	}

	switch typeHolder.Type {
	case "text":
		var block TextBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "image":
		var block ImageBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "tool_use":
		var block ToolUseBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "tool_result":
		var raw struct {
			Type      string            `json:"type"`
			ToolUseID string            `json:"tool_use_id"`
			Content   []json.RawMessage `json:"content"`
			IsError   bool              `json:"is_error"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		block := ToolResultBlock{
			Type:      raw.Type,
			ToolUseID: raw.ToolUseID,
			IsError:   raw.IsError,
		}
		for _, inner := range raw.Content {
			nested, err := UnmarshalContentBlock(inner)
			if err != nil {
				return nil, err
			}
			block.Content = append(block.Content, nested)
		}
		return block, nil

	default:
		return nil, fmt.Errorf("unknown content block type: %q", typeHolder.Type)
	}
}

// UnmarshalContentBlocks deserializes an array of content blocks.
func UnmarshalContentBlocks(data []byte) ([]ContentBlock, error) {
	var rawBlocks []json.RawMessage
	if err := json.Unmarshal(data, &rawBlocks); err != nil {
		return nil, err
	}

	blocks := make([]ContentBlock, 0, len(rawBlocks))
	for _, raw := range rawBlocks {
		block, err := UnmarshalContentBlock(raw)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// Text creates a TextBlock.
func Text(text string) TextBlock {
	return TextBlock{Type: "text", Text: text}
}

// ImageURL creates an ImageBlock referencing a hosted image.
func ImageURL(url string) ImageBlock {
	return ImageBlock{Type: "image", Source: ImageSource{Type: "url", URL: url}}
}
