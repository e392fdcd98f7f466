package openai

import (
	"encoding/json"

	"github.com/junctionhq/auditline/pkg/core/types"
)

// chatRequest is the OpenAI Chat Completions API request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_completion_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  any           `json:"tool_choice,omitempty"`
}

// chatMessage is a single message in OpenAI format.
type chatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"` // string or []contentPart
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// contentPart is a multimodal content part.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

// imageURL contains an image URL or data URL.
type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// chatTool is a tool definition in OpenAI format.
type chatTool struct {
	Type     string       `json:"type"` // "function"
	Function toolFunction `json:"function"`
}

// toolFunction is the function definition.
type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// toolCall represents a tool call in OpenAI format.
type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// buildRequest converts an auditline request to an OpenAI request.
func (p *Provider) buildRequest(req *types.MessageRequest) *chatRequest {
	openaiReq := &chatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	openaiReq.MaxTokens = &maxTokens

	openaiReq.Messages = p.translateMessages(req.Messages, req.System)

	if len(req.Tools) > 0 {
		openaiReq.Tools = p.translateTools(req.Tools)
	}
	if req.ToolChoice != nil {
		openaiReq.ToolChoice = p.translateToolChoice(req.ToolChoice)
	}

	return openaiReq
}

// translateMessages converts auditline messages to OpenAI format.
func (p *Provider) translateMessages(messages []types.Message, system string) []chatMessage {
	result := make([]chatMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, chatMessage{Role: "system", Content: system})
	}

	for _, msg := range messages {
		blocks := msg.ContentBlocks()

		// In OpenAI, each tool result must be its own message with role "tool".
		hasToolResults := false
		for _, block := range blocks {
			if tr, ok := block.(types.ToolResultBlock); ok {
				hasToolResults = true
				result = append(result, chatMessage{
					Role:       "tool",
					ToolCallID: tr.ToolUseID,
					Content:    p.toolResultToText(tr.Content),
				})
			}
		}
		if hasToolResults {
			continue
		}

		openaiMsg := chatMessage{Role: msg.Role}

		if msg.Role == "assistant" {
			for _, block := range blocks {
				if tu, ok := block.(types.ToolUseBlock); ok {
					inputJSON, _ := json.Marshal(tu.Input)
					openaiMsg.ToolCalls = append(openaiMsg.ToolCalls, toolCall{
						ID:   tu.ID,
						Type: "function",
						Function: struct {
							Name      string `json:"name"`
							Arguments string `json:"arguments"`
						}{
							Name:      tu.Name,
							Arguments: string(inputJSON),
						},
					})
				}
			}
		}

		openaiMsg.Content = p.translateContentBlocks(blocks)

		result = append(result, openaiMsg)
	}

	return result
}

// translateContentBlocks converts auditline content blocks to OpenAI format.
func (p *Provider) translateContentBlocks(blocks []types.ContentBlock) any {
	// Tool use blocks ride on the message's tool_calls field instead.
	var nonToolBlocks []types.ContentBlock
	for _, block := range blocks {
		if _, ok := block.(types.ToolUseBlock); !ok {
			nonToolBlocks = append(nonToolBlocks, block)
		}
	}

	if len(nonToolBlocks) == 0 {
		return ""
	}

	if len(nonToolBlocks) == 1 {
		if tb, ok := nonToolBlocks[0].(types.TextBlock); ok {
			return tb.Text
		}
	}

	parts := make([]contentPart, 0, len(nonToolBlocks))

	for _, block := range nonToolBlocks {
		switch b := block.(type) {
		case types.TextBlock:
			parts = append(parts, contentPart{Type: "text", Text: b.Text})

		case types.ImageBlock:
			var url string
			if b.Source.Type == "url" {
				url = b.Source.URL
			} else {
				url = "data:" + b.Source.MediaType + ";base64," + b.Source.Data
			}
			parts = append(parts, contentPart{
				Type:     "image_url",
				ImageURL: &imageURL{URL: url},
			})
		}
	}

	if len(parts) == 1 && parts[0].Type == "text" {
		return parts[0].Text
	}

	return parts
}

// translateTools converts auditline tools to OpenAI format.
func (p *Provider) translateTools(tools []types.Tool) []chatTool {
	result := make([]chatTool, 0, len(tools))

	for _, tool := range tools {
		if tool.Type != types.ToolTypeFunction {
			continue
		}
		schemaBytes, _ := json.Marshal(tool.InputSchema)
		result = append(result, chatTool{
			Type: "function",
			Function: toolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schemaBytes,
			},
		})
	}

	return result
}

// translateToolChoice converts auditline tool choice to OpenAI format.
func (p *Provider) translateToolChoice(tc *types.ToolChoice) any {
	switch tc.Type {
	case "auto":
		return "auto"
	case "none":
		return "none"
	case "any":
		return "required"
	case "tool":
		return map[string]any{
			"type": "function",
			"function": map[string]string{
				"name": tc.Name,
			},
		}
	}
	return "auto"
}

// toolResultToText converts tool result content to text.
func (p *Provider) toolResultToText(content []types.ContentBlock) string {
	var result string
	for _, block := range content {
		if tb, ok := block.(types.TextBlock); ok {
			result += tb.Text
		}
	}
	return result
}
