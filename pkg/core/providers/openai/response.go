package openai

import (
	"encoding/json"
	"fmt"

	"github.com/junctionhq/auditline/pkg/core/types"
)

// chatResponse is the OpenAI Chat Completions response format.
type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// parseResponse parses an OpenAI response into an auditline response.
func (p *Provider) parseResponse(body []byte) (*types.MessageResponse, error) {
	var openaiResp chatResponse
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(openaiResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := openaiResp.Choices[0]

	content := make([]types.ContentBlock, 0)

	if choice.Message.Content != nil {
		if c, ok := choice.Message.Content.(string); ok && c != "" {
			content = append(content, types.Text(c))
		}
	}

	for _, tc := range choice.Message.ToolCalls {
		// Input is a convenience decode only. Raw keeps the model's exact
		// bytes so the tool boundary validates what was actually sent.
		var input map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
			input = nil
		}

		content = append(content, types.ToolUseBlock{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
			Raw:   json.RawMessage(tc.Function.Arguments),
		})
	}

	return &types.MessageResponse{
		ID:         openaiResp.ID,
		Type:       "message",
		Role:       "assistant",
		Model:      openaiResp.Model,
		Content:    content,
		StopReason: mapFinishReason(choice.FinishReason),
	}, nil
}

// mapFinishReason converts OpenAI finish_reason to a stop reason.
func mapFinishReason(reason string) types.StopReason {
	switch reason {
	case "stop":
		return types.StopReasonEndTurn
	case "length":
		return types.StopReasonMaxTokens
	case "tool_calls":
		return types.StopReasonToolUse
	default:
		return types.StopReasonEndTurn
	}
}
