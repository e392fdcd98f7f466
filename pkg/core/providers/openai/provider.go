// Package openai implements an OpenAI-compatible Chat Completions client.
// It translates between the auditline message format and OpenAI's wire format.
package openai

import (
	"context"
	"net/http"

	"github.com/junctionhq/auditline/pkg/core/types"
)

const (
	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultMaxTokens is the default max tokens if not specified.
	DefaultMaxTokens = 4096
)

// Provider implements the OpenAI Chat Completions API.
type Provider struct {
	apiKey              string
	baseURL             string
	chatCompletionsPath string
	httpClient          *http.Client
	extraHeaders        map[string]string
}

// New creates a new OpenAI provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:              apiKey,
		baseURL:             DefaultBaseURL,
		chatCompletionsPath: "/chat/completions",
		httpClient:          &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "openai"
}

// CreateMessage sends a non-streaming request to OpenAI.
func (p *Provider) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	openaiReq := p.buildRequest(req)

	respBody, err := p.doRequest(ctx, openaiReq)
	if err != nil {
		return nil, err
	}

	return p.parseResponse(respBody)
}
