package openai

import (
	"net/http"
	"strings"
)

// Option configures the OpenAI provider.
type Option func(*Provider)

// WithBaseURL sets a custom base URL (for testing or proxying).
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithChatCompletionsPath sets a custom chat completions path.
func WithChatCompletionsPath(path string) Option {
	return func(p *Provider) {
		if path == "" {
			return
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		p.chatCompletionsPath = path
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithExtraHeader sets one additional request header.
func WithExtraHeader(key, value string) Option {
	return func(p *Provider) {
		if key == "" {
			return
		}
		if p.extraHeaders == nil {
			p.extraHeaders = make(map[string]string)
		}
		p.extraHeaders[key] = value
	}
}
