package core

import (
	"context"

	"github.com/junctionhq/auditline/pkg/core/types"
)

// ModelClient is the request/response model gateway.
type ModelClient interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// CreateMessage sends one turn's worth of context and returns exactly
	// one response.
	CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error)
}
