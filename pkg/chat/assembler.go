package chat

import (
	"context"
	"fmt"
	"strconv"

	"github.com/junctionhq/auditline/pkg/core"
	"github.com/junctionhq/auditline/pkg/core/types"
)

// SessionStore resolves audit sessions by their external reference.
type SessionStore interface {
	// GetAuditSessionByUUID returns the session or (nil, nil) when missing.
	GetAuditSessionByUUID(ctx context.Context, uuid string) (*types.AuditSession, error)
}

// TurnStore persists and rehydrates conversation turns.
type TurnStore interface {
	AppendTurn(ctx context.Context, turn types.Turn) (types.Turn, error)

	// ListTurns returns turns ordered by creation time. Hidden turns are
	// included only when includeHidden is set.
	ListTurns(ctx context.Context, sessionID int64, includeHidden bool) ([]types.Turn, error)
}

// Geolocation is an optional capture position accompanying a user turn.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Input is one new user contribution: text, an image, or both, with an
// optional capture position.
type Input struct {
	Text     string
	ImageURL string
	Location *Geolocation
}

func (in Input) empty() bool {
	return in.Text == "" && in.ImageURL == ""
}

// Assembler turns persisted session state plus new input into a model
// context.
type Assembler struct {
	sessions SessionStore
	turns    TurnStore
}

// NewAssembler creates an Assembler over the given stores.
func NewAssembler(sessions SessionStore, turns TurnStore) *Assembler {
	return &Assembler{sessions: sessions, turns: turns}
}

// BuildContext resolves the session and assembles the full message context
// for one turn: system instruction, prior turns in creation order (hidden
// turns included), then the new input. A missing session is an error, never
// an implicit creation.
func (a *Assembler) BuildContext(ctx context.Context, sessionRef string, input Input) ([]types.Message, error) {
	session, err := a.ResolveSession(ctx, sessionRef)
	if err != nil {
		return nil, err
	}
	return a.ContextFor(ctx, session, input)
}

// ResolveSession loads the audit session behind sessionRef.
func (a *Assembler) ResolveSession(ctx context.Context, sessionRef string) (*types.AuditSession, error) {
	session, err := a.sessions.GetAuditSessionByUUID(ctx, sessionRef)
	if err != nil {
		return nil, core.NewPersistenceError("load audit session", err)
	}
	if session == nil {
		return nil, core.NewSessionNotFoundError(sessionRef)
	}
	return session, nil
}

// ContextFor assembles messages for an already-resolved session.
func (a *Assembler) ContextFor(ctx context.Context, session *types.AuditSession, input Input) ([]types.Message, error) {
	if input.empty() {
		return nil, core.NewValidationError("either text or an image is required", "")
	}

	turns, err := a.turns.ListTurns(ctx, session.ID, true)
	if err != nil {
		return nil, core.NewPersistenceError("list turns", err)
	}

	messages := make([]types.Message, 0, len(turns)+2)
	messages = append(messages, types.SystemMessage(SystemPrompt))

	for _, turn := range turns {
		msg, ok := turnMessage(turn)
		if !ok {
			continue
		}
		messages = append(messages, msg)
	}

	messages = append(messages, buildInputMessage(input))
	return messages, nil
}

// turnMessage replays a persisted turn. Turns that captured an image keep it
// as an image content part so rehydration matches what the model originally
// saw. Only turns with neither text nor an image are skipped.
func turnMessage(turn types.Turn) (types.Message, bool) {
	if turn.ImageURL == "" {
		if turn.Text == "" {
			return types.Message{}, false
		}
		return types.Message{Role: turn.Role, Content: turn.Text}, true
	}

	blocks := []types.ContentBlock{types.ImageURL(turn.ImageURL)}
	if turn.Text != "" {
		blocks = append(blocks, types.Text(turn.Text))
	}
	return types.Message{Role: turn.Role, Content: blocks}, true
}

// buildInputMessage renders the new input. An image is always its own
// content part, and the capture position is always a separate text part. The
// user's words are never rewritten to embed either.
func buildInputMessage(input Input) types.Message {
	if input.ImageURL == "" && input.Location == nil {
		return types.UserMessage(input.Text)
	}

	var blocks []types.ContentBlock
	if input.ImageURL != "" {
		blocks = append(blocks, types.ImageURL(input.ImageURL))
		blocks = append(blocks, types.Text(ImagePrompt))
	}
	if input.Text != "" {
		blocks = append(blocks, types.Text(input.Text))
	}
	if input.Location != nil {
		blocks = append(blocks, types.Text(formatLocation(*input.Location)))
	}
	return types.UserMessage(blocks)
}

func formatLocation(loc Geolocation) string {
	return fmt.Sprintf("Location: %s, %s",
		strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
		strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
}
