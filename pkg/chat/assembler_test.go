package chat

import (
	"context"
	"testing"
	"time"

	"github.com/junctionhq/auditline/pkg/core"
	"github.com/junctionhq/auditline/pkg/core/types"
)

type fakeSessionStore struct {
	sessions map[string]*types.AuditSession
}

func (s *fakeSessionStore) GetAuditSessionByUUID(_ context.Context, uuid string) (*types.AuditSession, error) {
	return s.sessions[uuid], nil
}

type fakeTurnStore struct {
	turns    []types.Turn
	appendErr error
}

func (s *fakeTurnStore) AppendTurn(_ context.Context, turn types.Turn) (types.Turn, error) {
	if s.appendErr != nil {
		return types.Turn{}, s.appendErr
	}
	turn.ID = int64(len(s.turns) + 1)
	turn.CreatedAt = time.Now()
	s.turns = append(s.turns, turn)
	return turn, nil
}

func (s *fakeTurnStore) ListTurns(_ context.Context, sessionID int64, includeHidden bool) ([]types.Turn, error) {
	var out []types.Turn
	for _, turn := range s.turns {
		if turn.SessionID != sessionID {
			continue
		}
		if turn.Hidden && !includeHidden {
			continue
		}
		out = append(out, turn)
	}
	return out, nil
}

func newTestStores() (*fakeSessionStore, *fakeTurnStore) {
	sessions := &fakeSessionStore{sessions: map[string]*types.AuditSession{
		"9f2c": {ID: 7, UUID: "9f2c", AuditorID: 3, LocationID: 5},
	}}
	return sessions, &fakeTurnStore{}
}

func TestBuildContext_OrderingAndHidden(t *testing.T) {
	sessions, turns := newTestStores()
	turns.turns = []types.Turn{
		{ID: 1, SessionID: 7, Role: "user", Text: "<context>...</context>", Hidden: true},
		{ID: 2, SessionID: 7, Role: "user", Text: "I want to audit item 4"},
		{ID: 3, SessionID: 7, Role: "assistant", Text: "What condition is it in?"},
	}

	assembler := NewAssembler(sessions, turns)
	messages, err := assembler.BuildContext(context.Background(), "9f2c", Input{Text: "Good condition"})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}

	// system + 3 prior turns + new input
	if len(messages) != 5 {
		t.Fatalf("message count = %d, want 5", len(messages))
	}
	if messages[0].Role != "system" {
		t.Fatalf("first message role = %q, want system", messages[0].Role)
	}
	if messages[1].TextContent() != "<context>...</context>" {
		t.Fatal("hidden turn should be included in model context")
	}
	if messages[3].Role != "assistant" {
		t.Fatalf("turn order not preserved: %+v", messages[3])
	}
	if messages[4].TextContent() != "Good condition" {
		t.Fatalf("last message = %q", messages[4].TextContent())
	}
}

func TestBuildContext_ReplaysImageTurns(t *testing.T) {
	sessions, turns := newTestStores()
	turns.turns = []types.Turn{
		{ID: 1, SessionID: 7, Role: "user", Text: "", ImageURL: "https://img.example/pump.jpg"},
		{ID: 2, SessionID: 7, Role: "assistant", Text: "That looks like item 4, a water pump."},
		{ID: 3, SessionID: 7, Role: "user", Text: "Here is a closer shot", ImageURL: "https://img.example/pump-close.jpg"},
	}

	assembler := NewAssembler(sessions, turns)
	messages, err := assembler.BuildContext(context.Background(), "9f2c", Input{Text: "Is it in good condition?"})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}

	// system + 3 prior turns + new input
	if len(messages) != 5 {
		t.Fatalf("message count = %d, want 5", len(messages))
	}

	blocks := messages[1].ContentBlocks()
	if len(blocks) != 1 {
		t.Fatalf("image-only turn block count = %d, want 1", len(blocks))
	}
	img, ok := blocks[0].(types.ImageBlock)
	if !ok || img.Source.URL != "https://img.example/pump.jpg" {
		t.Fatalf("image-only turn should replay as an image part: %+v", blocks[0])
	}

	blocks = messages[3].ContentBlocks()
	if len(blocks) != 2 {
		t.Fatalf("text+image turn block count = %d, want 2", len(blocks))
	}
	if img, ok := blocks[0].(types.ImageBlock); !ok || img.Source.URL != "https://img.example/pump-close.jpg" {
		t.Fatalf("first block should be the image: %+v", blocks[0])
	}
	if tb := blocks[1].(types.TextBlock); tb.Text != "Here is a closer shot" {
		t.Fatalf("text part = %q", tb.Text)
	}
}

func TestBuildContext_SessionNotFound(t *testing.T) {
	sessions, turns := newTestStores()
	assembler := NewAssembler(sessions, turns)

	_, err := assembler.BuildContext(context.Background(), "missing", Input{Text: "hello"})
	if !core.IsType(err, core.ErrSessionNotFound) {
		t.Fatalf("error = %v, want session_not_found", err)
	}
}

func TestBuildContext_EmptyInput(t *testing.T) {
	sessions, turns := newTestStores()
	assembler := NewAssembler(sessions, turns)

	_, err := assembler.BuildContext(context.Background(), "9f2c", Input{})
	if !core.IsType(err, core.ErrValidation) {
		t.Fatalf("error = %v, want validation_error", err)
	}
}

func TestBuildContext_ImageAndLocationAreSeparateParts(t *testing.T) {
	sessions, turns := newTestStores()
	assembler := NewAssembler(sessions, turns)

	messages, err := assembler.BuildContext(context.Background(), "9f2c", Input{
		Text:     "Found it on the third floor",
		ImageURL: "https://example.com/item.jpg",
		Location: &Geolocation{Latitude: 51.5, Longitude: -0.12},
	})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}

	last := messages[len(messages)-1]
	blocks := last.ContentBlocks()
	if len(blocks) != 4 {
		t.Fatalf("block count = %d, want 4 (image, image prompt, text, location)", len(blocks))
	}

	img, ok := blocks[0].(types.ImageBlock)
	if !ok || img.Source.URL != "https://example.com/item.jpg" {
		t.Fatalf("first block should be the image: %+v", blocks[0])
	}
	if tb := blocks[1].(types.TextBlock); tb.Text != ImagePrompt {
		t.Fatalf("second block = %q, want image prompt", tb.Text)
	}
	if tb := blocks[2].(types.TextBlock); tb.Text != "Found it on the third floor" {
		t.Fatalf("user text should stay its own part: %q", tb.Text)
	}
	if tb := blocks[3].(types.TextBlock); tb.Text != "Location: 51.5, -0.12" {
		t.Fatalf("location part = %q", tb.Text)
	}
}

func TestBuildContext_LocationOnlyTextTurn(t *testing.T) {
	sessions, turns := newTestStores()
	assembler := NewAssembler(sessions, turns)

	messages, err := assembler.BuildContext(context.Background(), "9f2c", Input{
		Text:     "Item 4 is here",
		Location: &Geolocation{Latitude: 60.17, Longitude: 24.94},
	})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}

	last := messages[len(messages)-1]
	blocks := last.ContentBlocks()
	if len(blocks) != 2 {
		t.Fatalf("block count = %d, want 2", len(blocks))
	}
	if tb := blocks[0].(types.TextBlock); tb.Text != "Item 4 is here" {
		t.Fatalf("user text was rewritten: %q", tb.Text)
	}
	if tb := blocks[1].(types.TextBlock); tb.Text != "Location: 60.17, 24.94" {
		t.Fatalf("location part = %q", tb.Text)
	}
}
