package chat

import (
	"context"

	"github.com/junctionhq/auditline/pkg/audit"
	"github.com/junctionhq/auditline/pkg/core"
	"github.com/junctionhq/auditline/pkg/core/types"
)

// TurnState is where a turn ended up.
type TurnState string

const (
	StateAssemblingContext TurnState = "assembling_context"
	StateAwaitingModel     TurnState = "awaiting_model"
	StateDirectReply       TurnState = "direct_reply"
	StateToolCall          TurnState = "tool_call"
	StatePersisting        TurnState = "persisting"
	StateDone              TurnState = "done"
	StateFailed            TurnState = "failed"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o"

	// DefaultMaxTokens bounds one reply.
	DefaultMaxTokens = 500
)

// TurnResult is the outcome of one turn.
type TurnResult struct {
	// Reply is what the user sees. On failures after input was accepted it
	// is a generic apology; the real error is returned alongside.
	Reply string

	// ItemAuditID is set when the turn committed an item audit. It survives
	// a later persistence failure since the commit is not rolled back.
	ItemAuditID int64

	State TurnState
}

// Orchestrator runs one conversational turn: assemble context, await the
// model once, dispatch at most one tool call, persist the exchange.
type Orchestrator struct {
	assembler *Assembler
	committer *audit.Committer
	client    core.ModelClient
	turns     TurnStore
	builder   *ContextBuilder

	model     string
	maxTokens int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithModel overrides the chat model.
func WithModel(model string) OrchestratorOption {
	return func(o *Orchestrator) {
		if model != "" {
			o.model = model
		}
	}
}

// WithMaxTokens overrides the per-reply token budget.
func WithMaxTokens(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithContextBuilder enables hidden-turn session priming.
func WithContextBuilder(builder *ContextBuilder) OrchestratorOption {
	return func(o *Orchestrator) {
		o.builder = builder
	}
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(assembler *Assembler, committer *audit.Committer, client core.ModelClient, turns TurnStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		assembler: assembler,
		committer: committer,
		client:    client,
		turns:     turns,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunTurn executes one turn for the session behind sessionRef.
//
// Failures while assembling context return the error alone; nothing was
// accepted and nothing is persisted. Failures after that also return a
// TurnResult whose Reply is a generic apology fit to surface to the user.
func (o *Orchestrator) RunTurn(ctx context.Context, sessionRef string, input Input) (*TurnResult, error) {
	session, err := o.assembler.ResolveSession(ctx, sessionRef)
	if err != nil {
		return nil, err
	}
	messages, err := o.assembler.ContextFor(ctx, session, input)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.CreateMessage(ctx, &types.MessageRequest{
		Model:      o.model,
		Messages:   messages,
		MaxTokens:  o.maxTokens,
		Tools:      []types.Tool{audit.Definition()},
		ToolChoice: types.ToolChoiceAuto(),
	})
	if err != nil {
		return failedResult(0), err
	}

	result := &TurnResult{}

	// Only the first tool call is honored.
	if tu := resp.FirstToolUse(); tu != nil {
		raw, err := tu.RawInput()
		if err != nil {
			return failedResult(0), core.NewValidationError("unreadable tool arguments", "")
		}
		args, err := audit.ParseArgs(raw)
		if err != nil {
			return failedResult(0), err
		}
		receipt, err := o.committer.Commit(ctx, args, tu.ID)
		if err != nil {
			// A commit failure fails the turn; model text is never
			// substituted for the confirmation.
			return failedResult(0), err
		}
		result.Reply = AuditCreatedReply
		result.ItemAuditID = receipt.ItemAuditID
		result.State = StateToolCall
	} else {
		text := resp.TextContent()
		if text == "" {
			return failedResult(0), core.NewEmptyModelResponseError()
		}
		result.Reply = text
		result.State = StateDirectReply
	}

	// The user turn is written before the assistant turn so creation
	// timestamps match conversational order on rehydration.
	if err := o.persistExchange(ctx, session.ID, input, result.Reply); err != nil {
		return failedResult(result.ItemAuditID), err
	}

	result.State = StateDone
	return result, nil
}

func failedResult(itemAuditID int64) *TurnResult {
	return &TurnResult{
		Reply:       ApologeticReply,
		ItemAuditID: itemAuditID,
		State:       StateFailed,
	}
}

func (o *Orchestrator) persistExchange(ctx context.Context, sessionID int64, input Input, reply string) error {
	userTurn := types.Turn{
		SessionID: sessionID,
		Role:      "user",
		Text:      input.Text,
		ImageURL:  input.ImageURL,
	}
	if input.Location != nil {
		lat, lng := input.Location.Latitude, input.Location.Longitude
		userTurn.Latitude = &lat
		userTurn.Longitude = &lng
	}
	if _, err := o.turns.AppendTurn(ctx, userTurn); err != nil {
		return core.NewPersistenceError("append user turn", err)
	}

	if _, err := o.turns.AppendTurn(ctx, types.Turn{
		SessionID: sessionID,
		Role:      "assistant",
		Text:      reply,
	}); err != nil {
		return core.NewPersistenceError("append assistant turn", err)
	}
	return nil
}

// PrimeSession writes the audit context narrative as a hidden user turn so
// later turns carry it without it ever reaching a transcript. It is a no-op
// when the session already holds a hidden turn or no builder is configured.
func (o *Orchestrator) PrimeSession(ctx context.Context, sessionRef string) error {
	if o.builder == nil {
		return nil
	}

	session, err := o.assembler.ResolveSession(ctx, sessionRef)
	if err != nil {
		return err
	}

	turns, err := o.turns.ListTurns(ctx, session.ID, true)
	if err != nil {
		return core.NewPersistenceError("list turns", err)
	}
	for _, turn := range turns {
		if turn.Hidden {
			return nil
		}
	}

	contextText, err := o.builder.BuildAuditContext(ctx, sessionRef)
	if err != nil {
		return err
	}

	if _, err := o.turns.AppendTurn(ctx, types.Turn{
		SessionID: session.ID,
		Role:      "user",
		Text:      contextText,
		Hidden:    true,
	}); err != nil {
		return core.NewPersistenceError("append priming turn", err)
	}
	return nil
}
