package live

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/junctionhq/auditline/pkg/audit"
	"github.com/junctionhq/auditline/pkg/chat"
	"github.com/junctionhq/auditline/pkg/core"
	"github.com/junctionhq/auditline/pkg/core/types"
	"github.com/junctionhq/auditline/pkg/realtime"
)

// Transport is the realtime connection the manager drives. Satisfied by
// *realtime.Client.
type Transport interface {
	Events() <-chan realtime.Event
	UpdateSession(config realtime.SessionConfig) error
	AppendAudio(pcm []byte) error
	CreateUserMessage(texts ...string) error
	SendFunctionCallOutput(callID, output string) error
	CreateResponse() error
	CancelResponse() error
	TruncateItem(itemID string, audioEndMS int64) error
	Close() error
	Err() error
}

// Dialer opens a realtime transport.
type Dialer func(ctx context.Context) (Transport, error)

// Deps are the collaborators a Manager drives. Committer is required when
// the model may call the audit tool. Turns, Capture and Playback are
// optional.
type Deps struct {
	Committer *audit.Committer
	Turns     chat.TurnStore
	Capture   CaptureDevice
	Playback  PlaybackDevice
}

// Manager runs a duplex voice session: it primes the realtime session with
// prior conversation, pumps microphone audio up and assistant audio down,
// executes audit commits the model requests, and reconciles barge-ins with
// the server using the actual playback offset. A single goroutine consumes
// transport events and owns all state transitions.
type Manager struct {
	config SessionConfig
	dial   Dialer
	deps   Deps
	buffer *PlaybackBuffer

	mu    sync.RWMutex
	state SessionState

	transport Transport
	events    chan Event
	runDone   chan struct{}
	pumps     sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    atomic.Bool
	muted     atomic.Bool

	// Touched only from the run goroutine.
	canceledItem string
}

// NewManager creates a manager for one audit session.
func NewManager(config SessionConfig, dial Dialer, deps Deps) *Manager {
	config.applyDefaults()
	return &Manager{
		config:  config,
		dial:    dial,
		deps:    deps,
		buffer:  NewPlaybackBuffer(config.SampleRate),
		state:   StateDisconnected,
		events:  make(chan Event, 128),
		runDone: make(chan struct{}),
	}
}

// State returns the current session state.
func (m *Manager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Events returns the channel for receiving session events.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Connect dials the transport, configures the realtime session, primes it
// with prior conversation, and starts the event loop. The model speaks
// first: the priming turn ends with a request to greet the user.
func (m *Manager) Connect(ctx context.Context) error {
	if m.closed.Load() {
		return core.NewTransportError("session is closed", nil)
	}
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return core.NewValidationError("session already started", "")
	}
	m.state = StateConnecting
	m.mu.Unlock()
	m.emit(&StateChangedEvent{From: StateDisconnected, To: StateConnecting})

	t, err := m.dial(ctx)
	if err != nil {
		m.setState(StateDisconnected)
		return err
	}
	if err := t.UpdateSession(m.sessionUpdate()); err != nil {
		t.Close()
		m.setState(StateDisconnected)
		return err
	}
	if err := t.CreateUserMessage(chat.VoicePriming(m.config.History)...); err != nil {
		t.Close()
		m.setState(StateDisconnected)
		return err
	}
	if err := t.CreateResponse(); err != nil {
		t.Close()
		m.setState(StateDisconnected)
		return err
	}

	m.transport = t
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.setState(StateIdle)
	go m.run()
	if m.deps.Capture != nil {
		m.pumps.Add(1)
		go func() {
			defer m.pumps.Done()
			m.pumpCapture()
		}()
	}
	if m.deps.Playback != nil {
		m.pumps.Add(1)
		go func() {
			defer m.pumps.Done()
			m.pumpPlayed()
		}()
	}
	return nil
}

// Mute stops forwarding captured audio. The connection and any in-flight
// response are unaffected.
func (m *Manager) Mute() { m.muted.Store(true) }

// Unmute resumes forwarding captured audio.
func (m *Manager) Unmute() { m.muted.Store(false) }

// Muted reports whether capture forwarding is paused.
func (m *Manager) Muted() bool { return m.muted.Load() }

// Close tears the session down. Safe to call more than once; later calls
// are no-ops.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		if m.cancel != nil {
			m.cancel()
		}
		if m.transport != nil {
			m.transport.Close()
			<-m.runDone
		}
		if m.deps.Capture != nil {
			m.deps.Capture.Close()
		}
		if m.deps.Playback != nil {
			m.deps.Playback.Close()
		}
		m.pumps.Wait()
		m.mu.Lock()
		from := m.state
		m.state = StateClosed
		m.mu.Unlock()
		// emit drops events once closed is set, so send directly. The
		// run loop and pumps have already exited and cannot race the
		// close.
		select {
		case m.events <- &StateChangedEvent{From: from, To: StateClosed}:
		default:
		}
		select {
		case m.events <- &SessionClosedEvent{}:
		default:
		}
		close(m.events)
	})
	return nil
}

func (m *Manager) sessionUpdate() realtime.SessionConfig {
	return realtime.SessionConfig{
		Modalities:              []string{"text", "audio"},
		Instructions:            m.config.Instructions,
		Voice:                   m.config.Voice,
		InputAudioFormat:        "pcm16",
		OutputAudioFormat:       "pcm16",
		InputAudioTranscription: &realtime.TranscriptionModel{Model: m.config.TranscriptionModel},
		TurnDetection:           &realtime.TurnDetection{Type: "server_vad"},
		Tools:                   []realtime.SessionTool{auditSessionTool()},
		ToolChoice:              "auto",
	}
}

func auditSessionTool() realtime.SessionTool {
	def := audit.Definition()
	params, _ := json.Marshal(def.InputSchema)
	return realtime.SessionTool{
		Type:        types.ToolTypeFunction,
		Name:        def.Name,
		Description: def.Description,
		Parameters:  params,
	}
}

func (m *Manager) run() {
	defer close(m.runDone)
	for ev := range m.transport.Events() {
		m.handle(ev)
	}
}

func (m *Manager) handle(ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.SpeechStartedEvent:
		m.onSpeechStarted()
	case realtime.SpeechStoppedEvent:
		if m.State() == StateUserSpeaking {
			m.setState(StateIdle)
		}
	case realtime.InputTranscriptEvent:
		m.appendTurn("user", e.Transcript)
		m.emit(&UserTranscriptEvent{Transcript: e.Transcript})
	case realtime.AudioDeltaEvent:
		if e.ItemID == m.canceledItem {
			return
		}
		if m.State() != StateModelResponding {
			m.setState(StateModelResponding)
		}
		m.buffer.Write(e.ItemID, e.Data)
		if m.deps.Playback != nil {
			if err := m.deps.Playback.Play(e.Data); err != nil {
				m.emitErr(err)
			}
		}
	case realtime.TranscriptDeltaEvent:
		if e.ItemID == m.canceledItem {
			return
		}
		m.emit(&AssistantTranscriptDeltaEvent{Delta: e.Delta})
	case realtime.TranscriptDoneEvent:
		if e.ItemID == m.canceledItem {
			return
		}
		m.appendTurn("assistant", e.Transcript)
		m.emit(&AssistantTranscriptEvent{Transcript: e.Transcript})
	case realtime.FunctionCallEvent:
		m.setState(StateToolExecuting)
		m.handleFunctionCall(e)
	case realtime.ResponseDoneEvent:
		switch m.State() {
		case StateModelResponding, StateToolExecuting:
			m.setState(StateIdle)
		}
	case realtime.ErrorEvent:
		m.emitErr(core.NewProviderError("realtime", &serverError{code: e.Code, message: e.Message}))
	}
}

// onSpeechStarted handles server VAD reporting user speech. During
// assistant playback this is a barge-in: the in-flight response is
// canceled and the conversation item is truncated at the offset the user
// actually heard, so the model's record matches the user's experience.
func (m *Manager) onSpeechStarted() {
	switch m.State() {
	case StateModelResponding:
		m.interrupt(true)
	case StateIdle:
		// The tail of a finished response may still be playing.
		if m.buffer.ItemID() != "" {
			m.interrupt(false)
		} else {
			m.setState(StateUserSpeaking)
		}
	}
}

func (m *Manager) interrupt(cancelActive bool) {
	m.setState(StateInterrupted)
	writtenMS := m.buffer.WrittenMS()
	itemID, offsetMS := m.buffer.Cut()
	if cancelActive {
		if err := m.transport.CancelResponse(); err != nil {
			m.emitErr(err)
		}
	}
	if itemID != "" && offsetMS < writtenMS {
		if err := m.transport.TruncateItem(itemID, offsetMS); err != nil {
			m.emitErr(err)
		}
	}
	if m.deps.Playback != nil {
		if err := m.deps.Playback.Stop(); err != nil {
			m.emitErr(err)
		}
	}
	m.canceledItem = itemID
	m.emit(&InterruptedEvent{ItemID: itemID, AudioEndMS: offsetMS})
	m.setState(StateUserSpeaking)
}

type toolResult struct {
	Success     bool   `json:"success"`
	ItemAuditID int64  `json:"item_audit_id,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (m *Manager) handleFunctionCall(ev realtime.FunctionCallEvent) {
	if ev.Name != audit.ToolName || m.deps.Committer == nil {
		m.sendToolResult(ev.CallID, toolResult{Success: false, Error: "unknown tool: " + ev.Name})
		return
	}
	args, err := audit.ParseArgs(ev.Arguments)
	if err != nil {
		m.sendToolResult(ev.CallID, toolResult{Success: false, Error: err.Error()})
		return
	}
	receipt, err := m.deps.Committer.Commit(m.ctx, args, ev.CallID)
	if err != nil {
		m.emitErr(err)
		m.sendToolResult(ev.CallID, toolResult{Success: false, Error: "the audit could not be saved"})
		return
	}
	m.emit(&AuditCommittedEvent{ItemAuditID: receipt.ItemAuditID, Duplicate: receipt.Duplicate})
	m.sendToolResult(ev.CallID, toolResult{
		Success:     true,
		ItemAuditID: receipt.ItemAuditID,
		Message:     chat.AuditCreatedReply,
	})
}

// sendToolResult reports the tool outcome and asks the model to continue
// speaking.
func (m *Manager) sendToolResult(callID string, result toolResult) {
	out, err := json.Marshal(result)
	if err != nil {
		m.emitErr(err)
		return
	}
	if err := m.transport.SendFunctionCallOutput(callID, string(out)); err != nil {
		m.emitErr(err)
		return
	}
	if err := m.transport.CreateResponse(); err != nil {
		m.emitErr(err)
	}
}

func (m *Manager) appendTurn(role, text string) {
	if m.deps.Turns == nil || text == "" {
		return
	}
	_, err := m.deps.Turns.AppendTurn(m.ctx, types.Turn{
		SessionID: m.config.SessionID,
		Role:      role,
		Text:      text,
	})
	if err != nil {
		m.emitErr(core.NewPersistenceError("append turn", err))
	}
}

func (m *Manager) pumpCapture() {
	for pcm := range m.deps.Capture.Frames() {
		if m.muted.Load() {
			continue
		}
		if err := m.transport.AppendAudio(pcm); err != nil {
			if m.closed.Load() {
				return
			}
			m.emitErr(err)
		}
	}
}

func (m *Manager) pumpPlayed() {
	for n := range m.deps.Playback.Played() {
		m.buffer.Advance(n)
	}
}

func (m *Manager) setState(to SessionState) {
	m.mu.Lock()
	from := m.state
	if from == to {
		m.mu.Unlock()
		return
	}
	m.state = to
	m.mu.Unlock()
	m.emit(&StateChangedEvent{From: from, To: to})
}

// emit never blocks; a slow consumer loses events rather than stalling the
// run loop.
func (m *Manager) emit(ev Event) {
	if m.closed.Load() {
		return
	}
	select {
	case m.events <- ev:
	default:
	}
}

func (m *Manager) emitErr(err error) {
	m.emit(&ErrorEvent{Err: err})
}

type serverError struct {
	code    string
	message string
}

func (e *serverError) Error() string {
	if e.code == "" {
		return e.message
	}
	return e.code + ": " + e.message
}
