package live

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/junctionhq/auditline/pkg/audit"
	"github.com/junctionhq/auditline/pkg/chat"
	"github.com/junctionhq/auditline/pkg/core/types"
	"github.com/junctionhq/auditline/pkg/realtime"
)

type truncateCall struct {
	itemID     string
	audioEndMS int64
}

type fakeTransport struct {
	mu           sync.Mutex
	events       chan realtime.Event
	updates      []realtime.SessionConfig
	userMessages [][]string
	appended     [][]byte
	outputs      map[string]string
	responses    int
	cancels      int
	truncates    []truncateCall
	closes       int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events:  make(chan realtime.Event, 64),
		outputs: make(map[string]string),
	}
}

func (f *fakeTransport) Events() <-chan realtime.Event { return f.events }

func (f *fakeTransport) UpdateSession(config realtime.SessionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, config)
	return nil
}

func (f *fakeTransport) AppendAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, pcm)
	return nil
}

func (f *fakeTransport) CreateUserMessage(texts ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userMessages = append(f.userMessages, texts)
	return nil
}

func (f *fakeTransport) SendFunctionCallOutput(callID, output string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[callID] = output
	return nil
}

func (f *fakeTransport) CreateResponse() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses++
	return nil
}

func (f *fakeTransport) CancelResponse() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeTransport) TruncateItem(itemID string, audioEndMS int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.truncates = append(f.truncates, truncateCall{itemID: itemID, audioEndMS: audioEndMS})
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.closes == 1 {
		close(f.events)
	}
	return nil
}

func (f *fakeTransport) Err() error { return nil }

type fakeCapture struct {
	frames    chan []byte
	closeOnce sync.Once
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{frames: make(chan []byte, 16)}
}

func (f *fakeCapture) Frames() <-chan []byte { return f.frames }

func (f *fakeCapture) Close() error {
	f.closeOnce.Do(func() { close(f.frames) })
	return nil
}

type fakePlayback struct {
	mu        sync.Mutex
	played    chan int64
	frames    [][]byte
	stops     int
	closeOnce sync.Once
}

func newFakePlayback() *fakePlayback {
	return &fakePlayback{played: make(chan int64, 16)}
}

func (f *fakePlayback) Play(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, pcm)
	return nil
}

func (f *fakePlayback) Played() <-chan int64 { return f.played }

func (f *fakePlayback) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakePlayback) Close() error {
	f.closeOnce.Do(func() { close(f.played) })
	return nil
}

func (f *fakePlayback) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

type fakeAuditStore struct {
	mu      sync.Mutex
	inserts []types.ItemAudit
	nextID  int64
}

func (f *fakeAuditStore) GetAuditSession(ctx context.Context, id int64) (*types.AuditSession, error) {
	return &types.AuditSession{ID: id}, nil
}

func (f *fakeAuditStore) InsertItemAudit(ctx context.Context, audit types.ItemAudit) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, prev := range f.inserts {
		if prev.IdempotencyKey == audit.IdempotencyKey {
			return 0, nil
		}
	}
	f.inserts = append(f.inserts, audit)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeAuditStore) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserts)
}

type fakeTurnStore struct {
	mu    sync.Mutex
	turns []types.Turn
}

func (f *fakeTurnStore) AppendTurn(ctx context.Context, turn types.Turn) (types.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	turn.ID = int64(len(f.turns) + 1)
	f.turns = append(f.turns, turn)
	return turn, nil
}

func (f *fakeTurnStore) ListTurns(ctx context.Context, sessionID int64, includeHidden bool) ([]types.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Turn, len(f.turns))
	copy(out, f.turns)
	return out, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitEvent[E Event](t *testing.T, events <-chan Event) E {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("events channel closed before %T", *new(E))
			}
			if want, match := ev.(E); match {
				return want
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %T", *new(E))
		}
	}
}

func startManager(t *testing.T, config SessionConfig, deps Deps) (*Manager, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport()
	m := NewManager(config, func(ctx context.Context) (Transport, error) {
		return transport, nil
	}, deps)
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, transport
}

// pcmMS returns silence lasting the given milliseconds at 24 kHz.
func pcmMS(ms int) []byte {
	return make([]byte, ms*DefaultSampleRate/1000*2)
}

func TestManager_ConnectConfiguresAndPrimes(t *testing.T) {
	m, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{})

	if got := m.State(); got != StateIdle {
		t.Fatalf("state = %v, want %v", got, StateIdle)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.updates) != 1 {
		t.Fatalf("got %d session updates, want 1", len(transport.updates))
	}
	update := transport.updates[0]
	if update.TurnDetection == nil || update.TurnDetection.Type != "server_vad" {
		t.Errorf("turn detection = %+v, want server_vad", update.TurnDetection)
	}
	if update.Instructions != chat.VoiceInstructions {
		t.Error("instructions do not default to the voice prompt")
	}
	if len(update.Tools) != 1 || update.Tools[0].Name != audit.ToolName {
		t.Fatalf("tools = %+v, want the audit tool", update.Tools)
	}
	if len(update.Tools[0].Parameters) == 0 {
		t.Error("audit tool has no parameter schema")
	}
	if len(transport.userMessages) != 1 {
		t.Fatalf("got %d user messages, want 1 priming message", len(transport.userMessages))
	}
	if got := transport.userMessages[0]; len(got) != 1 || got[0] != "Hello!" {
		t.Errorf("empty history priming = %q, want the greeting", got)
	}
	if transport.responses != 1 {
		t.Errorf("got %d response.create, want 1", transport.responses)
	}
}

func TestManager_ConnectPrimesWithHistory(t *testing.T) {
	history := []types.Turn{
		{Role: "user", Text: "I want to audit the pump"},
		{Role: "assistant", Text: "Which location is it in?"},
	}
	_, transport := startManager(t, SessionConfig{SessionID: 1, History: history}, Deps{})

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.userMessages) != 1 {
		t.Fatalf("got %d user messages, want 1", len(transport.userMessages))
	}
	texts := transport.userMessages[0]
	if len(texts) != 4 {
		t.Fatalf("got %d priming parts, want preamble, two turns and closing", len(texts))
	}
	if texts[1] != "User: I want to audit the pump" {
		t.Errorf("first history line = %q", texts[1])
	}
	if texts[2] != "Assistant: Which location is it in?" {
		t.Errorf("second history line = %q", texts[2])
	}
}

func TestManager_BargeInTruncatesAtPlayedOffset(t *testing.T) {
	playback := newFakePlayback()
	m, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{Playback: playback})

	// Four seconds of assistant audio arrive.
	for i := 0; i < 4; i++ {
		transport.events <- realtime.AudioDeltaEvent{ResponseID: "resp_1", ItemID: "item_1", Data: pcmMS(1000)}
	}
	waitFor(t, "model responding", func() bool { return m.State() == StateModelResponding })
	waitFor(t, "audio buffered", func() bool { return m.buffer.WrittenMS() == 4000 })

	// The device reports one second actually played, then the user
	// starts talking.
	playback.played <- int64(DefaultSampleRate)
	waitFor(t, "playback accounted", func() bool { return m.buffer.PlayedMS() == 1000 })
	transport.events <- realtime.SpeechStartedEvent{}

	interrupted := waitEvent[*InterruptedEvent](t, m.Events())
	if interrupted.ItemID != "item_1" {
		t.Errorf("interrupted item = %q, want item_1", interrupted.ItemID)
	}
	if interrupted.AudioEndMS != 1000 {
		t.Errorf("interrupted offset = %d, want 1000", interrupted.AudioEndMS)
	}
	waitFor(t, "user speaking", func() bool { return m.State() == StateUserSpeaking })

	transport.mu.Lock()
	cancels, truncates := transport.cancels, transport.truncates
	transport.mu.Unlock()
	if cancels != 1 {
		t.Errorf("got %d response.cancel, want 1", cancels)
	}
	if len(truncates) != 1 || truncates[0] != (truncateCall{itemID: "item_1", audioEndMS: 1000}) {
		t.Errorf("truncates = %+v, want item_1 at 1000ms", truncates)
	}
	playback.mu.Lock()
	stops := playback.stops
	playback.mu.Unlock()
	if stops != 1 {
		t.Errorf("got %d playback stops, want 1", stops)
	}

	// A stale delta from the canceled response must not be played.
	before := playback.frameCount()
	transport.events <- realtime.AudioDeltaEvent{ResponseID: "resp_1", ItemID: "item_1", Data: pcmMS(500)}
	transport.events <- realtime.SpeechStoppedEvent{}
	waitFor(t, "speech stopped handled", func() bool { return m.State() == StateIdle })
	if got := playback.frameCount(); got != before {
		t.Errorf("stale audio was played: %d frames, want %d", got, before)
	}
}

func TestManager_BargeInWithNothingPlayedTruncatesAtZero(t *testing.T) {
	playback := newFakePlayback()
	m, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{Playback: playback})

	transport.events <- realtime.AudioDeltaEvent{ResponseID: "resp_1", ItemID: "item_1", Data: pcmMS(2000)}
	waitFor(t, "model responding", func() bool { return m.State() == StateModelResponding })
	transport.events <- realtime.SpeechStartedEvent{}

	interrupted := waitEvent[*InterruptedEvent](t, m.Events())
	if interrupted.AudioEndMS != 0 {
		t.Errorf("interrupted offset = %d, want 0", interrupted.AudioEndMS)
	}
}

func TestManager_ToolCallCommitsExactlyOnce(t *testing.T) {
	store := &fakeAuditStore{}
	m, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{Committer: audit.NewCommitter(store)})

	args := json.RawMessage(`{"auditer_id": 9, "item_id": 4, "audit_id": 1}`)
	transport.events <- realtime.FunctionCallEvent{ItemID: "item_fc", CallID: "call_7", Name: audit.ToolName, Arguments: args}

	committed := waitEvent[*AuditCommittedEvent](t, m.Events())
	if committed.ItemAuditID != 1 || committed.Duplicate {
		t.Fatalf("committed = %+v, want first insert", committed)
	}
	waitFor(t, "tool output sent", func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		return transport.outputs["call_7"] != ""
	})

	transport.mu.Lock()
	output := transport.outputs["call_7"]
	responses := transport.responses
	transport.mu.Unlock()
	var result toolResult
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("tool output is not JSON: %v", err)
	}
	if !result.Success || result.ItemAuditID != 1 {
		t.Errorf("tool output = %+v, want success with id 1", result)
	}
	if responses != 2 {
		t.Errorf("got %d response.create, want priming plus post-tool", responses)
	}

	// The same tool call delivered again must not create a second row.
	transport.events <- realtime.FunctionCallEvent{ItemID: "item_fc", CallID: "call_7", Name: audit.ToolName, Arguments: args}
	dup := waitEvent[*AuditCommittedEvent](t, m.Events())
	if !dup.Duplicate {
		t.Error("repeated call id did not report a duplicate")
	}
	if got := store.insertCount(); got != 1 {
		t.Errorf("store has %d inserts, want 1", got)
	}
}

func TestManager_ToolCallWithBadArgumentsReportsError(t *testing.T) {
	store := &fakeAuditStore{}
	_, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{Committer: audit.NewCommitter(store)})

	transport.events <- realtime.FunctionCallEvent{CallID: "call_bad", Name: audit.ToolName, Arguments: json.RawMessage(`{"item_id": 4}`)}

	waitFor(t, "tool output sent", func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		return transport.outputs["call_bad"] != ""
	})
	transport.mu.Lock()
	output := transport.outputs["call_bad"]
	transport.mu.Unlock()
	var result toolResult
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("tool output is not JSON: %v", err)
	}
	if result.Success || result.Error == "" {
		t.Errorf("tool output = %+v, want an error", result)
	}
	if got := store.insertCount(); got != 0 {
		t.Errorf("store has %d inserts, want 0", got)
	}
}

func TestManager_MutePausesCaptureOnly(t *testing.T) {
	capture := newFakeCapture()
	m, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{Capture: capture})

	capture.frames <- []byte{1, 2}
	waitFor(t, "frame forwarded", func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		return len(transport.appended) == 1
	})

	m.Mute()
	if !m.Muted() {
		t.Fatal("Muted() = false after Mute")
	}
	capture.frames <- []byte{3, 4}
	capture.frames <- []byte{5, 6}
	waitFor(t, "muted frames consumed", func() bool { return len(capture.frames) == 0 })
	// Give the pump time to finish skipping the last muted frame.
	time.Sleep(20 * time.Millisecond)

	m.Unmute()
	capture.frames <- []byte{7, 8}
	waitFor(t, "post-unmute frame forwarded", func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		return len(transport.appended) == 2
	})

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if string(transport.appended[1]) != string([]byte{7, 8}) {
		t.Errorf("forwarded frame = %v, want the post-unmute frame", transport.appended[1])
	}
}

func TestManager_WritesTurnsBack(t *testing.T) {
	turns := &fakeTurnStore{}
	m, transport := startManager(t, SessionConfig{SessionID: 42}, Deps{Turns: turns})

	transport.events <- realtime.InputTranscriptEvent{ItemID: "item_u", Transcript: "audit the pump"}
	transport.events <- realtime.TranscriptDoneEvent{ItemID: "item_a", Transcript: "Which location?"}

	waitEvent[*AssistantTranscriptEvent](t, m.Events())
	waitFor(t, "turns written", func() bool {
		turns.mu.Lock()
		defer turns.mu.Unlock()
		return len(turns.turns) == 2
	})

	turns.mu.Lock()
	defer turns.mu.Unlock()
	if turns.turns[0].Role != "user" || turns.turns[0].Text != "audit the pump" {
		t.Errorf("first turn = %+v, want the user transcript", turns.turns[0])
	}
	if turns.turns[1].Role != "assistant" || turns.turns[1].Text != "Which location?" {
		t.Errorf("second turn = %+v, want the assistant transcript", turns.turns[1])
	}
	for _, turn := range turns.turns {
		if turn.SessionID != 42 {
			t.Errorf("turn session = %d, want 42", turn.SessionID)
		}
	}
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	capture := newFakeCapture()
	playback := newFakePlayback()
	m, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{Capture: capture, Playback: playback})

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if got := m.State(); got != StateClosed {
		t.Errorf("state = %v, want %v", got, StateClosed)
	}

	transport.mu.Lock()
	closes := transport.closes
	transport.mu.Unlock()
	if closes != 1 {
		t.Errorf("transport closed %d times, want 1", closes)
	}

	// The events channel drains and closes.
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-m.Events():
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("events channel never closed")
		}
	}
}

func TestManager_ConnectAfterCloseFails(t *testing.T) {
	m := NewManager(SessionConfig{SessionID: 1}, func(ctx context.Context) (Transport, error) {
		t.Fatal("dial must not be called after Close")
		return nil, nil
	}, Deps{})
	m.Close()
	if err := m.Connect(context.Background()); err == nil {
		t.Fatal("Connect after Close did not fail")
	}
}

func TestManager_SpeechDuringIdleStartsUserTurn(t *testing.T) {
	m, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{})

	transport.events <- realtime.SpeechStartedEvent{}
	waitFor(t, "user speaking", func() bool { return m.State() == StateUserSpeaking })
	transport.events <- realtime.SpeechStoppedEvent{}
	waitFor(t, "idle", func() bool { return m.State() == StateIdle })

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.cancels != 0 || len(transport.truncates) != 0 {
		t.Errorf("speech with no assistant audio canceled or truncated: %d/%d", transport.cancels, len(transport.truncates))
	}
}

func TestManager_ResponseDoneReturnsToIdle(t *testing.T) {
	m, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{})

	transport.events <- realtime.AudioDeltaEvent{ResponseID: "resp_1", ItemID: "item_1", Data: pcmMS(100)}
	waitFor(t, "model responding", func() bool { return m.State() == StateModelResponding })
	transport.events <- realtime.ResponseDoneEvent{ResponseID: "resp_1"}
	waitFor(t, "idle", func() bool { return m.State() == StateIdle })
}

func TestManager_UnknownToolIsRejected(t *testing.T) {
	_, transport := startManager(t, SessionConfig{SessionID: 1}, Deps{})

	transport.events <- realtime.FunctionCallEvent{CallID: "call_x", Name: "launch_rocket", Arguments: json.RawMessage(`{}`)}
	waitFor(t, "tool output sent", func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		return transport.outputs["call_x"] != ""
	})

	transport.mu.Lock()
	output := transport.outputs["call_x"]
	transport.mu.Unlock()
	if !strings.Contains(output, "unknown tool") {
		t.Errorf("tool output = %q, want an unknown tool error", output)
	}
}
