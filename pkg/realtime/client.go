package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junctionhq/auditline/pkg/core"
)

const (
	// DefaultURL is the realtime websocket endpoint.
	DefaultURL = "wss://api.openai.com/v1/realtime"

	// DefaultModel is the realtime model dialed when none is configured.
	DefaultModel = "gpt-4o-realtime-preview"

	defaultConnectTimeout = 15 * time.Second
)

// Client is a realtime websocket session.
type Client struct {
	conn *websocket.Conn

	events chan Event
	done   chan struct{}
	quit   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// DialOptions configure Dial.
type DialOptions struct {
	URL    string
	Model  string
	APIKey string
}

// Dial opens a realtime websocket session and starts its read loop. The
// session is unconfigured until Client.UpdateSession is called.
func Dial(ctx context.Context, opts DialOptions) (*Client, error) {
	if opts.APIKey == "" {
		return nil, core.NewValidationError("api key is required", "api_key")
	}
	baseURL := opts.URL
	if baseURL == "" {
		baseURL = DefaultURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+opts.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	wsURL := baseURL
	if !strings.Contains(wsURL, "model=") {
		sep := "?"
		if strings.Contains(wsURL, "?") {
			sep = "&"
		}
		wsURL = wsURL + sep + "model=" + model
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, core.NewTransportError(
				fmt.Sprintf("realtime dial failed (status %d)", resp.StatusCode), err)
		}
		return nil, core.NewTransportError("realtime dial failed", err)
	}

	c := &Client{
		conn:   conn,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events yields decoded server events. The channel closes when the
// connection ends.
func (c *Client) Events() <-chan Event {
	if c == nil {
		return nil
	}
	return c.events
}

// UpdateSession sends session.update.
func (c *Client) UpdateSession(config SessionConfig) error {
	return c.sendJSON(clientSessionUpdate{Type: "session.update", Session: config})
}

// AppendAudio streams one captured PCM frame to the input audio buffer.
func (c *Client) AppendAudio(pcm []byte) error {
	return c.sendJSON(clientAudioAppend{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
}

// CreateUserMessage inserts a user message of input_text parts into the
// conversation. It does not itself request a response.
func (c *Client) CreateUserMessage(texts ...string) error {
	content := make([]itemContent, 0, len(texts))
	for _, text := range texts {
		content = append(content, itemContent{Type: "input_text", Text: text})
	}
	return c.sendJSON(clientItemCreate{
		Type: "conversation.item.create",
		Item: conversationItem{Type: "message", Role: "user", Content: content},
	})
}

// SendFunctionCallOutput returns a tool result into the conversation.
func (c *Client) SendFunctionCallOutput(callID, output string) error {
	return c.sendJSON(clientItemCreate{
		Type: "conversation.item.create",
		Item: conversationItem{Type: "function_call_output", CallID: callID, Output: output},
	})
}

// CreateResponse asks the model to respond to the current conversation.
func (c *Client) CreateResponse() error {
	return c.sendJSON(clientResponseCreate{Type: "response.create"})
}

// CancelResponse cancels generation of the in-flight response.
func (c *Client) CancelResponse() error {
	return c.sendJSON(clientResponseCancel{Type: "response.cancel"})
}

// TruncateItem drops audio past audioEndMS from the server's copy of the
// item, so the conversation state matches what the user actually heard.
func (c *Client) TruncateItem(itemID string, audioEndMS int64) error {
	return c.sendJSON(clientItemTruncate{
		Type:         "conversation.item.truncate",
		ItemID:       itemID,
		ContentIndex: 0,
		AudioEndMS:   audioEndMS,
	})
}

func (c *Client) sendJSON(v any) error {
	if c == nil {
		return fmt.Errorf("client must not be nil")
	}
	if c.closed.Load() {
		return core.NewTransportError("realtime session is closed", nil)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(v); err != nil {
		return core.NewTransportError("write realtime frame", err)
	}
	return nil
}

// Close closes the websocket session. Safe to call more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.quit)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	<-c.done
	return nil
}

// Err returns the terminal session error, if any.
func (c *Client) Err() error {
	if c == nil {
		return nil
	}
	<-c.done
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	if err == nil {
		return
	}
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if !c.closed.Load() {
				c.setErr(core.NewTransportError("read realtime frame", err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := decodeServerEvent(data)
		if err != nil {
			c.setErr(err)
			return
		}
		if event != nil {
			c.emit(event)
			if errEvent, ok := event.(ErrorEvent); ok {
				c.setErr(core.NewTransportError(errEvent.Message, nil))
			}
		}
	}
}

func (c *Client) emit(event Event) {
	select {
	case c.events <- event:
	case <-c.quit:
	}
}

func decodeServerEvent(data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode realtime frame envelope: %w", err)
	}

	switch envelope.Type {
	case "session.created":
		var frame struct {
			Session struct {
				ID string `json:"id"`
			} `json:"session"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode session.created: %w", err)
		}
		return SessionCreatedEvent{SessionID: frame.Session.ID}, nil

	case "session.updated":
		return SessionUpdatedEvent{}, nil

	case "input_audio_buffer.speech_started":
		var frame struct {
			AudioStartMS int64 `json:"audio_start_ms"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode speech_started: %w", err)
		}
		return SpeechStartedEvent{AudioStartMS: frame.AudioStartMS}, nil

	case "input_audio_buffer.speech_stopped":
		var frame struct {
			AudioEndMS int64 `json:"audio_end_ms"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode speech_stopped: %w", err)
		}
		return SpeechStoppedEvent{AudioEndMS: frame.AudioEndMS}, nil

	case "conversation.item.input_audio_transcription.completed":
		var frame struct {
			ItemID     string `json:"item_id"`
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode input transcription: %w", err)
		}
		return InputTranscriptEvent{ItemID: frame.ItemID, Transcript: frame.Transcript}, nil

	case "response.audio.delta":
		var frame struct {
			ResponseID string `json:"response_id"`
			ItemID     string `json:"item_id"`
			Delta      string `json:"delta"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode audio delta: %w", err)
		}
		audio, err := base64.StdEncoding.DecodeString(frame.Delta)
		if err != nil {
			return nil, fmt.Errorf("decode audio delta payload: %w", err)
		}
		return AudioDeltaEvent{ResponseID: frame.ResponseID, ItemID: frame.ItemID, Data: audio}, nil

	case "response.audio_transcript.delta":
		var frame struct {
			ItemID string `json:"item_id"`
			Delta  string `json:"delta"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode transcript delta: %w", err)
		}
		return TranscriptDeltaEvent{ItemID: frame.ItemID, Delta: frame.Delta}, nil

	case "response.audio_transcript.done":
		var frame struct {
			ItemID     string `json:"item_id"`
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode transcript done: %w", err)
		}
		return TranscriptDoneEvent{ItemID: frame.ItemID, Transcript: frame.Transcript}, nil

	case "response.function_call_arguments.done":
		var frame struct {
			ItemID    string `json:"item_id"`
			CallID    string `json:"call_id"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode function call: %w", err)
		}
		return FunctionCallEvent{
			ItemID:    frame.ItemID,
			CallID:    frame.CallID,
			Name:      frame.Name,
			Arguments: json.RawMessage(frame.Arguments),
		}, nil

	case "response.done":
		var frame struct {
			Response struct {
				ID string `json:"id"`
			} `json:"response"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode response.done: %w", err)
		}
		return ResponseDoneEvent{ResponseID: frame.Response.ID}, nil

	case "error":
		var frame struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode error frame: %w", err)
		}
		return ErrorEvent{Code: frame.Error.Code, Message: frame.Error.Message}, nil

	default:
		return UnknownEvent{Type: envelope.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
