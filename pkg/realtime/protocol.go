// Package realtime is a websocket client for an OpenAI-style realtime voice
// API: session configuration, audio streaming in both directions, server VAD
// events, and function calls.
package realtime

import "encoding/json"

// SessionConfig is sent in session.update after connecting.
type SessionConfig struct {
	Modalities              []string            `json:"modalities,omitempty"`
	Instructions            string              `json:"instructions,omitempty"`
	Voice                   string              `json:"voice,omitempty"`
	InputAudioFormat        string              `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string              `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionModel `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection      `json:"turn_detection,omitempty"`
	Tools                   []SessionTool       `json:"tools,omitempty"`
	ToolChoice              string              `json:"tool_choice,omitempty"`
}

// TranscriptionModel enables server-side input transcription.
type TranscriptionModel struct {
	Model string `json:"model"`
}

// TurnDetection configures server VAD.
type TurnDetection struct {
	Type string `json:"type"` // "server_vad"
}

// SessionTool is a function tool in the realtime session format. Unlike chat
// completions there is no nested "function" object.
type SessionTool struct {
	Type        string          `json:"type"` // "function"
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Client frame envelopes.

type clientSessionUpdate struct {
	Type    string        `json:"type"` // "session.update"
	Session SessionConfig `json:"session"`
}

type clientAudioAppend struct {
	Type  string `json:"type"` // "input_audio_buffer.append"
	Audio string `json:"audio"`
}

type clientItemCreate struct {
	Type string           `json:"type"` // "conversation.item.create"
	Item conversationItem `json:"item"`
}

type conversationItem struct {
	Type    string        `json:"type"` // "message" or "function_call_output"
	Role    string        `json:"role,omitempty"`
	Content []itemContent `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

type itemContent struct {
	Type string `json:"type"` // "input_text"
	Text string `json:"text"`
}

type clientItemTruncate struct {
	Type         string `json:"type"` // "conversation.item.truncate"
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMS   int64  `json:"audio_end_ms"`
}

type clientResponseCreate struct {
	Type string `json:"type"` // "response.create"
}

type clientResponseCancel struct {
	Type string `json:"type"` // "response.cancel"
}

// Event is a typed server event.
type Event interface {
	eventType() string
}

// SessionCreatedEvent confirms the session after dialing.
type SessionCreatedEvent struct {
	SessionID string
}

func (e SessionCreatedEvent) eventType() string { return "session.created" }

// SessionUpdatedEvent acknowledges a session.update.
type SessionUpdatedEvent struct{}

func (e SessionUpdatedEvent) eventType() string { return "session.updated" }

// SpeechStartedEvent reports server VAD detecting the user speaking. During
// assistant playback it is the barge-in signal.
type SpeechStartedEvent struct {
	AudioStartMS int64
}

func (e SpeechStartedEvent) eventType() string { return "input_audio_buffer.speech_started" }

// SpeechStoppedEvent reports server VAD detecting end of speech.
type SpeechStoppedEvent struct {
	AudioEndMS int64
}

func (e SpeechStoppedEvent) eventType() string { return "input_audio_buffer.speech_stopped" }

// InputTranscriptEvent carries the completed transcript of a user utterance.
type InputTranscriptEvent struct {
	ItemID     string
	Transcript string
}

func (e InputTranscriptEvent) eventType() string {
	return "conversation.item.input_audio_transcription.completed"
}

// AudioDeltaEvent carries decoded assistant audio for one response item.
type AudioDeltaEvent struct {
	ResponseID string
	ItemID     string
	Data       []byte
}

func (e AudioDeltaEvent) eventType() string { return "response.audio.delta" }

// TranscriptDeltaEvent streams the assistant transcript.
type TranscriptDeltaEvent struct {
	ItemID string
	Delta  string
}

func (e TranscriptDeltaEvent) eventType() string { return "response.audio_transcript.delta" }

// TranscriptDoneEvent carries the final assistant transcript for an item.
type TranscriptDoneEvent struct {
	ItemID     string
	Transcript string
}

func (e TranscriptDoneEvent) eventType() string { return "response.audio_transcript.done" }

// FunctionCallEvent reports completed function call arguments.
type FunctionCallEvent struct {
	ItemID    string
	CallID    string
	Name      string
	Arguments json.RawMessage
}

func (e FunctionCallEvent) eventType() string { return "response.function_call_arguments.done" }

// ResponseDoneEvent marks the end of a model response.
type ResponseDoneEvent struct {
	ResponseID string
}

func (e ResponseDoneEvent) eventType() string { return "response.done" }

// ErrorEvent carries a server-reported error.
type ErrorEvent struct {
	Code    string
	Message string
}

func (e ErrorEvent) eventType() string { return "error" }

// UnknownEvent wraps frames this client does not model.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) eventType() string { return e.Type }
