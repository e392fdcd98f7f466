package live

import (
	"github.com/junctionhq/auditline/pkg/chat"
	"github.com/junctionhq/auditline/pkg/core/types"
)

// SessionState represents the current state of the duplex session.
type SessionState int

const (
	// StateDisconnected is the initial state before Connect.
	StateDisconnected SessionState = iota
	// StateConnecting is while the transport handshake and session
	// configuration are in flight.
	StateConnecting
	// StateIdle is when the session is up and nobody is speaking.
	StateIdle
	// StateUserSpeaking is while server VAD reports user speech.
	StateUserSpeaking
	// StateModelResponding is while assistant audio is streaming.
	StateModelResponding
	// StateToolExecuting is while an audit commit is running.
	StateToolExecuting
	// StateInterrupted is the transient state while a barge-in is being
	// reconciled with the server.
	StateInterrupted
	// StateClosed is when the session has been torn down.
	StateClosed
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateIdle:
		return "IDLE"
	case StateUserSpeaking:
		return "USER_SPEAKING"
	case StateModelResponding:
		return "MODEL_RESPONDING"
	case StateToolExecuting:
		return "TOOL_EXECUTING"
	case StateInterrupted:
		return "INTERRUPTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// SessionConfig holds all configuration for a duplex voice session.
type SessionConfig struct {
	// SessionID is the audit session row completed turns are written to.
	SessionID int64 `json:"session_id"`

	// History is prior conversation used to prime the realtime session.
	History []types.Turn `json:"history,omitempty"`

	// Instructions is the voice system prompt. Defaults to
	// chat.VoiceInstructions.
	Instructions string `json:"instructions,omitempty"`

	// Voice selects the assistant voice. Default: "alloy".
	Voice string `json:"voice,omitempty"`

	// TranscriptionModel transcribes user audio server side.
	// Default: "whisper-1".
	TranscriptionModel string `json:"transcription_model,omitempty"`

	// SampleRate is the PCM sample rate in Hz. Default: 24000.
	SampleRate int `json:"sample_rate"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Instructions:       chat.VoiceInstructions,
		Voice:              "alloy",
		TranscriptionModel: "whisper-1",
		SampleRate:         DefaultSampleRate,
	}
}

func (c *SessionConfig) applyDefaults() {
	if c.Instructions == "" {
		c.Instructions = chat.VoiceInstructions
	}
	if c.Voice == "" {
		c.Voice = "alloy"
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = "whisper-1"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
}
