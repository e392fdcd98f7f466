package live

// Event is the interface for all session events surfaced to callers.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// StateChangedEvent is emitted when the session state changes.
type StateChangedEvent struct {
	From SessionState `json:"from"`
	To   SessionState `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// UserTranscriptEvent carries the completed transcript of a user utterance.
type UserTranscriptEvent struct {
	Transcript string `json:"transcript"`
}

func (e *UserTranscriptEvent) EventType() string { return "transcript.user" }

// AssistantTranscriptDeltaEvent streams the assistant transcript as it is
// spoken.
type AssistantTranscriptDeltaEvent struct {
	Delta string `json:"delta"`
}

func (e *AssistantTranscriptDeltaEvent) EventType() string { return "transcript.delta" }

// AssistantTranscriptEvent carries the final transcript of an assistant
// response item.
type AssistantTranscriptEvent struct {
	Transcript string `json:"transcript"`
}

func (e *AssistantTranscriptEvent) EventType() string { return "transcript.assistant" }

// AuditCommittedEvent is emitted when a requested audit has been written.
type AuditCommittedEvent struct {
	ItemAuditID int64 `json:"item_audit_id"`
	Duplicate   bool  `json:"duplicate,omitempty"`
}

func (e *AuditCommittedEvent) EventType() string { return "audit.committed" }

// InterruptedEvent is emitted when user speech cut off assistant playback.
// AudioEndMS is how much of the response the user actually heard.
type InterruptedEvent struct {
	ItemID     string `json:"item_id"`
	AudioEndMS int64  `json:"audio_end_ms"`
}

func (e *InterruptedEvent) EventType() string { return "interrupted" }

// SessionClosedEvent is emitted when the session ends.
type SessionClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *SessionClosedEvent) EventType() string { return "session.closed" }

// ErrorEvent carries a non-fatal session error.
type ErrorEvent struct {
	Err error `json:"-"`
}

func (e *ErrorEvent) EventType() string { return "error" }
