package clients

import "time"

// Request timeouts per collaborator.
const (
	// STTTimeout bounds transcription uploads; batch recordings can be
	// tens of seconds of audio.
	STTTimeout = 60 * time.Second

	// DiarizeTimeout bounds diarizer uploads.
	DiarizeTimeout = 60 * time.Second

	// ReasoningTimeout bounds chat completion calls.
	ReasoningTimeout = 30 * time.Second

	// FeedbackTimeout bounds relay feedback posts.
	FeedbackTimeout = 10 * time.Second

	// ControlTimeout bounds relay control posts.
	ControlTimeout = 5 * time.Second

	// PingTimeout bounds the relay reachability probe.
	PingTimeout = 3 * time.Second

	// errorBodyLimit caps how much of an error response body is copied
	// into error messages.
	errorBodyLimit = 2048
)
