package stream

import "time"

// Session constants
const (
	// AnswerSlots is the dispatch queue capacity. Only the most recent
	// admitted question matters, so one slot is enough.
	AnswerSlots = 1

	// JoinTimeout bounds the wait for session workers on stop.
	JoinTimeout = 2 * time.Second

	// ShutdownTimeout bounds the wait for a full session teardown.
	ShutdownTimeout = 3 * time.Second
)
