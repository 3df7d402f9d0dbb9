package stream

import (
	"strings"
	"time"

	"github.com/earshot-app/earshot/internal/syncx"
)

// sessionState is the mutable shared state of one streaming session:
// the rolling transcript window, the dedup/cooldown fields, and the
// dispatcher's single-slot queue. One guard covers all of it so window
// reads, admission, and clearing are observed atomically by the
// transcription worker and the manual send path.
type sessionState struct {
	window       string
	lastQuestion string
	lastAnswerAt time.Time
	answers      chan string
}

// Gate owns the transcript window and cooldown state for one session
// and decides which candidate questions reach the dispatcher.
type Gate struct {
	minBetween time.Duration
	state      *syncx.RWGuard[sessionState]
}

// NewGate creates a gate enforcing minBetween between automatic answers.
func NewGate(minBetween time.Duration) *Gate {
	return &Gate{
		minBetween: minBetween,
		state:      syncx.NewGuard(sessionState{}),
	}
}

// Bind resets the session state, installs a fresh single-slot dispatch
// queue, and returns its receive side. Until Bind, and again after
// Unbind, every admission fails.
func (g *Gate) Bind() <-chan string {
	ch := make(chan string, AnswerSlots)
	g.state.Set(sessionState{answers: ch})
	return ch
}

// Unbind drops the dispatch queue and clears the window and cooldown
// state. Safe to call repeatedly.
func (g *Gate) Unbind() {
	g.state.Set(sessionState{})
}

// Append adds recognized text to the transcript window, space-joined.
func (g *Gate) Append(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	g.state.Write(func(s *sessionState) {
		if s.window == "" {
			s.window = text
			return
		}
		s.window += " " + text
	})
}

// Window returns a snapshot of the transcript window.
func (g *Gate) Window() string {
	return g.state.Get().window
}
