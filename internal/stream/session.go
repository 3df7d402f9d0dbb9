// Package stream implements the live loopback answering session: it
// segments captured audio, accumulates a rolling transcript, extracts
// the most recent question, and dispatches at most one answer at a
// time to the reasoning service.
package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/earshot-app/earshot/internal/audio"
	"github.com/earshot-app/earshot/internal/clients"
	"github.com/earshot-app/earshot/internal/config"
	"github.com/earshot-app/earshot/internal/metrics"
)

// State is the lifecycle phase of the streaming controller.
type State int32

const (
	Idle State = iota
	Starting
	Capturing
	Stopping
)

func (s State) String() string {
	return [...]string{"idle", "starting", "capturing", "stopping"}[s]
}

// Capture yields device frames for one session. *audio.Capturer
// satisfies it.
type Capture interface {
	Start(ctx context.Context) error
	Output() <-chan audio.Frame
	Stop()
}

// Transcriber converts a segment of mono samples into text segments.
type Transcriber interface {
	TranscribeSamples(ctx context.Context, samples []float32, sampleRate int, opts clients.TranscribeOptions) ([]clients.TranscriptSegment, error)
}

// Answerer produces an answer for a question. An empty answer means
// "nothing usable", not an error.
type Answerer interface {
	Answer(ctx context.Context, model, systemPrompt, question string) (string, error)
}

// FeedbackSink receives finished answer payloads.
type FeedbackSink interface {
	PostFeedback(ctx context.Context, p clients.FeedbackPayload) error
}

// Deps are the collaborators a streaming session talks to.
type Deps struct {
	OpenCapture func() (Capture, error)
	STT         Transcriber
	Reasoning   Answerer
	Relay       FeedbackSink
}

// Controller owns at most one streaming session at a time and exposes
// the hotkey-facing operations: toggle, manual send, shutdown.
type Controller struct {
	cfg      config.Stream
	minWords int
	gate     *Gate
	stt      Transcriber
	reasoner Answerer
	sink     FeedbackSink
	open     func() (Capture, error)

	mu      sync.Mutex
	current *session
	state   atomic.Int32
}

// session is one toggle cycle: the workers draining a capture handle,
// all sharing one stop signal.
type session struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

func newSession() *session {
	return &session{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *session) signalStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *session) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// NewController creates a stream controller. minWords is the shortest
// question worth answering.
func NewController(cfg config.Stream, minWords int, deps Deps) *Controller {
	return &Controller{
		cfg:      cfg,
		minWords: minWords,
		gate:     NewGate(cfg.MinBetweenAnswers()),
		stt:      deps.STT,
		reasoner: deps.Reasoning,
		sink:     deps.Relay,
		open:     deps.OpenCapture,
	}
}

// State returns the controller's lifecycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Toggle starts a session when none is alive, otherwise signals the
// live one to stop. A second toggle while already stopping is a no-op;
// it never starts a concurrent session.
func (c *Controller) Toggle(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && !c.current.finished() {
		slog.Info("stopping loopback stream")
		c.current.signalStop()
		return
	}

	s := newSession()
	c.current = s
	c.setState(Starting)
	go c.run(ctx, s)
	slog.Info("starting loopback stream")
}

// SendNow force-extracts a question from the current window and admits
// it, bypassing the cooldown. Dedup and the single-slot rule still
// apply.
func (c *Controller) SendNow() {
	window := strings.TrimSpace(c.gate.Window())
	if window == "" {
		slog.Info("no transcript available to send")
		return
	}
	question := Extract(window, c.minWords)
	if question == "" {
		slog.Info("no question detected in transcript, not sending")
		return
	}
	if c.gate.TryAdmit(question, time.Now(), true) {
		slog.Info("queued stream question via hotkey")
	}
}

// Shutdown stops the live session, if any, and waits for its teardown
// with a bounded timeout.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s == nil || s.finished() {
		return
	}
	s.signalStop()
	select {
	case <-s.done:
	case <-time.After(ShutdownTimeout):
		slog.Warn("stream session did not shut down in time")
	}
}

// run drives one session through Starting, Capturing, Stopping and
// back to Idle.
func (c *Controller) run(ctx context.Context, s *session) {
	defer close(s.done)

	capture, err := c.open()
	if err != nil {
		slog.Error("loopback capture unavailable", "error", err)
		c.setState(Idle)
		return
	}
	if err := capture.Start(ctx); err != nil {
		slog.Error("failed to start loopback capture", "error", err)
		capture.Stop()
		c.setState(Idle)
		return
	}

	// A toggle-off can land while the device is opening. Honor it here,
	// before any workers exist.
	if s.stopped() {
		capture.Stop()
		c.setState(Idle)
		slog.Info("loopback stream stopped before capture began")
		return
	}

	answers := c.gate.Bind()
	s.wg.Add(2)
	go c.transcribeLoop(ctx, s, capture.Output())
	go c.dispatchLoop(ctx, s, answers)

	c.setState(Capturing)
	metrics.StreamActive.Set(1)
	slog.Info("loopback streaming started")

	select {
	case <-s.stop:
	case <-ctx.Done():
		s.signalStop()
	}

	c.setState(Stopping)
	metrics.StreamActive.Set(0)
	capture.Stop()

	joined := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(JoinTimeout):
		slog.Warn("stream workers did not exit in time", "timeout", JoinTimeout)
	}

	c.gate.Unbind()
	c.setState(Idle)
	slog.Info("loopback streaming stopped")
}

// transcribeLoop drains capture frames, cuts segments, transcribes
// them, and feeds the question gate. The single consumer keeps window
// appends in chronological order.
func (c *Controller) transcribeLoop(ctx context.Context, s *session, frames <-chan audio.Frame) {
	defer s.wg.Done()

	engine := NewEngine(EngineConfig{
		SilenceThreshold: c.cfg.SilenceThreshold,
		MinSamples:       c.cfg.MinSegmentSamples(),
		SilenceRun:       c.cfg.SilenceRunSamples(),
		MaxSamples:       c.cfg.MaxSegmentSamples(),
	})

	for {
		select {
		case <-s.stop:
			return
		case frame := <-frames:
			c.consumeFrame(ctx, engine, frame)
		}
	}
}

// consumeFrame is one worker iteration; faults are contained to it.
func (c *Controller) consumeFrame(ctx context.Context, engine *Engine, frame audio.Frame) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stream worker fault", "panic", r)
		}
	}()

	mono := audio.ToMono(frame.Data, frame.Channels)
	if frame.SampleRate != c.cfg.SampleRate {
		mono = audio.Resample(mono, frame.SampleRate, c.cfg.SampleRate)
	}
	if len(mono) == 0 {
		return
	}

	for _, segment := range engine.Push(mono) {
		c.transcribeSegment(ctx, segment)
	}
}

// transcribeSegment sends one segment to STT, appends its text to the
// window, and offers the freshest question to the gate.
func (c *Controller) transcribeSegment(ctx context.Context, samples []float32) {
	metrics.SegmentDuration.Observe(float64(len(samples)) / float64(c.cfg.SampleRate))

	segments, err := c.stt.TranscribeSamples(ctx, samples, c.cfg.SampleRate, clients.TranscribeOptions{
		Language: c.cfg.Language,
		BeamSize: c.cfg.BeamSize,
	})
	if err != nil {
		slog.Error("stream transcription failed", "error", err)
		return
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		slog.Info("interviewer", "start", seg.Start, "end", seg.End, "text", text)
		c.gate.Append(text)
	}

	if c.cfg.ManualOnly {
		return
	}
	window := c.gate.Window()
	if window == "" {
		return
	}
	if question := Extract(window, c.minWords); question != "" {
		c.gate.TryAdmit(question, time.Now(), false)
	}
}
