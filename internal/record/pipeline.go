package record

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/earshot-app/earshot/internal/clients"
	"github.com/earshot-app/earshot/internal/config"
	"github.com/earshot-app/earshot/internal/metrics"
	"github.com/earshot-app/earshot/internal/resilience"
	"github.com/earshot-app/earshot/internal/stream"
)

// Transcriber batch-transcribes a recorded WAV file.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string, opts clients.TranscribeOptions) ([]clients.TranscriptSegment, error)
}

// Diarizer reports speaker turns for a recording. An unconfigured
// diarizer returns no turns and no error.
type Diarizer interface {
	Enabled() bool
	Diarize(ctx context.Context, path string) ([]clients.Turn, error)
}

// Answerer produces an answer for a question.
type Answerer interface {
	Answer(ctx context.Context, model, systemPrompt, question string) (string, error)
}

// FeedbackSink receives finished answer payloads.
type FeedbackSink interface {
	PostFeedback(ctx context.Context, p clients.FeedbackPayload) error
}

// Pipeline turns a finished recording into an answered question.
// Diarization is enrichment: its failures degrade to an undiarized
// transcript behind a circuit breaker, while STT, reasoning, and relay
// failures drop the recording without retry.
type Pipeline struct {
	stt      Transcriber
	diarizer Diarizer
	reasoner Answerer
	sink     FeedbackSink
	guard    *sync.Mutex
	breaker  *resilience.Breaker
	cfg      config.Record
	target   string
	minWords int
}

// NewPipeline creates the recording pipeline. guard must be the
// process-wide pipeline mutex shared with the screen pipeline.
func NewPipeline(stt Transcriber, diarizer Diarizer, reasoner Answerer, sink FeedbackSink, guard *sync.Mutex, cfg config.Record, diarCfg config.Diarization, minWords int) *Pipeline {
	return &Pipeline{
		stt:      stt,
		diarizer: diarizer,
		reasoner: reasoner,
		sink:     sink,
		guard:    guard,
		breaker:  resilience.New(resilience.EnrichmentConfig()),
		cfg:      cfg,
		target:   diarCfg.Target,
		minWords: minWords,
	}
}

// Run processes one recorded WAV. The file is removed in every path.
func (p *Pipeline) Run(ctx context.Context, path string) {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove recording", "path", path, "error", err)
		}
	}()

	if !p.guard.TryLock() {
		slog.Info("pipeline already running, skipping recording")
		return
	}
	defer p.guard.Unlock()

	start := time.Now()
	slog.Info("transcribing recording", "path", path)

	segments, err := p.stt.TranscribeFile(ctx, path, clients.TranscribeOptions{
		Language:  p.cfg.Language,
		VADFilter: true,
	})
	if err != nil {
		slog.Error("recording transcription failed", "error", err)
		return
	}
	if len(segments) == 0 {
		slog.Info("recording transcript empty, skipping")
		return
	}

	turns := p.diarize(ctx, path)
	if len(turns) > 0 {
		AssignSpeakers(segments, turns)
	}
	speaker := TargetSpeaker(turns, p.target)
	transcript := TranscriptFor(segments, speaker)

	question := stream.Extract(transcript, p.minWords)
	if question == "" {
		slog.Info("no question detected in recording, skipping")
		return
	}

	slog.Info("answering recorded question", "model", p.cfg.Model, "speaker", speaker)
	answer, err := p.reasoner.Answer(ctx, p.cfg.Model, p.cfg.Prompt, question)
	if err != nil {
		slog.Error("reasoning call failed for recording", "error", err)
		return
	}
	if answer == "" {
		slog.Info("empty answer for recorded question, skipping")
		return
	}

	payload := clients.FeedbackPayload{
		Feedback:  answer,
		Image:     "",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Meta: map[string]any{
			"mode":       "audio",
			"model":      p.cfg.Model,
			"hotkey":     p.cfg.Hotkey,
			"question":   question,
			"speaker":    speaker,
			"diarized":   len(turns) > 0,
			"latency_ms": time.Since(start).Milliseconds(),
		},
	}
	if err := p.sink.PostFeedback(ctx, payload); err != nil {
		slog.Error("failed to deliver recording answer", "error", err)
		return
	}

	metrics.PipelineLatency.WithLabelValues("audio").Observe(time.Since(start).Seconds())
	slog.Info("recording answer delivered")
}

// diarize fetches speaker turns behind the enrichment breaker. Any
// failure, or an open breaker, degrades to an undiarized transcript.
func (p *Pipeline) diarize(ctx context.Context, path string) []clients.Turn {
	if p.diarizer == nil || !p.diarizer.Enabled() {
		return nil
	}
	if err := p.breaker.Allow(); err != nil {
		slog.Warn("diarizer breaker open, proceeding undiarized")
		return nil
	}

	turns, err := p.diarizer.Diarize(ctx, path)
	if err != nil {
		p.breaker.Failure()
		slog.Warn("diarization failed, proceeding undiarized", "error", err)
		return nil
	}
	p.breaker.Success()
	return turns
}
