// Package vision runs the hotkey-triggered screen pipeline: capture a
// screenshot, skip near-duplicate triggers, downscale, ask the vision
// model about it, and forward the feedback to the relay.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	_ "image/jpeg" // JPEG decoder, linux and darwin backends emit it
	"image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"

	"github.com/earshot-app/earshot/internal/clients"
	"github.com/earshot-app/earshot/internal/config"
	"github.com/earshot-app/earshot/internal/metrics"
	"github.com/earshot-app/earshot/internal/modes"
	screencap "github.com/earshot-app/earshot/internal/screen"
)

// VisionAnswerer answers a prompt about an image. An empty answer means
// "nothing usable", not an error.
type VisionAnswerer interface {
	AnswerVision(ctx context.Context, model, prompt, imageURL string) (string, error)
}

// FeedbackSink receives finished answer payloads.
type FeedbackSink interface {
	PostFeedback(ctx context.Context, p clients.FeedbackPayload) error
}

// Processor executes one screen pipeline run per trigger. Concurrent
// triggers are rejected, not queued: guard is shared with the recording
// pipeline so only one heavy pipeline is in flight.
type Processor struct {
	capturer screencap.Capturer
	reasoner VisionAnswerer
	sink     FeedbackSink
	guard    *sync.Mutex
	cfg      config.Vision

	mu       sync.Mutex
	lastHash *goimagehash.ImageHash
	lastMode string
}

// NewProcessor creates a screen pipeline processor. guard must be the
// process-wide pipeline mutex shared with the recording pipeline.
func NewProcessor(capturer screencap.Capturer, reasoner VisionAnswerer, sink FeedbackSink, guard *sync.Mutex, cfg config.Vision) *Processor {
	return &Processor{
		capturer: capturer,
		reasoner: reasoner,
		sink:     sink,
		guard:    guard,
		cfg:      cfg,
	}
}

// Trigger runs the pipeline for one mode. A run already in flight, an
// unchanged screen, or a per-stage failure ends this trigger only.
func (p *Processor) Trigger(ctx context.Context, mode modes.Mode) {
	if !p.guard.TryLock() {
		slog.Info("pipeline already running, ignoring trigger", "mode", mode.Name)
		return
	}
	defer p.guard.Unlock()

	start := time.Now()
	slog.Info("capturing screen", "mode", mode.Name, "hotkey", mode.Hotkey, "model", mode.Model)

	raw := p.capturer.CaptureAlways()
	if raw == nil {
		slog.Error("screen capture failed", "mode", mode.Name)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		slog.Error("failed to decode screenshot", "error", err)
		return
	}

	if p.isRepeat(img, mode.Name) {
		slog.Info("screen unchanged since last trigger, skipping", "mode", mode.Name)
		return
	}

	dataURL, err := p.encode(img)
	if err != nil {
		slog.Error("failed to encode screenshot", "error", err)
		return
	}

	answer, err := p.reasoner.AnswerVision(ctx, mode.Model, mode.Prompt, dataURL)
	if err != nil {
		slog.Error("vision reasoning failed", "mode", mode.Name, "error", err)
		return
	}
	if answer == "" {
		slog.Info("empty vision answer, skipping", "mode", mode.Name)
		return
	}

	payload := clients.FeedbackPayload{
		Feedback:  answer,
		Image:     dataURL,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Meta: map[string]any{
			"mode":       mode.Name,
			"model":      mode.Model,
			"hotkey":     mode.Hotkey,
			"latency_ms": time.Since(start).Milliseconds(),
		},
	}
	if err := p.sink.PostFeedback(ctx, payload); err != nil {
		slog.Error("failed to deliver screen feedback", "error", err)
		return
	}

	metrics.PipelineLatency.WithLabelValues("image").Observe(time.Since(start).Seconds())
	slog.Info("screen feedback delivered", "mode", mode.Name)
}

// isRepeat compares the perceptual hash against the previous trigger of
// the same mode and remembers the new hash when the frame differs.
func (p *Processor) isRepeat(img image.Image, mode string) bool {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastHash != nil && p.lastMode == mode {
		if dist, err := p.lastHash.Distance(hash); err == nil && dist <= p.cfg.HashDistance {
			slog.Debug("screenshot near-identical to previous", "distance", dist)
			return true
		}
	}
	p.lastHash = hash
	p.lastMode = mode
	return false
}

// encode downscales wide screenshots and renders a PNG data URL.
func (p *Processor) encode(img image.Image) (string, error) {
	if img.Bounds().Dx() > p.cfg.MaxWidth {
		img = resize.Resize(uint(p.cfg.MaxWidth), 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
