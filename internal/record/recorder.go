// Package record implements the fixed-duration recording pipeline: a
// hotkey toggles loopback capture into a buffer, and the finished
// recording runs batch transcription, optional diarization, question
// extraction, and answering.
package record

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/earshot-app/earshot/internal/audio"
)

// Capture yields device frames for one recording. *audio.Capturer
// satisfies it.
type Capture interface {
	Start(ctx context.Context) error
	Output() <-chan audio.Frame
	Stop()
}

// Recorder toggles a bounded loopback recording. The first toggle
// starts capture, the second (or the max-duration timer) stops it and
// submits the WAV for processing. One recording at a time.
type Recorder struct {
	open   func() (Capture, error)
	submit func(path string)
	maxDur time.Duration

	mu      sync.Mutex
	current *recording
}

// recording is one capture cycle.
type recording struct {
	capture    Capture
	stop       chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
	timer      *time.Timer
	sampleRate int
	samples    []float32
}

// NewRecorder creates a recorder. submit receives the path of each
// finished WAV; the callee owns the file from then on.
func NewRecorder(open func() (Capture, error), maxDur time.Duration, submit func(path string)) *Recorder {
	return &Recorder{open: open, submit: submit, maxDur: maxDur}
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Toggle starts a recording when idle and stops the running one
// otherwise.
func (r *Recorder) Toggle(ctx context.Context) {
	r.mu.Lock()
	if rec := r.current; rec != nil {
		r.mu.Unlock()
		r.finish(rec, false)
		return
	}

	capture, err := r.open()
	if err != nil {
		r.mu.Unlock()
		slog.Error("failed to open recording device", "error", err)
		return
	}
	if err := capture.Start(ctx); err != nil {
		r.mu.Unlock()
		capture.Stop()
		slog.Error("failed to start recording", "error", err)
		return
	}

	rec := &recording{
		capture: capture,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	rec.timer = time.AfterFunc(r.maxDur, func() { r.finish(rec, true) })
	r.current = rec
	r.mu.Unlock()

	go r.drain(rec)
	slog.Info("recording started", "max_seconds", r.maxDur.Seconds())
}

// Stop ends a running recording, if any. It behaves like a manual
// toggle-off: the captured audio is still submitted.
func (r *Recorder) Stop() {
	r.mu.Lock()
	rec := r.current
	r.mu.Unlock()
	if rec != nil {
		r.finish(rec, false)
	}
}

// drain accumulates mono samples at the device rate until stopped.
func (r *Recorder) drain(rec *recording) {
	defer close(rec.done)
	for {
		select {
		case <-rec.stop:
			return
		case frame := <-rec.capture.Output():
			if rec.sampleRate == 0 {
				rec.sampleRate = frame.SampleRate
			}
			rec.samples = append(rec.samples, audio.ToMono(frame.Data, frame.Channels)...)
		}
	}
}

// finish stops capture, writes the WAV, and submits it. Only the first
// caller for a given recording does the work; the timer and a manual
// toggle can race here.
func (r *Recorder) finish(rec *recording, auto bool) {
	stopped := false
	rec.stopOnce.Do(func() {
		stopped = true
		rec.timer.Stop()
		close(rec.stop)
	})
	if !stopped {
		return
	}

	rec.capture.Stop()
	<-rec.done

	r.mu.Lock()
	if r.current == rec {
		r.current = nil
	}
	r.mu.Unlock()

	duration := 0.0
	if rec.sampleRate > 0 {
		duration = float64(len(rec.samples)) / float64(rec.sampleRate)
	}
	slog.Info("recording stopped", "seconds", duration, "auto", auto)

	if len(rec.samples) == 0 || rec.sampleRate == 0 {
		slog.Warn("recording captured no audio, skipping pipeline")
		return
	}

	path, err := writeWAV(rec.samples, rec.sampleRate)
	if err != nil {
		slog.Error("failed to write recording", "error", err)
		return
	}
	r.submit(path)
}

// writeWAV persists mono samples to a temp file for upload.
func writeWAV(samples []float32, sampleRate int) (string, error) {
	f, err := os.CreateTemp("", "earshot-rec-*.wav")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(audio.EncodeWAV(samples, sampleRate, 1)); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
