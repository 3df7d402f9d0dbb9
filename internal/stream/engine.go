package stream

import (
	"math"

	"github.com/earshot-app/earshot/internal/metrics"
)

// EngineConfig holds segmentation bounds. Sample counts are at the
// engine's processing rate, after mono mixdown and resampling.
type EngineConfig struct {
	SilenceThreshold float64 // RMS below this counts as silence
	MinSamples       int     // shortest segment worth transcribing
	SilenceRun       int     // trailing silence that triggers a cut
	MaxSamples       int     // hard cap, forces a cut mid-utterance
}

// Engine buffers a continuous mono sample stream and cuts it into
// utterance-length segments. Cuts happen preferentially at silence
// boundaries; a buffer that reaches MaxSamples is cut there regardless.
// Not safe for concurrent use; one engine belongs to one worker.
type Engine struct {
	cfg EngineConfig

	buffer          []float32
	trailingSilence int
}

// NewEngine creates a segmentation engine.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Push appends a chunk and returns every segment that became ready.
// A backlog of buffered audio can complete several segments in one
// call. Empty chunks are ignored.
func (e *Engine) Push(chunk []float32) [][]float32 {
	if len(chunk) == 0 {
		return nil
	}

	e.buffer = append(e.buffer, chunk...)
	if rms(chunk) < e.cfg.SilenceThreshold {
		e.trailingSilence += len(chunk)
	} else {
		e.trailingSilence = 0
	}

	var segments [][]float32
	for {
		switch {
		case len(e.buffer) >= e.cfg.MinSamples && e.trailingSilence >= e.cfg.SilenceRun:
			// Cut at the start of the pause. The pause itself is
			// dropped, never carried into the next segment.
			cut := len(e.buffer) - e.trailingSilence
			if cut < e.cfg.MinSamples {
				cut = e.cfg.MinSamples
			}
			segments = append(segments, snip(e.buffer[:cut]))
			e.buffer = e.buffer[:0]
			e.trailingSilence = 0
			metrics.SegmentsCut.WithLabelValues("silence").Inc()

		case len(e.buffer) >= e.cfg.MaxSamples:
			// Forced cut, mid-utterance if need be. The remainder
			// starts the next segment.
			segments = append(segments, snip(e.buffer[:e.cfg.MaxSamples]))
			kept := copy(e.buffer, e.buffer[e.cfg.MaxSamples:])
			e.buffer = e.buffer[:kept]
			e.trailingSilence = 0
			metrics.SegmentsCut.WithLabelValues("max").Inc()

		default:
			return segments
		}
	}
}

// Buffered returns the number of samples waiting for a cut.
func (e *Engine) Buffered() int { return len(e.buffer) }

// Reset discards buffered audio and the silence counter.
func (e *Engine) Reset() {
	e.buffer = e.buffer[:0]
	e.trailingSilence = 0
}

// snip copies a buffer region so the segment survives buffer reuse.
func snip(samples []float32) []float32 {
	out := make([]float32, len(samples))
	copy(out, samples)
	return out
}

// rms is the root-mean-square amplitude of a chunk.
func rms(chunk []float32) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for _, s := range chunk {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(chunk)))
}
