package stream

import "testing"

func newTestEngine() *Engine {
	return NewEngine(EngineConfig{
		SilenceThreshold: 0.01,
		MinSamples:       100,
		SilenceRun:       50,
		MaxSamples:       400,
	})
}

func loud(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.5
	}
	return samples
}

func quiet(n int) []float32 {
	return make([]float32, n)
}

func TestPushBelowMinNoCut(t *testing.T) {
	e := newTestEngine()

	if segs := e.Push(loud(50)); segs != nil {
		t.Errorf("Push() = %d segments, want none", len(segs))
	}
	if e.Buffered() != 50 {
		t.Errorf("Buffered() = %d, want 50", e.Buffered())
	}
}

func TestPushIgnoresEmptyChunk(t *testing.T) {
	e := newTestEngine()
	e.Push(loud(80))

	if segs := e.Push(nil); segs != nil {
		t.Errorf("Push(nil) = %d segments, want none", len(segs))
	}
	if segs := e.Push([]float32{}); segs != nil {
		t.Errorf("Push(empty) = %d segments, want none", len(segs))
	}
	if e.Buffered() != 80 {
		t.Errorf("Buffered() = %d, want 80", e.Buffered())
	}
}

func TestForcedCutAtMaxKeepsRemainder(t *testing.T) {
	e := newTestEngine()

	segs := e.Push(loud(450))
	if len(segs) != 1 {
		t.Fatalf("Push() = %d segments, want 1", len(segs))
	}
	if len(segs[0]) != 400 {
		t.Errorf("segment length = %d, want exactly 400", len(segs[0]))
	}
	if e.Buffered() != 50 {
		t.Errorf("Buffered() = %d, want 50 (remainder preserved)", e.Buffered())
	}
	if segs[0][0] != 0.5 || segs[0][399] != 0.5 {
		t.Error("segment samples corrupted by cut")
	}
}

func TestForcedCutDrainsBacklog(t *testing.T) {
	e := newTestEngine()

	segs := e.Push(loud(900))
	if len(segs) != 2 {
		t.Fatalf("Push() = %d segments, want 2", len(segs))
	}
	for i, seg := range segs {
		if len(seg) != 400 {
			t.Errorf("segment %d length = %d, want 400", i, len(seg))
		}
	}
	if e.Buffered() != 100 {
		t.Errorf("Buffered() = %d, want 100", e.Buffered())
	}
}

func TestSilenceCutDropsPause(t *testing.T) {
	e := newTestEngine()

	if segs := e.Push(loud(200)); segs != nil {
		t.Fatalf("premature cut: %d segments", len(segs))
	}

	segs := e.Push(quiet(60))
	if len(segs) != 1 {
		t.Fatalf("Push() = %d segments, want 1", len(segs))
	}
	if len(segs[0]) != 200 {
		t.Errorf("segment length = %d, want 200 (speech only)", len(segs[0]))
	}
	if e.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0 (pause dropped)", e.Buffered())
	}
}

func TestSilenceCutClampsToMin(t *testing.T) {
	e := newTestEngine()

	e.Push(loud(30))
	segs := e.Push(quiet(80))
	if len(segs) != 1 {
		t.Fatalf("Push() = %d segments, want 1", len(segs))
	}
	if len(segs[0]) != 100 {
		t.Errorf("segment length = %d, want 100 (clamped to min)", len(segs[0]))
	}
	if e.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", e.Buffered())
	}
}

func TestSilenceCutWinsOverForced(t *testing.T) {
	e := newTestEngine()

	e.Push(loud(390))
	segs := e.Push(quiet(60))
	if len(segs) != 1 {
		t.Fatalf("Push() = %d segments, want 1", len(segs))
	}
	// A forced cut would emit 400 samples; the silence boundary at 390
	// takes precedence.
	if len(segs[0]) != 390 {
		t.Errorf("segment length = %d, want 390", len(segs[0]))
	}
	if e.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", e.Buffered())
	}
}

func TestSpeechResetsTrailingSilence(t *testing.T) {
	e := newTestEngine()

	e.Push(loud(100))
	e.Push(quiet(40))
	e.Push(loud(10))
	if segs := e.Push(quiet(45)); segs != nil {
		t.Fatalf("cut before silence run complete: %d segments", len(segs))
	}

	segs := e.Push(quiet(10))
	if len(segs) != 1 {
		t.Fatalf("Push() = %d segments, want 1", len(segs))
	}
	if len(segs[0]) != 150 {
		t.Errorf("segment length = %d, want 150", len(segs[0]))
	}
}

func TestReset(t *testing.T) {
	e := newTestEngine()

	e.Push(loud(80))
	e.Push(quiet(40))
	e.Reset()

	if e.Buffered() != 0 {
		t.Errorf("Buffered() = %d after Reset, want 0", e.Buffered())
	}
	if segs := e.Push(quiet(60)); segs != nil {
		t.Errorf("Push() after Reset = %d segments, want none", len(segs))
	}
}

func TestRMS(t *testing.T) {
	if got := rms(nil); got != 0 {
		t.Errorf("rms(nil) = %g, want 0", got)
	}
	if got := rms([]float32{0, 0, 0}); got != 0 {
		t.Errorf("rms(zeros) = %g, want 0", got)
	}
	if got := rms([]float32{0.5, -0.5, 0.5, -0.5}); got != 0.5 {
		t.Errorf("rms(±0.5) = %g, want 0.5", got)
	}
}
