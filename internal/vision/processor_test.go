package vision

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/earshot-app/earshot/internal/clients"
	"github.com/earshot-app/earshot/internal/config"
	"github.com/earshot-app/earshot/internal/modes"
)

type fakeCapturer struct {
	frames [][]byte
	calls  int
}

func (f *fakeCapturer) Capture() ([]byte, bool) { return f.CaptureAlways(), true }

func (f *fakeCapturer) CaptureAlways() []byte {
	if f.calls >= len(f.frames) {
		return nil
	}
	data := f.frames[f.calls]
	f.calls++
	return data
}

func (f *fakeCapturer) Close() {}

type fakeVision struct {
	answer string
	err    error
	calls  int
	model  string
	prompt string
}

func (f *fakeVision) AnswerVision(_ context.Context, model, prompt, _ string) (string, error) {
	f.calls++
	f.model = model
	f.prompt = prompt
	return f.answer, f.err
}

type fakeSink struct {
	mu       sync.Mutex
	payloads []clients.FeedbackPayload
}

func (f *fakeSink) PostFeedback(_ context.Context, p clients.FeedbackPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

// testPNG renders a small solid image; distinct colors produce distinct
// perceptual hashes far enough apart to defeat dedup.
func testPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, c)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func testConfig() config.Vision {
	return config.Vision{MaxWidth: 1600, HashDistance: 5}
}

func testMode() modes.Mode {
	return modes.Mode{Name: "primary", Hotkey: "ctrl+shift+j", Model: "gpt-4o-mini", Prompt: "solve it"}
}

func TestTriggerPostsFeedback(t *testing.T) {
	cam := &fakeCapturer{frames: [][]byte{testPNG(t, color.Black)}}
	vis := &fakeVision{answer: "the answer"}
	sink := &fakeSink{}
	p := NewProcessor(cam, vis, sink, &sync.Mutex{}, testConfig())

	p.Trigger(context.Background(), testMode())

	if sink.count() != 1 {
		t.Fatalf("posted %d payloads, want 1", sink.count())
	}
	got := sink.payloads[0]
	if got.Feedback != "the answer" {
		t.Errorf("feedback = %q, want %q", got.Feedback, "the answer")
	}
	if !strings.HasPrefix(got.Image, "data:image/png;base64,") {
		t.Errorf("image is not a PNG data URL: %q", got.Image[:min(len(got.Image), 40)])
	}
	if got.Meta["mode"] != "primary" || got.Meta["hotkey"] != "ctrl+shift+j" {
		t.Errorf("meta = %v, want mode/hotkey set", got.Meta)
	}
	if vis.model != "gpt-4o-mini" || vis.prompt != "solve it" {
		t.Errorf("reasoner called with model=%q prompt=%q", vis.model, vis.prompt)
	}
}

func TestTriggerSkipsRepeatedFrame(t *testing.T) {
	same := testPNG(t, color.Black)
	cam := &fakeCapturer{frames: [][]byte{same, same}}
	vis := &fakeVision{answer: "answer"}
	sink := &fakeSink{}
	p := NewProcessor(cam, vis, sink, &sync.Mutex{}, testConfig())

	mode := testMode()
	p.Trigger(context.Background(), mode)
	p.Trigger(context.Background(), mode)

	if vis.calls != 1 {
		t.Errorf("reasoner called %d times, want 1 (second frame deduped)", vis.calls)
	}
	if sink.count() != 1 {
		t.Errorf("posted %d payloads, want 1", sink.count())
	}
}

func TestTriggerSameFrameDifferentModeRuns(t *testing.T) {
	same := testPNG(t, color.Black)
	cam := &fakeCapturer{frames: [][]byte{same, same}}
	vis := &fakeVision{answer: "answer"}
	sink := &fakeSink{}
	p := NewProcessor(cam, vis, sink, &sync.Mutex{}, testConfig())

	p.Trigger(context.Background(), testMode())
	other := testMode()
	other.Name = "secondary"
	p.Trigger(context.Background(), other)

	if vis.calls != 2 {
		t.Errorf("reasoner called %d times, want 2 (dedup is per-mode)", vis.calls)
	}
}

func TestTriggerEmptyAnswerSkipsPost(t *testing.T) {
	cam := &fakeCapturer{frames: [][]byte{testPNG(t, color.Black)}}
	vis := &fakeVision{answer: ""}
	sink := &fakeSink{}
	p := NewProcessor(cam, vis, sink, &sync.Mutex{}, testConfig())

	p.Trigger(context.Background(), testMode())

	if sink.count() != 0 {
		t.Errorf("posted %d payloads, want 0 for empty answer", sink.count())
	}
}

func TestTriggerBusyGuardSkips(t *testing.T) {
	cam := &fakeCapturer{frames: [][]byte{testPNG(t, color.Black)}}
	vis := &fakeVision{answer: "answer"}
	sink := &fakeSink{}
	guard := &sync.Mutex{}
	p := NewProcessor(cam, vis, sink, guard, testConfig())

	guard.Lock()
	p.Trigger(context.Background(), testMode())
	guard.Unlock()

	if vis.calls != 0 || sink.count() != 0 {
		t.Errorf("pipeline ran while guard was held: calls=%d posts=%d", vis.calls, sink.count())
	}
}

func TestTriggerCaptureFailureSkips(t *testing.T) {
	cam := &fakeCapturer{}
	vis := &fakeVision{answer: "answer"}
	sink := &fakeSink{}
	p := NewProcessor(cam, vis, sink, &sync.Mutex{}, testConfig())

	p.Trigger(context.Background(), testMode())

	if vis.calls != 0 || sink.count() != 0 {
		t.Errorf("pipeline proceeded past a failed capture: calls=%d posts=%d", vis.calls, sink.count())
	}
}
