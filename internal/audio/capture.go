// Package audio handles loopback device capture with backpressure.
package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/earshot-app/earshot/internal/errors"
	"github.com/earshot-app/earshot/internal/metrics"
)

// Frame is a captured slice of interleaved PCM at the device's native format.
type Frame struct {
	Data       []float32
	Channels   int
	SampleRate int
	Timestamp  int64
}

// Capturer captures audio from a single loopback/system-audio device.
// Frames are delivered on a bounded channel; the read loop never blocks on a
// slow consumer, it drops instead.
type Capturer struct {
	outCh         chan Frame
	preferredName string
	framesPerBuf  int

	mu       sync.Mutex
	running  bool
	dev      *deviceCapture
	termOnce sync.Once
}

type deviceCapture struct {
	stream   *portaudio.Stream
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewCapturer initializes portaudio and prepares a capturer. preferredName,
// when non-empty, is matched case-insensitively against device names before
// keyword classification. Callers must Stop the capturer to release portaudio,
// including after a failed Start.
func NewCapturer(preferredName string) (*Capturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDeviceUnavailable, "initialize audio host")
	}

	return &Capturer{
		outCh:         make(chan Frame, FrameBuffer),
		preferredName: preferredName,
		framesPerBuf:  FramesPerBuffer,
	}, nil
}

// Output returns the channel delivering captured frames.
func (c *Capturer) Output() <-chan Frame { return c.outCh }

// Start opens the loopback device and begins the read loop. It returns a
// DEVICE_UNAVAILABLE error when no usable device exists or the stream cannot
// be opened.
func (c *Capturer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	dev, err := c.pickDevice()
	if err != nil {
		return err
	}

	channels := dev.MaxInputChannels
	if channels > 2 {
		channels = 2
	}
	if channels < 1 {
		channels = 1
	}
	sampleRate := int(dev.DefaultSampleRate)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: c.framesPerBuf,
	}

	buf := make([]float32, c.framesPerBuf*channels)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return errors.Wrapf(err, errors.CodeDeviceUnavailable, "open stream on %q", dev.Name)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return errors.Wrapf(err, errors.CodeDeviceUnavailable, "start stream on %q", dev.Name)
	}

	devCtx, cancel := context.WithCancel(ctx)
	dc := &deviceCapture{stream: stream, cancel: cancel}

	c.mu.Lock()
	c.dev = dc
	c.mu.Unlock()

	slog.Info("started loopback capture",
		"device", dev.Name, "sample_rate", sampleRate, "channels", channels)

	deviceName := dev.Name

	go func() {
		defer dc.stop()
		for {
			select {
			case <-devCtx.Done():
				return
			default:
			}

			if err := stream.Read(); err != nil {
				slog.Debug("audio read error", "device", deviceName, "error", err)
				return
			}

			frame := Frame{
				Data:       append([]float32(nil), buf...),
				Channels:   channels,
				SampleRate: sampleRate,
				Timestamp:  time.Now().UnixNano(),
			}

			select {
			case c.outCh <- frame:
			default:
				metrics.FramesDropped.Inc()
				slog.Debug("frame channel full, dropping frame", "device", deviceName)
			}
		}
	}()

	return nil
}

// pickDevice selects the capture device: preferred name match first, then the
// first system-classified device, then the default input.
func (c *Capturer) pickDevice() (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDeviceUnavailable, "enumerate audio devices")
	}

	var system *portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if c.preferredName != "" && containsIgnoreCase(dev.Name, c.preferredName) {
			return dev, nil
		}
		if system == nil && c.classifyDevice(dev.Name) == "system" {
			system = dev
		}
	}

	if c.preferredName != "" {
		slog.Warn("preferred loopback device not found", "name", c.preferredName)
	}
	if system != nil {
		return system, nil
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return nil, errors.Wrap(err, errors.CodeDeviceUnavailable, "no loopback or input device available")
	}
	slog.Warn("no loopback device found, falling back to default input", "device", dev.Name)
	return dev, nil
}

// classifyDevice tags a device name as "system" loopback, "user" microphone,
// or "" for anything else.
func (c *Capturer) classifyDevice(name string) string {
	systemKeywords := []string{"blackhole", "vb-cable", "loopback", "monitor", "soundflower", "stereo mix", "wasapi"}
	for _, kw := range systemKeywords {
		if containsIgnoreCase(name, kw) {
			return "system"
		}
	}

	micKeywords := []string{"microphone", "input", "mic", "built-in"}
	for _, kw := range micKeywords {
		if containsIgnoreCase(name, kw) {
			return "user"
		}
	}

	return ""
}

func (d *deviceCapture) stop() {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		if d.stream != nil {
			_ = d.stream.Stop()
			_ = d.stream.Close()
		}
	})
}

// Stop halts capture and releases portaudio. Safe to call more than once and
// without a prior successful Start.
func (c *Capturer) Stop() {
	c.mu.Lock()
	if c.dev != nil {
		c.dev.stop()
		c.dev = nil
	}
	c.running = false
	c.mu.Unlock()

	// Pairs with the Initialize in NewCapturer.
	c.termOnce.Do(func() { _ = portaudio.Terminate() })
}

func containsIgnoreCase(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || containsIgnoreCaseImpl(s, substr))
}

const asciiCaseOffset = 'a' - 'A'

func containsIgnoreCaseImpl(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		match := true
		for j := 0; j < len(substr); j++ {
			c1, c2 := s[i+j], substr[j]
			if c1 >= 'A' && c1 <= 'Z' {
				c1 += asciiCaseOffset
			}
			if c2 >= 'A' && c2 <= 'Z' {
				c2 += asciiCaseOffset
			}
			if c1 != c2 {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
