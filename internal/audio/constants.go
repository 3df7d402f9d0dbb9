package audio

// Capture tuning.
const (
	// FrameBuffer bounds the frame channel; the device read loop drops
	// frames when the consumer falls behind.
	FrameBuffer = 50

	// FramesPerBuffer is the portaudio read size in frames (~23ms at 44.1kHz).
	FramesPerBuffer = 1024
)
