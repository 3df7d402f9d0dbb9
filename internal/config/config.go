// Package config loads agent and relay settings from the environment.
// A .env file in the working directory is honored when present; explicit
// environment variables win.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/earshot-app/earshot/internal/errors"
)

// Stream configures the live loopback session: capture, segmentation,
// admission cooldown, and the answer model.
type Stream struct {
	SampleRate               int     `envconfig:"STREAM_SAMPLE_RATE" default:"16000"`
	SilenceThreshold         float64 `envconfig:"STREAM_SILENCE_THRESHOLD" default:"0.015"`
	SilenceMs                int     `envconfig:"STREAM_SILENCE_MS" default:"700"`
	MinSegmentSeconds        float64 `envconfig:"STREAM_MIN_SEGMENT_SECONDS" default:"1.2"`
	MaxSegmentSeconds        float64 `envconfig:"STREAM_MAX_SEGMENT_SECONDS" default:"8"`
	MinSecondsBetweenAnswers float64 `envconfig:"STREAM_MIN_SECONDS_BETWEEN_ANSWERS" default:"8"`
	Language                 string  `envconfig:"STREAM_LANGUAGE" default:"en"`
	BeamSize                 int     `envconfig:"STREAM_BEAM_SIZE" default:"2"`
	ManualOnly               bool    `envconfig:"STREAM_MANUAL_ONLY" default:"false"`
	Model                    string  `envconfig:"STREAM_MODEL" default:"qwen-max"`
	Prompt                   string  `envconfig:"STREAM_PROMPT" default:"Answer the interviewer's question clearly and concisely."`
	Hotkey                   string  `envconfig:"STREAM_HOTKEY" default:"ctrl+shift+w"`
	SendHotkey               string  `envconfig:"STREAM_SEND_HOTKEY" default:"ctrl+shift+e"`
	LoopbackDevice           string  `envconfig:"STREAM_LOOPBACK_DEVICE_NAME" default:""`
}

// SilenceRunSamples is the trailing-silence length that triggers a cut.
func (s Stream) SilenceRunSamples() int {
	return int(float64(s.SilenceMs) / 1000.0 * float64(s.SampleRate))
}

// MinSegmentSamples is the shortest segment worth transcribing.
func (s Stream) MinSegmentSamples() int {
	return int(s.MinSegmentSeconds * float64(s.SampleRate))
}

// MaxSegmentSamples is the forced-cut bound.
func (s Stream) MaxSegmentSamples() int {
	return int(s.MaxSegmentSeconds * float64(s.SampleRate))
}

// MinBetweenAnswers is the cooldown between automatic answers.
func (s Stream) MinBetweenAnswers() time.Duration {
	return time.Duration(s.MinSecondsBetweenAnswers * float64(time.Second))
}

// Record configures the fixed-duration recording pipeline.
type Record struct {
	MaxSeconds float64 `envconfig:"AUDIO_MAX_SECONDS" default:"20"`
	Hotkey     string  `envconfig:"AUDIO_HOTKEY" default:"ctrl+shift+q"`
	Model      string  `envconfig:"AUDIO_MODEL" default:"qwen-max"`
	Prompt     string  `envconfig:"AUDIO_PROMPT" default:"Answer the interviewer's question clearly and concisely."`
	Language   string  `envconfig:"AUDIO_LANGUAGE" default:"en"`
}

// MaxDuration is the auto-stop bound for a recording.
func (r Record) MaxDuration() time.Duration {
	return time.Duration(r.MaxSeconds * float64(time.Second))
}

// STT locates the transcription service.
type STT struct {
	URL string `envconfig:"STT_URL" default:"http://localhost:8100"`
}

// Diarization locates the optional speaker-diarization service. An empty URL
// disables diarization.
type Diarization struct {
	URL    string `envconfig:"DIARIZER_URL" default:""`
	Target string `envconfig:"DIARIZATION_TARGET" default:""`
}

// Reasoning configures the OpenAI-compatible answer backend.
type Reasoning struct {
	APIKey  string `envconfig:"REASONING_API_KEY" default:""`
	BaseURL string `envconfig:"REASONING_BASE_URL" default:""`
}

// Modes configures the hotkey-triggered screen reasoning modes. The secondary
// mode exists only when its hotkey is set; its model and prompt fall back to
// the primary's when left empty.
type Modes struct {
	PrimaryHotkey   string `envconfig:"PRIMARY_HOTKEY" default:"ctrl+shift+j"`
	PrimaryModel    string `envconfig:"PRIMARY_MODEL" default:"gpt-4o-mini"`
	PrimaryPrompt   string `envconfig:"PRIMARY_PROMPT" default:"Solve the problem shown in this image. Show your work."`
	SecondaryHotkey string `envconfig:"SECONDARY_HOTKEY" default:""`
	SecondaryModel  string `envconfig:"SECONDARY_MODEL" default:""`
	SecondaryPrompt string `envconfig:"SECONDARY_PROMPT" default:""`
}

// Vision configures screenshot preprocessing.
type Vision struct {
	MaxWidth     int `envconfig:"SCREEN_MAX_WIDTH" default:"1600"`
	HashDistance int `envconfig:"SCREEN_HASH_DISTANCE" default:"5"`
}

// Queue configures the global request queue.
type Queue struct {
	Capacity        int     `envconfig:"MAX_QUEUE_SIZE" default:"3"`
	CooldownSeconds float64 `envconfig:"REQUEST_COOLDOWN_SECONDS" default:"5"`
}

// Cooldown is the minimum interval between accepted queue submissions.
func (q Queue) Cooldown() time.Duration {
	return time.Duration(q.CooldownSeconds * float64(time.Second))
}

// Config is the agent configuration.
type Config struct {
	ServerURL        string `envconfig:"SERVER_URL" default:"http://localhost:4000"`
	MetricsAddr      string `envconfig:"METRICS_ADDR" default:"127.0.0.1:9090"`
	Debug            bool   `envconfig:"DEBUG" default:"false"`
	QuestionMinWords int    `envconfig:"AUDIO_QUESTION_MIN_WORDS" default:"6"`

	Stream      Stream
	Record      Record
	STT         STT
	Diarization Diarization
	Reasoning   Reasoning
	Modes       Modes
	Vision      Vision
	Queue       Queue
}

// Load reads the agent configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipelines cannot run with.
func (c *Config) Validate() error {
	if c.Stream.SampleRate <= 0 {
		return errors.Newf(errors.CodeConfigInvalid, "STREAM_SAMPLE_RATE must be positive, got %d", c.Stream.SampleRate)
	}
	if c.Stream.SilenceThreshold <= 0 {
		return errors.Newf(errors.CodeConfigInvalid, "STREAM_SILENCE_THRESHOLD must be positive, got %g", c.Stream.SilenceThreshold)
	}
	if c.Stream.SilenceMs <= 0 {
		return errors.Newf(errors.CodeConfigInvalid, "STREAM_SILENCE_MS must be positive, got %d", c.Stream.SilenceMs)
	}
	if c.Stream.MinSegmentSeconds <= 0 {
		return errors.Newf(errors.CodeConfigInvalid, "STREAM_MIN_SEGMENT_SECONDS must be positive, got %g", c.Stream.MinSegmentSeconds)
	}
	if c.Stream.MaxSegmentSeconds <= c.Stream.MinSegmentSeconds {
		return errors.Newf(errors.CodeConfigInvalid,
			"STREAM_MAX_SEGMENT_SECONDS (%g) must exceed STREAM_MIN_SEGMENT_SECONDS (%g)",
			c.Stream.MaxSegmentSeconds, c.Stream.MinSegmentSeconds)
	}
	if c.Stream.MinSecondsBetweenAnswers < 0 {
		return errors.Newf(errors.CodeConfigInvalid, "STREAM_MIN_SECONDS_BETWEEN_ANSWERS must not be negative, got %g", c.Stream.MinSecondsBetweenAnswers)
	}
	if c.Record.MaxSeconds <= 0 {
		return errors.Newf(errors.CodeConfigInvalid, "AUDIO_MAX_SECONDS must be positive, got %g", c.Record.MaxSeconds)
	}
	if c.QuestionMinWords < 1 {
		return errors.Newf(errors.CodeConfigInvalid, "AUDIO_QUESTION_MIN_WORDS must be at least 1, got %d", c.QuestionMinWords)
	}
	if c.Queue.Capacity <= 0 {
		return errors.Newf(errors.CodeConfigInvalid, "MAX_QUEUE_SIZE must be positive, got %d", c.Queue.Capacity)
	}
	if c.Queue.CooldownSeconds < 0 {
		return errors.Newf(errors.CodeConfigInvalid, "REQUEST_COOLDOWN_SECONDS must not be negative, got %g", c.Queue.CooldownSeconds)
	}
	if c.Vision.MaxWidth <= 0 {
		return errors.Newf(errors.CodeConfigInvalid, "SCREEN_MAX_WIDTH must be positive, got %d", c.Vision.MaxWidth)
	}
	return nil
}

// Relay is the relay server configuration.
type Relay struct {
	Port         string `envconfig:"PORT" default:"4000"`
	ClientOrigin string `envconfig:"CLIENT_ORIGIN" default:"*"`
	UploadDir    string `envconfig:"UPLOAD_DIR" default:"uploads"`
	Debug        bool   `envconfig:"DEBUG" default:"false"`
}

// Addr is the listen address for the relay's HTTP server.
func (r *Relay) Addr() string {
	return ":" + r.Port
}

// LoadRelay reads the relay server configuration from the environment.
func LoadRelay() (*Relay, error) {
	_ = godotenv.Load()

	var cfg Relay
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, "parse environment")
	}
	return &cfg, nil
}
