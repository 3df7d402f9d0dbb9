package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/earshot-app/earshot/internal/audio"
	"github.com/earshot-app/earshot/internal/errors"
	"github.com/earshot-app/earshot/internal/metrics"
	"github.com/earshot-app/earshot/internal/trace"
)

// TranscriptSegment is one timed piece of recognized speech. Speaker is
// filled in later by diarization when available.
type TranscriptSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// JoinText concatenates segment texts with single spaces.
func JoinText(segments []TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// TranscribeOptions tune a transcription request.
type TranscribeOptions struct {
	Language  string
	BeamSize  int
	VADFilter bool
}

type transcribeResponse struct {
	Segments []TranscriptSegment `json:"segments"`
	Language string              `json:"language,omitempty"`
}

// STT calls the transcription service.
type STT struct {
	baseURL string
	c       *http.Client
}

// NewSTT creates a transcription client for the given base URL.
func NewSTT(baseURL string) *STT {
	return &STT{
		baseURL: strings.TrimRight(baseURL, "/"),
		c: &http.Client{
			Timeout:   STTTimeout,
			Transport: trace.NewTransport(nil),
		},
	}
}

// TranscribeSamples sends mono PCM as an in-memory WAV upload.
func (s *STT) TranscribeSamples(ctx context.Context, samples []float32, sampleRate int, opts TranscribeOptions) ([]TranscriptSegment, error) {
	wav := audio.EncodeWAV(samples, sampleRate, 1)
	return s.transcribe(ctx, "segment.wav", bytes.NewReader(wav), opts)
}

// TranscribeFile uploads a WAV file from disk.
func (s *STT) TranscribeFile(ctx context.Context, path string, opts TranscribeOptions) ([]TranscriptSegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInvalidArgument, "open recording %s", path)
	}
	defer f.Close()
	return s.transcribe(ctx, filepath.Base(path), f, opts)
}

func (s *STT) transcribe(ctx context.Context, name string, r io.Reader, opts TranscribeOptions) ([]TranscriptSegment, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build transcription request")
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "buffer audio upload")
	}
	if opts.Language != "" {
		_ = w.WriteField("language", opts.Language)
	}
	if opts.BeamSize > 0 {
		_ = w.WriteField("beam_size", strconv.Itoa(opts.BeamSize))
	}
	if opts.VADFilter {
		_ = w.WriteField("vad_filter", "true")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "finalize transcription request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build transcription request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := s.c.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, transportCode(err), "call transcription service")
	}
	defer resp.Body.Close()
	metrics.TranscribeLatency.Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, errors.Newf(errors.CodeFromHTTPStatus(resp.StatusCode),
			"transcription service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "decode transcription response")
	}
	return out.Segments, nil
}
