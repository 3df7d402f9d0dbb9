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
	"strings"

	"github.com/earshot-app/earshot/internal/errors"
	"github.com/earshot-app/earshot/internal/trace"
)

// Turn is one speaker turn reported by the diarizer.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Duration returns the turn length in seconds.
func (t Turn) Duration() float64 { return t.End - t.Start }

type diarizeResponse struct {
	Turns []Turn `json:"turns"`
}

// Diarizer calls the optional speaker-diarization service. A client with an
// empty base URL is disabled; Diarize then returns no turns.
type Diarizer struct {
	baseURL string
	c       *http.Client
}

// NewDiarizer creates a diarization client. An empty baseURL disables it.
func NewDiarizer(baseURL string) *Diarizer {
	return &Diarizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		c: &http.Client{
			Timeout:   DiarizeTimeout,
			Transport: trace.NewTransport(nil),
		},
	}
}

// Enabled reports whether a diarizer endpoint is configured.
func (d *Diarizer) Enabled() bool { return d.baseURL != "" }

// Diarize uploads a WAV file and returns speaker turns.
func (d *Diarizer) Diarize(ctx context.Context, path string) ([]Turn, error) {
	if !d.Enabled() {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInvalidArgument, "open recording %s", path)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build diarization request")
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "buffer audio upload")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "finalize diarization request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/diarize", &body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build diarization request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := d.c.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, transportCode(err), "call diarization service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, errors.Newf(errors.CodeFromHTTPStatus(resp.StatusCode),
			"diarization service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out diarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "decode diarization response")
	}
	return out.Turns, nil
}
