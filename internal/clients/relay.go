package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/earshot-app/earshot/internal/errors"
	"github.com/earshot-app/earshot/internal/trace"
)

// FeedbackPayload is the envelope posted to the relay. Image is a data URL or
// empty for audio-sourced answers. Meta carries per-mode context the viewer
// renders verbatim.
type FeedbackPayload struct {
	Feedback  string         `json:"feedback"`
	Image     string         `json:"image"`
	Timestamp string         `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Relay posts answers and control messages to the relay server.
type Relay struct {
	baseURL string
	c       *http.Client
}

// NewRelay creates a relay client for the given base URL.
func NewRelay(baseURL string) *Relay {
	return &Relay{
		baseURL: strings.TrimRight(baseURL, "/"),
		c:       &http.Client{Transport: trace.NewTransport(nil)},
	}
}

// PostFeedback delivers an answer envelope.
func (r *Relay) PostFeedback(ctx context.Context, p FeedbackPayload) error {
	ctx, cancel := context.WithTimeout(ctx, FeedbackTimeout)
	defer cancel()
	return r.post(ctx, "/api/feedback", p)
}

// PostControl delivers a viewer control message, e.g. scroll.
func (r *Relay) PostControl(ctx context.Context, action string, delta int) error {
	ctx, cancel := context.WithTimeout(ctx, ControlTimeout)
	defer cancel()
	return r.post(ctx, "/api/control", map[string]any{"action": action, "delta": delta})
}

// Ping probes relay reachability.
func (r *Relay) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/healthz", nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "build relay probe")
	}
	resp, err := r.c.Do(req)
	if err != nil {
		return errors.Wrap(err, transportCode(err), "reach relay")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.CodeFromHTTPStatus(resp.StatusCode), "relay probe returned %d", resp.StatusCode)
	}
	return nil
}

func (r *Relay) post(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode relay payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "build relay request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.c.Do(req)
	if err != nil {
		return errors.Wrap(err, transportCode(err), "post to relay")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return errors.Newf(errors.CodeFromHTTPStatus(resp.StatusCode),
			"relay returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
