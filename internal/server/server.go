package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/earshot-app/earshot/internal/config"
	"github.com/earshot-app/earshot/internal/metrics"
	"github.com/earshot-app/earshot/internal/trace"
)

// FeedbackRequest is the envelope the agent posts.
type FeedbackRequest struct {
	Feedback  string         `json:"feedback"`
	Image     string         `json:"image"`
	Timestamp string         `json:"timestamp"`
	Meta      map[string]any `json:"meta"`
}

// FeedbackPayload is the stored and broadcast form of a feedback post.
type FeedbackPayload struct {
	ID            string         `json:"id"`
	Timestamp     string         `json:"timestamp"`
	Feedback      string         `json:"feedback"`
	ScreenshotID  string         `json:"screenshotId"`
	ScreenshotURL string         `json:"screenshotUrl"`
	Meta          map[string]any `json:"meta"`
}

type controlRequest struct {
	Action string `json:"action"`
	Delta  int    `json:"delta"`
}

// viewer is one connected websocket client. Messages queue on out; the
// writer goroutine is the only writer to the connection.
type viewer struct {
	conn    *websocket.Conn
	out     chan any
	limiter rateLimiter
}

// rateLimiter tracks message timestamps in a sliding window.
type rateLimiter struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// allow records the message timestamp when under the limit.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

var dataURLPattern = regexp.MustCompile(`^data:image/(png|jpeg);base64,(.+)$`)

// Server holds the latest payload and the connected viewers.
type Server struct {
	cfg *config.Relay

	mu      sync.RWMutex
	latest  *FeedbackPayload
	viewers map[*viewer]struct{}
}

// New creates a relay server and its upload directory.
func New(cfg *config.Relay) (*Server, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Server{
		cfg:     cfg,
		viewers: make(map[*viewer]struct{}),
	}, nil
}

// Handler returns the relay's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("POST /api/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/latest", s.handleLatest)
	mux.HandleFunc("POST /api/control", s.handleControl)
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/qr", s.handleQR)

	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/",
		cacheControlFileServer(s.cfg.UploadDir, UploadCacheSeconds)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.corsMiddleware(trace.Middleware(mux))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	log := trace.Logger(r.Context())

	var body FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	mode, _ := body.Meta["mode"].(string)
	isAudio := mode == "audio"

	if strings.TrimSpace(body.Feedback) == "" {
		http.Error(w, "feedback is required", http.StatusBadRequest)
		return
	}
	if body.Image == "" && !isAudio {
		http.Error(w, "image is required", http.StatusBadRequest)
		return
	}

	filename := ""
	if body.Image != "" {
		var err error
		filename, err = persistScreenshot(s.cfg.UploadDir, body.Image)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid image: %v", err), http.StatusBadRequest)
			return
		}
	}

	if body.Timestamp == "" {
		body.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if body.Meta == nil {
		body.Meta = map[string]any{}
	}

	screenshotURL := ""
	if filename != "" {
		screenshotURL = "/uploads/" + filename
	}

	payload := &FeedbackPayload{
		ID:            uuid.NewString(),
		Timestamp:     body.Timestamp,
		Feedback:      body.Feedback,
		ScreenshotID:  filename,
		ScreenshotURL: screenshotURL,
		Meta:          body.Meta,
	}

	s.mu.Lock()
	s.latest = payload
	s.mu.Unlock()
	s.broadcast(payload)

	if mode == "" {
		mode = "unknown"
	}
	metrics.RelayFeedback.WithLabelValues(mode).Inc()
	log.Info("feedback accepted", "id", payload.ID, "mode", mode, "screenshot", filename != "")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("failed to write feedback response", "error", err)
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	if latest == nil {
		http.Error(w, "no feedback yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(latest); err != nil {
		trace.Logger(r.Context()).Error("failed to encode latest payload", "error", err)
	}
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var body controlRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.Action != "scroll" {
		http.Error(w, "unsupported action", http.StatusBadRequest)
		return
	}
	if body.Delta == 0 {
		http.Error(w, "delta is required", http.StatusBadRequest)
		return
	}
	if body.Delta > ScrollDeltaLimit {
		body.Delta = ScrollDeltaLimit
	}
	if body.Delta < -ScrollDeltaLimit {
		body.Delta = -ScrollDeltaLimit
	}

	msg := map[string]any{
		"type":      "control",
		"action":    body.Action,
		"delta":     body.Delta,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	s.broadcast(msg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		trace.Logger(r.Context()).Error("failed to write control response", "error", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{OriginPatterns: []string{s.cfg.ClientOrigin}}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	v := &viewer{conn: conn, out: make(chan any, ViewerBuffer)}

	s.mu.Lock()
	s.viewers[v] = struct{}{}
	latest := s.latest
	s.mu.Unlock()
	metrics.RelayViewers.Inc()

	defer func() {
		s.mu.Lock()
		delete(s.viewers, v)
		s.mu.Unlock()
		metrics.RelayViewers.Dec()
	}()

	log := trace.Logger(r.Context())
	log.Info("viewer connected", "remote", r.RemoteAddr)

	if latest != nil {
		v.offer(latest)
	}

	writerDone := make(chan struct{})
	go v.writeLoop(writerDone)
	defer close(writerDone)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(r.Context(), conn, &msg); err != nil {
			log.Debug("viewer disconnected", "error", err)
			return
		}
		if !v.limiter.allow() {
			log.Warn("viewer rate limit exceeded", "remote", r.RemoteAddr)
			v.offer(map[string]any{"type": "error", "message": "rate limit exceeded"})
		}
		// Inbound viewer messages carry no commands today; control flows
		// through POST /api/control.
	}
}

// broadcast offers a message to every viewer without blocking.
func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for v := range s.viewers {
		v.offer(msg)
	}
}

// offer queues a message, dropping it when the viewer is backed up.
func (v *viewer) offer(msg any) {
	select {
	case v.out <- msg:
	default:
		slog.Debug("viewer queue full, dropping message")
	}
}

// writeLoop is the single writer for one connection.
func (v *viewer) writeLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-v.out:
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			err := wsjson.Write(ctx, v.conn, msg)
			cancel()
			if err != nil {
				slog.Debug("viewer write failed", "error", err)
				return
			}
		}
	}
}

// persistScreenshot decodes a PNG/JPEG data URL into the upload dir and
// returns the stored filename.
func persistScreenshot(dir, dataURL string) (string, error) {
	matches := dataURLPattern.FindStringSubmatch(dataURL)
	if len(matches) != 3 {
		return "", fmt.Errorf("expected data:image/(png|jpeg);base64,... format")
	}
	ext := matches[1]
	if ext == "jpeg" {
		ext = "jpg"
	}

	decoded, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	filename := fmt.Sprintf("%d-%s.%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
	if err := os.WriteFile(filepath.Join(dir, filename), decoded, 0o644); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	return filename, nil
}

func cacheControlFileServer(dir string, maxAge int) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
		fs.ServeHTTP(w, r)
	})
}
