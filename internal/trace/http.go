// Package trace - HTTP middleware and client propagation.
package trace

import (
	"net/http"
)

// Middleware extracts or creates trace context for HTTP requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := extractFromHeaders(r)
		ctx := WithContext(r.Context(), tc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractFromHeaders gets trace context from HTTP headers.
func extractFromHeaders(r *http.Request) Context {
	tc := Context{
		TraceID:      r.Header.Get(TraceIDKey),
		ParentSpanID: r.Header.Get(SpanIDKey),
		SpanID:       generateSpanID(),
	}
	if tc.TraceID == "" {
		tc.TraceID = generateTraceID()
	}
	return tc
}

// InjectHeaders writes the request context's trace IDs into outgoing headers,
// creating a fresh trace when the context carries none.
func InjectHeaders(r *http.Request) {
	tc, ok := FromContext(r.Context())
	if !ok {
		tc = New()
	}
	for k, v := range tc.ToMap() {
		r.Header.Set(k, v)
	}
}

// Transport is an http.RoundTripper that injects trace headers into every
// outgoing request.
type Transport struct {
	Base http.RoundTripper
}

// NewTransport wraps base with trace propagation. A nil base uses
// http.DefaultTransport.
func NewTransport(base http.RoundTripper) *Transport {
	return &Transport{Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	// Per RoundTripper contract the request must not be mutated.
	clone := r.Clone(r.Context())
	InjectHeaders(clone)
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
