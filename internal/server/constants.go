// Package server implements the relay: it accepts answer payloads from
// the agent and fans them out to connected viewers.
package server

import "time"

// Relay configuration constants
const (
	// Per-connection inbound message rate limiting
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// ViewerBuffer bounds each viewer's outbound queue; slow viewers
	// drop messages instead of stalling the broadcast.
	ViewerBuffer = 8

	// WriteTimeout bounds one websocket write.
	WriteTimeout = 5 * time.Second

	// ScrollDeltaLimit clamps control scroll deltas.
	ScrollDeltaLimit = 2000

	// QRSize is the generated QR code edge in pixels.
	QRSize = 256

	// UploadCacheSeconds is the max-age for served screenshots.
	UploadCacheSeconds = 300
)
