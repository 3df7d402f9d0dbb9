// Package clients provides typed clients for the agent's collaborators:
// the transcription service, the optional diarizer, the OpenAI-compatible
// reasoning backend, and the relay sink.
package clients

import (
	"net/url"

	"github.com/earshot-app/earshot/internal/errors"
)

// transportCode classifies an http.Client.Do failure.
func transportCode(err error) errors.Code {
	if uerr, ok := err.(*url.Error); ok && uerr.Timeout() {
		return errors.CodeTimeout
	}
	return errors.CodeNetwork
}
