// Package deepgram provides the Deepgram STT (nova-2) and TTS (aura-2)
// adapters used by the turn pipeline.
package deepgram

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.deepgram.com"
	defaultTimeout = 30 * time.Second
)

// isTimeout reports whether err is a deadline or network timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func trimBaseURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/")
}

func authHeader(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Token "+apiKey)
}
