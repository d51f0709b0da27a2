// Package api implements the HTTP handlers and the response envelope shared
// by every endpoint.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
)

// APIError is the error half of the response envelope. It exposes only the
// stage-tagged taxonomy, never internal diagnostics.
type APIError struct {
	Stage       domain.Stage `json:"stage"`
	Code        domain.Code  `json:"code"`
	MessageSafe string       `json:"message_safe"`
	Retryable   bool         `json:"retryable"`
}

// Envelope wraps every JSON response: exactly one of Data and Error is set.
type Envelope struct {
	Data      any       `json:"data"`
	Error     *APIError `json:"error"`
	RequestID string    `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, status int, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

func writeData(w http.ResponseWriter, requestID string, data any) {
	writeJSON(w, http.StatusOK, Envelope{Data: data, RequestID: requestID})
}

func writeError(w http.ResponseWriter, requestID string, status int, apiErr *APIError) {
	writeJSON(w, status, Envelope{Error: apiErr, RequestID: requestID})
}

// writeTurnError maps a pipeline error onto the envelope, deriving the HTTP
// status from the taxonomy.
func writeTurnError(w http.ResponseWriter, requestID string, err *domain.TurnError) {
	writeError(w, requestID, err.HTTPStatusCode(), &APIError{
		Stage:       err.Stage,
		Code:        err.Code,
		MessageSafe: err.MessageSafe,
		Retryable:   err.Retryable,
	})
}
