// Package domain provides the session model, turn result types, and the
// canonical error taxonomy shared across the pipeline.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Stage identifies the pipeline stage an error originated from.
type Stage string

const (
	StageUpload  Stage = "upload"
	StageSTT     Stage = "stt"
	StageLLM     Stage = "llm"
	StageTTS     Stage = "tts"
	StageUnknown Stage = "unknown"
)

// Code identifies a specific failure within a stage. The set is closed:
// every failure path in the pipeline maps to exactly one of these.
type Code string

const (
	// Upload stage
	CodeInvalidAudio  Code = "invalid_audio"
	CodeFileTooLarge  Code = "file_too_large"
	CodeUploadTimeout Code = "upload_timeout"

	// STT stage
	CodeSTTTimeout         Code = "stt_timeout"
	CodeSTTProviderError   Code = "stt_provider_error"
	CodeSTTRateLimit       Code = "stt_rate_limit"
	CodeSTTEmptyTranscript Code = "stt_empty_transcript"
	CodeSTTAuthError       Code = "stt_auth_error"
	CodeSTTBadRequest      Code = "stt_bad_request"

	// LLM stage
	CodeLLMTimeout       Code = "llm_timeout"
	CodeLLMProviderError Code = "llm_provider_error"
	CodeLLMRateLimit     Code = "llm_rate_limit"
	CodeLLMContentFilter Code = "llm_content_filter"
	CodeNullResponse     Code = "null_response"
	CodeEmptyResponse    Code = "empty_response"
	CodeContentRefused   Code = "content_refused"

	// TTS stage
	CodeTTSTimeout       Code = "tts_timeout"
	CodeTTSProviderError Code = "tts_provider_error"
	CodeTTSRateLimit     Code = "tts_rate_limit"
	CodeTTSAuthError     Code = "tts_auth_error"
	CodeTTSBadRequest    Code = "tts_bad_request"

	// Request-level codes used by the route layer
	CodeInvalidToken      Code = "invalid_token"
	CodeSessionIDMismatch Code = "session_id_mismatch"
	CodeSessionNotFound   Code = "session_not_found"
	CodeTTSAudioNotFound  Code = "tts_audio_not_found"
)

// TurnError is the unit of failure reporting across the turn pipeline.
// Provider-specific failures are normalized into this shape at the adapter
// boundary and never leak in their original form.
type TurnError struct {
	// Stage is the pipeline stage the error is attributed to.
	Stage Stage

	// Code is the machine-readable failure code.
	Code Code

	// MessageSafe is a human-readable message with no internal detail,
	// suitable for returning to the client.
	MessageSafe string

	// Retryable tells the client whether retrying the same request may
	// succeed.
	Retryable bool

	// RequestID is the id of the request the error occurred in, when known.
	RequestID string

	// Err is the underlying cause, if any.
	Err error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %v", e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s", e.Stage, e.Code, e.MessageSafe)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// WithRequestID returns a copy of the error tagged with the given request id.
func (e *TurnError) WithRequestID(requestID string) *TurnError {
	clone := *e
	clone.RequestID = requestID
	return &clone
}

// HTTPStatusCode maps the error onto an HTTP status for the route layer.
func (e *TurnError) HTTPStatusCode() int {
	switch e.Code {
	case CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeSessionIDMismatch:
		return http.StatusForbidden
	case CodeSessionNotFound, CodeTTSAudioNotFound:
		return http.StatusNotFound
	case CodeInvalidAudio, CodeFileTooLarge:
		return http.StatusUnprocessableEntity
	case CodeSTTRateLimit, CodeLLMRateLimit, CodeTTSRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NewTurnError creates a TurnError with an explicit cause.
func NewTurnError(stage Stage, code Code, messageSafe string, retryable bool, err error) *TurnError {
	return &TurnError{
		Stage:       stage,
		Code:        code,
		MessageSafe: messageSafe,
		Retryable:   retryable,
		Err:         err,
	}
}

// AsTurnError unwraps err into a *TurnError. Errors that are not part of the
// taxonomy are wrapped as unknown, non-retryable.
func AsTurnError(err error) *TurnError {
	var te *TurnError
	if errors.As(err, &te) {
		return te
	}
	return &TurnError{
		Stage:       StageUnknown,
		Code:        "internal_error",
		MessageSafe: "An unexpected error occurred. Please try again.",
		Retryable:   false,
		Err:         err,
	}
}
