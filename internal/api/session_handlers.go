package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/prompt"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/server"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/session"
)

const (
	defaultQuestionCount = 5
	minQuestionCount     = 1
	maxQuestionCount     = 10
)

// SessionStartRequest is the POST /session/start body.
type SessionStartRequest struct {
	Role          string            `json:"role"`
	InterviewType string            `json:"interview_type"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	QuestionCount int               `json:"question_count"`
}

func (r *SessionStartRequest) validate() string {
	if r.Role == "" {
		return "role is required"
	}
	if r.InterviewType == "" {
		return "interview_type is required"
	}
	if !domain.ValidDifficulty(r.Difficulty) {
		return "difficulty must be one of: easy, medium, hard"
	}
	if r.QuestionCount == 0 {
		r.QuestionCount = defaultQuestionCount
	}
	if r.QuestionCount < minQuestionCount || r.QuestionCount > maxQuestionCount {
		return "question_count must be between 1 and 10"
	}
	return ""
}

// SessionData is the session-start response payload.
type SessionData struct {
	SessionID     string `json:"session_id"`
	SessionToken  string `json:"session_token"`
	OpeningPrompt string `json:"opening_prompt"`
}

func (h *Handlers) HandleSessionStart(w http.ResponseWriter, r *http.Request) {
	requestID := server.GetRequestID(r.Context())

	var req SessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, requestID, http.StatusUnprocessableEntity, &APIError{
			Stage:       domain.StageUnknown,
			Code:        "invalid_request",
			MessageSafe: "Request body must be valid JSON",
		})
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, requestID, http.StatusUnprocessableEntity, &APIError{
			Stage:       domain.StageUnknown,
			Code:        "invalid_request",
			MessageSafe: msg,
		})
		return
	}

	state := h.store.Create(session.CreateRequest{
		Role:          req.Role,
		InterviewType: req.InterviewType,
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
	})

	h.logger.Info("session created",
		slog.String("request_id", requestID),
		slog.String("session_id", state.SessionID),
		slog.String("interview_type", state.InterviewType),
		slog.Int("question_count", state.QuestionCount),
	)

	writeData(w, requestID, SessionData{
		SessionID:     state.SessionID,
		SessionToken:  h.tokens.Generate(state.SessionID),
		OpeningPrompt: prompt.Opening(req.Role, req.InterviewType, req.Difficulty),
	})
}

// DeleteResult is the session-delete response payload.
type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

func (h *Handlers) HandleSessionDelete(w http.ResponseWriter, r *http.Request) {
	requestID := server.GetRequestID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if _, ok := h.authorizeSession(w, r, domain.StageUnknown, sessionID); !ok {
		return
	}

	if !h.store.Delete(sessionID) {
		writeError(w, requestID, http.StatusNotFound, &APIError{
			Stage:       domain.StageUnknown,
			Code:        domain.CodeSessionNotFound,
			MessageSafe: "Session not found or already deleted.",
		})
		return
	}

	// Off the request path; correctness never depends on it.
	go func() {
		removed := h.cache.Cleanup()
		h.logger.Info("tts cache cleanup after session delete",
			slog.String("session_id", sessionID),
			slog.Int("removed", removed),
		)
	}()

	writeData(w, requestID, DeleteResult{Deleted: true})
}
