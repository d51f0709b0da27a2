package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/orchestrator"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/server"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/session"
)

// TurnData is the turn submission response payload.
type TurnData struct {
	Transcript       string                   `json:"transcript"`
	AssistantText    string                   `json:"assistant_text,omitempty"`
	TTSAudioURL      string                   `json:"tts_audio_url,omitempty"`
	CoachingFeedback *domain.CoachingFeedback `json:"coaching_feedback,omitempty"`
	Timings          map[string]float64       `json:"timings"`
	IsComplete       bool                     `json:"is_complete"`
	QuestionNumber   int                      `json:"question_number"`
	TotalQuestions   int                      `json:"total_questions"`
}

func (h *Handlers) HandleTurn(w http.ResponseWriter, r *http.Request) {
	uploadStart := time.Now()
	requestID := server.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, requestID, http.StatusUnprocessableEntity, &APIError{
				Stage:       domain.StageUpload,
				Code:        domain.CodeFileTooLarge,
				MessageSafe: "Audio file is too large.",
				Retryable:   true,
			})
			return
		}
		writeError(w, requestID, http.StatusUnprocessableEntity, &APIError{
			Stage:       domain.StageUpload,
			Code:        domain.CodeInvalidAudio,
			MessageSafe: "Request must be multipart form data with an audio file.",
		})
		return
	}

	sessionID := r.FormValue("session_id")
	if _, ok := h.authorizeSession(w, r, domain.StageUpload, sessionID); !ok {
		return
	}

	state, ok := h.store.Get(sessionID)
	if !ok {
		writeError(w, requestID, http.StatusNotFound, &APIError{
			Stage:       domain.StageUpload,
			Code:        domain.CodeSessionNotFound,
			MessageSafe: "Session not found or expired",
		})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, requestID, http.StatusUnprocessableEntity, &APIError{
			Stage:       domain.StageUpload,
			Code:        domain.CodeInvalidAudio,
			MessageSafe: "Audio file is required.",
		})
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "audio/") {
		writeError(w, requestID, http.StatusUnprocessableEntity, &APIError{
			Stage:       domain.StageUpload,
			Code:        domain.CodeInvalidAudio,
			MessageSafe: "Audio file must have audio/* MIME type",
		})
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil || len(audio) == 0 {
		writeError(w, requestID, http.StatusUnprocessableEntity, &APIError{
			Stage:       domain.StageUpload,
			Code:        domain.CodeInvalidAudio,
			MessageSafe: "Audio file is empty",
		})
		return
	}

	uploadMS := float64(time.Since(uploadStart)) / float64(time.Millisecond)

	result, err := h.turns.ProcessTurn(r.Context(), orchestrator.TurnInput{
		Audio:          audio,
		MIMEType:       mimeType,
		RequestID:      requestID,
		Session:        state,
		Role:           state.Role,
		InterviewType:  state.InterviewType,
		Difficulty:     state.Difficulty,
		AskedQuestions: state.AskedQuestions,
		QuestionCount:  state.QuestionCount,
	})
	if err != nil {
		te := domain.AsTurnError(err)
		h.logger.Warn("turn processing failed",
			slog.String("request_id", requestID),
			slog.String("session_id", sessionID),
			slog.String("stage", string(te.Stage)),
			slog.String("code", string(te.Code)),
		)
		writeTurnError(w, requestID, te)
		return
	}

	askedQuestions := state.AskedQuestions
	if result.AssistantText != "" {
		askedQuestions = append(askedQuestions, result.AssistantText)
	}

	isComplete := state.TurnCount >= state.QuestionCount
	status := state.Status
	if isComplete {
		status = domain.StatusCompleted
	}

	h.store.Update(sessionID, session.Patch{
		TurnCount:      &state.TurnCount,
		AskedQuestions: askedQuestions,
		Status:         &status,
		LastActivityAt: &state.LastActivityAt,
	})

	result.Timings[domain.TimingUpload] = uploadMS

	writeData(w, requestID, TurnData{
		Transcript:       result.Transcript,
		AssistantText:    result.AssistantText,
		TTSAudioURL:      result.TTSAudioURL,
		CoachingFeedback: result.CoachingFeedback,
		Timings:          result.Timings,
		IsComplete:       isComplete,
		QuestionNumber:   state.TurnCount,
		TotalQuestions:   state.QuestionCount,
	})
}

func (h *Handlers) HandleTTSFetch(w http.ResponseWriter, r *http.Request) {
	requestID := server.GetRequestID(r.Context())
	ttsRequestID := chi.URLParam(r, "requestID")

	// Token-checked but deliberately not tied to the session that produced
	// the audio: any valid session token may fetch.
	if _, ok := h.authorizeSession(w, r, domain.StageTTS, ""); !ok {
		return
	}

	audio, ok := h.cache.Get(ttsRequestID)
	if !ok {
		writeError(w, requestID, http.StatusNotFound, &APIError{
			Stage:       domain.StageTTS,
			Code:        domain.CodeTTSAudioNotFound,
			MessageSafe: "TTS audio not found or has expired",
		})
		return
	}

	h.logger.Info("tts audio served",
		slog.String("request_id", requestID),
		slog.String("tts_request_id", ttsRequestID),
		slog.Int("bytes", len(audio)),
	)

	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(audio)
}
