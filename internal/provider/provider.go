// Package provider defines the contracts the orchestrator depends on for
// speech-to-text, follow-up generation, and text-to-speech. Adapters
// normalize upstream failures into *domain.TurnError; transport details
// never cross this boundary.
package provider

import (
	"context"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
)

// STT transcribes recorded audio.
type STT interface {
	// Transcribe converts audio bytes to text. Errors are *domain.TurnError
	// with stage "stt".
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// FollowUpRequest carries the full context for generating the next question.
type FollowUpRequest struct {
	Transcript     string
	Role           string
	InterviewType  string
	Difficulty     domain.Difficulty
	AskedQuestions []string
	// QuestionNumber is 1-indexed. A number past TotalQuestions signals the
	// final turn; the adapter responds with a closing acknowledgment instead
	// of a new question.
	QuestionNumber int
	TotalQuestions int
}

// FollowUpResponse is the structured output of one follow-up generation.
type FollowUpResponse struct {
	FollowUpQuestion string
	CoachingFeedback *domain.CoachingFeedback
	// Refused is set when the model explicitly declined on policy grounds,
	// as opposed to a transport or provider failure.
	Refused bool
}

// TurnRecord is one completed turn as fed into session summarization.
type TurnRecord struct {
	Question         string                   `json:"question"`
	Transcript       string                   `json:"transcript"`
	CoachingFeedback *domain.CoachingFeedback `json:"coaching_feedback,omitempty"`
}

// SummaryRequest carries a finished session's history for summarization.
type SummaryRequest struct {
	TurnHistory   []TurnRecord
	Role          string
	InterviewType string
	Difficulty    domain.Difficulty
}

// SessionSummary is the end-of-session coaching summary. AverageScores is
// computed deterministically from the turn history, never taken from model
// output.
type SessionSummary struct {
	OverallAssessment  string             `json:"overall_assessment"`
	Strengths          []string           `json:"strengths"`
	Improvements       []string           `json:"improvements"`
	RecommendedActions []string           `json:"recommended_actions,omitempty"`
	AverageScores      map[string]float64 `json:"average_scores"`
}

// LLM generates interview follow-ups and session summaries.
type LLM interface {
	// GenerateFollowUp produces the next question (or a closing
	// acknowledgment on the final turn) with optional coaching feedback.
	// Errors are *domain.TurnError with stage "llm".
	GenerateFollowUp(ctx context.Context, req FollowUpRequest) (*FollowUpResponse, error)

	// GenerateSessionSummary produces an end-of-session summary, or nil when
	// the model output is malformed or schema-incomplete.
	GenerateSessionSummary(ctx context.Context, req SummaryRequest) (*SessionSummary, error)
}

// TTS synthesizes speech from text.
type TTS interface {
	// Synthesize converts text to audio bytes. Errors are *domain.TurnError
	// with stage "tts".
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
