package domain

import (
	"slices"
	"time"
)

// Status is the lifecycle state of an interview session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Difficulty is the configured interview difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ValidDifficulty reports whether d is one of the accepted difficulty levels.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// SessionState is the authoritative record for one interview session.
// The session store owns the canonical instance; every read and write
// crosses a copy boundary so callers never hold a reference into the table.
type SessionState struct {
	SessionID     string
	Role          string
	InterviewType string
	Difficulty    Difficulty
	QuestionCount int

	CreatedAt      time.Time
	LastActivityAt time.Time

	TurnCount      int
	AskedQuestions []string
	Status         Status
}

// Clone returns a deep copy of the session state.
func (s *SessionState) Clone() *SessionState {
	clone := *s
	clone.AskedQuestions = slices.Clone(s.AskedQuestions)
	return &clone
}
