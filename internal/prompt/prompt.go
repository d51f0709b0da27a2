// Package prompt generates the opening prompt shown at session start.
package prompt

import (
	"strings"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
)

var openingTemplates = map[string]string{
	"behavioral":    "Great choice practicing behavioral questions for {role}! I'll ask you about past experiences. Take your time with each answer.",
	"technical":     "Let's work through some technical scenarios for {role}. Focus on explaining your thought process clearly.",
	"system_design": "Welcome! We'll discuss system design topics relevant to {role}. Think out loud as we explore the architecture together.",
}

const defaultTemplate = "Welcome! I'm here to help you practice for your {role} interview. Ready when you are."

// Opening returns a contextual welcome message for a new session.
func Opening(role, interviewType string, difficulty domain.Difficulty) string {
	template, ok := openingTemplates[strings.ToLower(interviewType)]
	if !ok {
		template = defaultTemplate
	}

	text := strings.ReplaceAll(template, "{role}", role)

	switch difficulty {
	case domain.DifficultyHard:
		text += " Since this is a hard interview, I'll be looking for depth and specific details."
	case domain.DifficultyEasy:
		text += " We'll start with some fundamental concepts."
	}
	return text
}
