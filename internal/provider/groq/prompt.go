package groq

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/provider"
)

// rubricDimension defines one coaching axis used in prompt construction.
type rubricDimension struct {
	Label       string
	Description string
}

// rubricDimensions is the fixed rubric the coach scores against, in order.
var rubricDimensions = []rubricDimension{
	{"Clarity", "Clear articulation of ideas"},
	{"Relevance", "Answer directly addresses the question and role"},
	{"Structure", "Logical flow (e.g., STAR method)"},
	{"Filler Words", "Minimal use of fillers like 'um', 'uh', 'like'"},
}

func rubricLabels() string {
	labels := make([]string, len(rubricDimensions))
	for i, d := range rubricDimensions {
		labels[i] = d.Label
	}
	return strings.Join(labels, ", ")
}

func schemaInstruction() string {
	fields := make([]string, len(rubricDimensions))
	for i, d := range rubricDimensions {
		fields[i] = fmt.Sprintf(`{"label": %q, "score": 1-5 integer, "tip": <=25 words}`, d.Label)
	}
	return fmt.Sprintf(
		`Return ONLY valid JSON with this exact schema: `+
			`{"follow_up_question": string, "coaching_feedback": {"dimensions": [%s], "summary_tip": <=30 words}}. `+
			`Use these exact rubric labels in order: %s.`,
		strings.Join(fields, ", "), rubricLabels(),
	)
}

// buildFollowUpPrompt constructs the system prompt for one turn. Question
// numbering past the total flips the prompt to a closing acknowledgment.
func buildFollowUpPrompt(req provider.FollowUpRequest) string {
	var askedSection strings.Builder
	if len(req.AskedQuestions) > 0 {
		askedSection.WriteString("\n\nPreviously asked questions (DO NOT repeat these):")
		for _, q := range req.AskedQuestions {
			askedSection.WriteString("\n- " + q)
		}
	}

	if req.QuestionNumber > req.TotalQuestions {
		return fmt.Sprintf(
			"You are an interview coach conducting a %s %s interview for the role of %s. "+
				"This is the FINAL question (question %d of %d). The candidate just answered. "+
				"Provide a brief, positive closing acknowledgment of their answer. "+
				"Do NOT ask another question. Keep it to 1-2 sentences. %s%s",
			req.Difficulty, req.InterviewType, req.Role,
			req.QuestionNumber, req.TotalQuestions,
			schemaInstruction(), askedSection.String(),
		)
	}

	return fmt.Sprintf(
		"You are an interview coach conducting a %s %s interview for the role of %s. "+
			"This is question %d of %d. Based on the candidate's answer, generate a relevant "+
			"follow-up question. The question should be natural, conversational, and "+
			"appropriate for the difficulty level. %s "+
			"Keep coaching tone supportive, specific, and skimmable.%s",
		req.Difficulty, req.InterviewType, req.Role,
		req.QuestionNumber, req.TotalQuestions,
		schemaInstruction(), askedSection.String(),
	)
}

// modelFollowUp is the JSON shape the model is instructed to return.
type modelFollowUp struct {
	FollowUpQuestion string          `json:"follow_up_question"`
	CoachingFeedback json.RawMessage `json:"coaching_feedback"`
	Refused          bool            `json:"refused"`
}

// parseFollowUp interprets model output, falling back to treating the whole
// content as the question when it is not the expected JSON.
func parseFollowUp(content string) *provider.FollowUpResponse {
	var parsed modelFollowUp
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return &provider.FollowUpResponse{FollowUpQuestion: content}
	}

	question := strings.TrimSpace(parsed.FollowUpQuestion)
	if question == "" {
		question = content
	}

	resp := &provider.FollowUpResponse{
		FollowUpQuestion: question,
		Refused:          parsed.Refused,
	}

	if len(parsed.CoachingFeedback) > 0 && string(parsed.CoachingFeedback) != "null" {
		var feedback domain.CoachingFeedback
		if err := json.Unmarshal(parsed.CoachingFeedback, &feedback); err == nil {
			if err := feedback.Validate(); err == nil {
				resp.CoachingFeedback = &feedback
			}
		}
	}

	return resp
}
