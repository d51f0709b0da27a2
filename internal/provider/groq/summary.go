package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/provider"
)

// GenerateSessionSummary produces the end-of-session summary. Average scores
// are computed here from the numeric rubric scores in the turn history and
// handed to the model as a fixed value to narrate around; they are never
// taken from model output. Malformed or schema-incomplete model output
// yields (nil, nil).
func (l *LLM) GenerateSessionSummary(ctx context.Context, req provider.SummaryRequest) (*provider.SessionSummary, error) {
	averageScores := computeAverageScores(req.TurnHistory)
	history := l.fitHistoryToBudget(req)
	prompt := buildSummaryPrompt(req, history, averageScores)

	content, err := l.complete(ctx, prompt, "Generate the session summary JSON now.", 0.5)
	if err != nil {
		return nil, nil
	}

	var summary provider.SessionSummary
	if err := json.Unmarshal([]byte(content), &summary); err != nil {
		return nil, nil
	}
	if summary.OverallAssessment == "" || len(summary.Strengths) == 0 || len(summary.Improvements) == 0 {
		return nil, nil
	}

	summary.AverageScores = averageScores
	return &summary, nil
}

func buildSummaryPrompt(req provider.SummaryRequest, history []provider.TurnRecord, averageScores map[string]float64) string {
	scoresJSON, _ := json.Marshal(averageScores)
	historyJSON, _ := json.Marshal(history)

	return fmt.Sprintf(
		"You are an interview coach summarizing a completed %s %s interview for role %s. "+
			`Return ONLY valid JSON with this exact schema: `+
			`{"overall_assessment": string <=60 words, `+
			`"strengths": array of 1-3 strings each <=20 words, `+
			`"improvements": array of 1-3 strings each <=20 words, `+
			`"recommended_actions": array of 1-3 strings each <=20 words, `+
			`"average_scores": object}. `+
			"Rubric dimensions are: %s. "+
			"Use supportive coaching tone. Do not include markdown. "+
			"Use this deterministic average_scores exactly as provided without changes: %s. "+
			"Turn history JSON: %s",
		req.Difficulty, req.InterviewType, req.Role,
		rubricLabels(), scoresJSON, historyJSON,
	)
}

// fitHistoryToBudget drops the oldest turn records until the serialized
// history fits the prompt token budget.
func (l *LLM) fitHistoryToBudget(req provider.SummaryRequest) []provider.TurnRecord {
	history := req.TurnHistory
	for len(history) > 1 {
		serialized, err := json.Marshal(history)
		if err != nil {
			break
		}
		if l.countTokens(string(serialized)) <= l.promptBudget {
			break
		}
		history = history[1:]
	}
	if len(history) < len(req.TurnHistory) {
		l.logger.Info("truncated turn history for summary prompt",
			slog.Int("original", len(req.TurnHistory)),
			slog.Int("kept", len(history)),
		)
	}
	return history
}

// computeAverageScores averages each rubric dimension's scores across the
// turn history, keyed by the normalized dimension label, rounded to two
// decimals.
func computeAverageScores(history []provider.TurnRecord) map[string]float64 {
	totals := make(map[string]int)
	counts := make(map[string]int)

	for _, turn := range history {
		if turn.CoachingFeedback == nil {
			continue
		}
		for _, dim := range turn.CoachingFeedback.Dimensions {
			label := normalizeLabel(dim.Label)
			if label == "" {
				continue
			}
			totals[label] += dim.Score
			counts[label]++
		}
	}

	if len(totals) == 0 {
		return map[string]float64{}
	}

	averages := make(map[string]float64, len(totals))
	for label, total := range totals {
		averages[label] = math.Round(float64(total)/float64(counts[label])*100) / 100
	}
	return averages
}

func normalizeLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}
