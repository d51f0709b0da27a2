package domain

import (
	"fmt"
	"strings"
)

// Timing map keys reported in TurnResult.Timings, in milliseconds.
const (
	TimingUpload = "upload_ms"
	TimingSTT    = "stt_ms"
	TimingLLM    = "llm_ms"
	TimingTTS    = "tts_ms"
	TimingTotal  = "total_ms"
)

const (
	maxTipWords        = 25
	maxSummaryTipWords = 30
	minScore           = 1
	maxScore           = 5
)

// CoachingDimension is one rubric axis with a score and a short tip.
type CoachingDimension struct {
	Label string `json:"label"`
	Score int    `json:"score"`
	Tip   string `json:"tip"`
}

// Validate checks the score range and tip word limit.
func (d *CoachingDimension) Validate() error {
	if d.Score < minScore || d.Score > maxScore {
		return fmt.Errorf("dimension %q: score %d out of range [%d,%d]", d.Label, d.Score, minScore, maxScore)
	}
	if wordCount(d.Tip) > maxTipWords {
		return fmt.Errorf("dimension %q: tip exceeds %d words", d.Label, maxTipWords)
	}
	return nil
}

// CoachingFeedback is structured per-turn feedback aligned to the rubric.
type CoachingFeedback struct {
	Dimensions []CoachingDimension `json:"dimensions"`
	SummaryTip string              `json:"summary_tip"`
}

// Validate checks every dimension and the summary tip word limit.
func (f *CoachingFeedback) Validate() error {
	if len(f.Dimensions) == 0 {
		return fmt.Errorf("coaching feedback has no dimensions")
	}
	for i := range f.Dimensions {
		if err := f.Dimensions[i].Validate(); err != nil {
			return err
		}
	}
	if wordCount(f.SummaryTip) > maxSummaryTipWords {
		return fmt.Errorf("summary_tip exceeds %d words", maxSummaryTipWords)
	}
	return nil
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// TurnResult is the ephemeral value returned by one orchestrated turn.
// It is consumed once by the caller to build a response and decide session
// mutations; it is never persisted.
type TurnResult struct {
	Transcript       string
	AssistantText    string
	TTSAudioURL      string
	CoachingFeedback *CoachingFeedback
	Timings          map[string]float64
}
