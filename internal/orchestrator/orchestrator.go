// Package orchestrator drives one interview turn through the pipeline:
// safety gate, speech-to-text, follow-up generation, and best-effort speech
// synthesis, with uniform stage-tagged error reporting and a single atomic
// session commit.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/provider"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/safety"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/ttscache"
)

// TurnInput is everything one turn needs. Session is the caller's isolated
// copy from the store; on success its TurnCount and LastActivityAt are
// mutated and the caller persists them.
type TurnInput struct {
	// Audio and MIMEType carry the recorded answer. Both are required unless
	// Transcript is supplied.
	Audio    []byte
	MIMEType string

	// Transcript, when non-blank, skips the STT stage. Supports retry paths
	// where re-transcription is unnecessary.
	Transcript string

	// RequestID tags errors and keys the TTS cache entry. Generated when
	// empty.
	RequestID string

	Session        *domain.SessionState
	Role           string
	InterviewType  string
	Difficulty     domain.Difficulty
	AskedQuestions []string
	QuestionCount  int
}

// Orchestrator is the per-turn stage machine. Stage order is fixed and never
// parallelized: the LLM input depends on STT output and the safety gate must
// precede the LLM call.
type Orchestrator struct {
	stt    provider.STT
	llm    provider.LLM
	tts    provider.TTS
	cache  *ttscache.Cache
	filter *safety.Filter
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithSafetyFilter installs the pre-LLM transcript gate.
func WithSafetyFilter(filter *safety.Filter) Option {
	return func(o *Orchestrator) {
		o.filter = filter
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an orchestrator over the given providers and TTS cache.
func New(stt provider.STT, llm provider.LLM, tts provider.TTS, cache *ttscache.Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stt:    stt,
		llm:    llm,
		tts:    tts,
		cache:  cache,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessTurn runs one turn to completion or to its first fatal stage error.
// On any error the session copy is left exactly as it was on entry; on
// success TurnCount is incremented exactly once and LastActivityAt
// refreshed. Retryable TTS failures are absorbed: the turn still commits
// with an empty TTSAudioURL.
func (o *Orchestrator) ProcessTurn(ctx context.Context, input TurnInput) (*domain.TurnResult, error) {
	start := time.Now()
	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	timings := map[string]float64{
		domain.TimingSTT: 0,
		domain.TimingLLM: 0,
		domain.TimingTTS: 0,
	}

	transcript, err := o.resolveTranscript(ctx, input, requestID, timings)
	if err != nil {
		return nil, err
	}

	if o.filter != nil {
		if verdict := o.filter.Check(transcript); !verdict.Safe {
			o.logger.Warn("transcript blocked by safety filter",
				slog.String("request_id", requestID),
				slog.String("reason", verdict.Reason),
			)
			return nil, domain.NewTurnError(domain.StageLLM, domain.CodeContentRefused,
				"Let's keep the interview professional. Please rephrase your answer.", false, nil).
				WithRequestID(requestID)
		}
	}

	llmStart := time.Now()
	followUp, err := o.llm.GenerateFollowUp(ctx, provider.FollowUpRequest{
		Transcript:     transcript,
		Role:           input.Role,
		InterviewType:  input.InterviewType,
		Difficulty:     input.Difficulty,
		AskedQuestions: input.AskedQuestions,
		QuestionNumber: input.Session.TurnCount + 1,
		TotalQuestions: input.QuestionCount,
	})
	timings[domain.TimingLLM] = millisSince(llmStart)
	if err != nil {
		return nil, domain.AsTurnError(err).WithRequestID(requestID)
	}

	if followUp.Refused {
		return nil, domain.NewTurnError(domain.StageLLM, domain.CodeContentRefused,
			followUp.FollowUpQuestion, false, nil).WithRequestID(requestID)
	}

	ttsAudioURL, err := o.synthesize(ctx, followUp.FollowUpQuestion, requestID, timings)
	if err != nil {
		return nil, err
	}

	// Commit: the single mutation of the session copy, after all stages
	// resolved. No failure path above reaches this point.
	input.Session.TurnCount++
	input.Session.LastActivityAt = o.now()

	timings[domain.TimingTotal] = millisSince(start)

	return &domain.TurnResult{
		Transcript:       transcript,
		AssistantText:    followUp.FollowUpQuestion,
		TTSAudioURL:      ttsAudioURL,
		CoachingFeedback: followUp.CoachingFeedback,
		Timings:          timings,
	}, nil
}

// resolveTranscript returns the supplied transcript, or transcribes the
// audio. Missing audio with no transcript is a non-retryable upload failure
// with no provider call made.
func (o *Orchestrator) resolveTranscript(ctx context.Context, input TurnInput, requestID string, timings map[string]float64) (string, error) {
	if strings.TrimSpace(input.Transcript) != "" {
		return input.Transcript, nil
	}

	if len(input.Audio) == 0 || input.MIMEType == "" {
		return "", domain.NewTurnError(domain.StageUpload, domain.CodeInvalidAudio,
			"Audio data and MIME type are required.", false, nil).WithRequestID(requestID)
	}

	sttStart := time.Now()
	transcript, err := o.stt.Transcribe(ctx, input.Audio, input.MIMEType)
	timings[domain.TimingSTT] = millisSince(sttStart)
	if err != nil {
		return "", domain.AsTurnError(err).WithRequestID(requestID)
	}
	return transcript, nil
}

// synthesize runs the best-effort TTS stage. Retryable failures are logged
// and absorbed; non-retryable ones indicate a configuration problem and
// propagate.
func (o *Orchestrator) synthesize(ctx context.Context, text, requestID string, timings map[string]float64) (string, error) {
	ttsStart := time.Now()
	audio, err := o.tts.Synthesize(ctx, text)
	timings[domain.TimingTTS] = millisSince(ttsStart)
	if err != nil {
		te := domain.AsTurnError(err)
		if !te.Retryable {
			return "", te.WithRequestID(requestID)
		}
		o.logger.Warn("tts synthesis failed, degrading turn without audio",
			slog.String("request_id", requestID),
			slog.String("code", string(te.Code)),
			slog.String("error", te.Error()),
		)
		return "", nil
	}

	o.cache.Store(requestID, audio)
	return "/tts/" + requestID, nil
}

func millisSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
