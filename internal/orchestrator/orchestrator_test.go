package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/provider"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/safety"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/ttscache"
)

type fakeSTT struct {
	transcript string
	err        error
	calls      int
	gotMIME    string
}

func (f *fakeSTT) Transcribe(_ context.Context, _ []byte, mimeType string) (string, error) {
	f.calls++
	f.gotMIME = mimeType
	if f.err != nil {
		return "", f.err
	}
	return f.transcript, nil
}

type fakeLLM struct {
	resp    *provider.FollowUpResponse
	err     error
	calls   int
	lastReq provider.FollowUpRequest
}

func (f *fakeLLM) GenerateFollowUp(_ context.Context, req provider.FollowUpRequest) (*provider.FollowUpResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeLLM) GenerateSessionSummary(context.Context, provider.SummaryRequest) (*provider.SessionSummary, error) {
	return nil, nil
}

type fakeTTS struct {
	audio []byte
	err   error
	calls int
}

func (f *fakeTTS) Synthesize(context.Context, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

func testSession(turnCount int) *domain.SessionState {
	return &domain.SessionState{
		SessionID:      "sess-1",
		Role:           "Software Engineer",
		InterviewType:  "behavioral",
		Difficulty:     domain.DifficultyMedium,
		QuestionCount:  5,
		TurnCount:      turnCount,
		LastActivityAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Status:         domain.StatusActive,
	}
}

func testInput(sess *domain.SessionState) TurnInput {
	return TurnInput{
		Audio:         []byte("audio-bytes"),
		MIMEType:      "audio/webm",
		RequestID:     "req-1",
		Session:       sess,
		Role:          sess.Role,
		InterviewType: sess.InterviewType,
		Difficulty:    sess.Difficulty,
		QuestionCount: sess.QuestionCount,
	}
}

func newOrchestrator(stt *fakeSTT, llm *fakeLLM, tts *fakeTTS, opts ...Option) (*Orchestrator, *ttscache.Cache) {
	cache := ttscache.New()
	return New(stt, llm, tts, cache, opts...), cache
}

func TestProcessTurn_Success(t *testing.T) {
	stt := &fakeSTT{transcript: "I led a project"}
	llm := &fakeLLM{resp: &provider.FollowUpResponse{FollowUpQuestion: "Tell me more about the team."}}
	tts := &fakeTTS{audio: []byte("mp3-bytes")}

	sess := testSession(0)
	before := sess.LastActivityAt

	o, cache := newOrchestrator(stt, llm, tts)
	result, err := o.ProcessTurn(context.Background(), testInput(sess))
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}

	if result.Transcript != "I led a project" {
		t.Errorf("Transcript = %q", result.Transcript)
	}
	if result.AssistantText != "Tell me more about the team." {
		t.Errorf("AssistantText = %q", result.AssistantText)
	}
	if result.TTSAudioURL != "/tts/req-1" {
		t.Errorf("TTSAudioURL = %q", result.TTSAudioURL)
	}
	if sess.TurnCount != 1 {
		t.Errorf("TurnCount = %d, want 1", sess.TurnCount)
	}
	if !sess.LastActivityAt.After(before) {
		t.Error("LastActivityAt not refreshed")
	}
	if audio, ok := cache.Get("req-1"); !ok || string(audio) != "mp3-bytes" {
		t.Errorf("cache entry = %q, %v", audio, ok)
	}
	if stt.gotMIME != "audio/webm" {
		t.Errorf("STT mime = %q", stt.gotMIME)
	}
}

func TestProcessTurn_QuestionNumberingPassThrough(t *testing.T) {
	llm := &fakeLLM{resp: &provider.FollowUpResponse{FollowUpQuestion: "Thanks, that wraps it up."}}

	// Last question answered: number 6 of 5 goes through untouched.
	sess := testSession(5)
	o, _ := newOrchestrator(&fakeSTT{transcript: "final answer"}, llm, &fakeTTS{audio: []byte("a")})
	if _, err := o.ProcessTurn(context.Background(), testInput(sess)); err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}

	if llm.lastReq.QuestionNumber != 6 {
		t.Errorf("QuestionNumber = %d, want 6", llm.lastReq.QuestionNumber)
	}
	if llm.lastReq.TotalQuestions != 5 {
		t.Errorf("TotalQuestions = %d, want 5", llm.lastReq.TotalQuestions)
	}
}

func TestProcessTurn_TranscriptSkipsSTT(t *testing.T) {
	stt := &fakeSTT{transcript: "should not be used"}
	llm := &fakeLLM{resp: &provider.FollowUpResponse{FollowUpQuestion: "Next question?"}}

	sess := testSession(1)
	input := testInput(sess)
	input.Audio = nil
	input.MIMEType = ""
	input.Transcript = "typed answer"

	o, _ := newOrchestrator(stt, llm, &fakeTTS{audio: []byte("a")})
	result, err := o.ProcessTurn(context.Background(), input)
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}

	if stt.calls != 0 {
		t.Errorf("STT called %d times, want 0", stt.calls)
	}
	if result.Timings[domain.TimingSTT] != 0 {
		t.Errorf("stt_ms = %v, want 0", result.Timings[domain.TimingSTT])
	}
	if result.Transcript != "typed answer" {
		t.Errorf("Transcript = %q", result.Transcript)
	}
}

func TestProcessTurn_MissingAudioIsInvalidUpload(t *testing.T) {
	sess := testSession(2)
	input := testInput(sess)
	input.Audio = nil

	stt := &fakeSTT{}
	o, _ := newOrchestrator(stt, &fakeLLM{}, &fakeTTS{})
	_, err := o.ProcessTurn(context.Background(), input)

	te := domain.AsTurnError(err)
	if te.Stage != domain.StageUpload || te.Code != domain.CodeInvalidAudio {
		t.Fatalf("error = %v, want upload/invalid_audio", te)
	}
	if te.Retryable {
		t.Error("invalid_audio must not be retryable")
	}
	if stt.calls != 0 {
		t.Error("no provider call may be made for missing audio")
	}
	if sess.TurnCount != 2 {
		t.Errorf("TurnCount mutated to %d", sess.TurnCount)
	}
}

func TestProcessTurn_SafetyShortCircuit(t *testing.T) {
	llm := &fakeLLM{resp: &provider.FollowUpResponse{FollowUpQuestion: "unused"}}
	filter := safety.New(true, "", nil)

	sess := testSession(2)
	before := sess.LastActivityAt
	input := testInput(sess)
	input.Audio = nil
	input.Transcript = "I will kill this person"

	o, _ := newOrchestrator(&fakeSTT{}, llm, &fakeTTS{}, WithSafetyFilter(filter))
	_, err := o.ProcessTurn(context.Background(), input)

	te := domain.AsTurnError(err)
	if te.Stage != domain.StageLLM || te.Code != domain.CodeContentRefused {
		t.Fatalf("error = %v, want llm/content_refused", te)
	}
	if te.Retryable {
		t.Error("content_refused must not be retryable")
	}
	if te.RequestID != "req-1" {
		t.Errorf("RequestID = %q", te.RequestID)
	}
	if llm.calls != 0 {
		t.Errorf("LLM called %d times, want 0", llm.calls)
	}
	if sess.TurnCount != 2 || !sess.LastActivityAt.Equal(before) {
		t.Error("session mutated on safety refusal")
	}
}

func TestProcessTurn_LLMRefusal(t *testing.T) {
	llm := &fakeLLM{resp: &provider.FollowUpResponse{
		FollowUpQuestion: "Let's stay focused on the interview.",
		Refused:          true,
	}}

	sess := testSession(3)
	o, _ := newOrchestrator(&fakeSTT{transcript: "off-topic"}, llm, &fakeTTS{})
	_, err := o.ProcessTurn(context.Background(), testInput(sess))

	te := domain.AsTurnError(err)
	if te.Code != domain.CodeContentRefused {
		t.Fatalf("code = %v, want content_refused", te.Code)
	}
	if !strings.HasPrefix(te.MessageSafe, "Let's stay focused") {
		t.Errorf("MessageSafe = %q, want model refusal text", te.MessageSafe)
	}
	if sess.TurnCount != 3 {
		t.Errorf("TurnCount mutated to %d", sess.TurnCount)
	}
}

func TestProcessTurn_STTErrorPropagates(t *testing.T) {
	sttErr := domain.NewTurnError(domain.StageSTT, domain.CodeSTTTimeout,
		"Transcription timed out.", true, nil)
	llm := &fakeLLM{}

	sess := testSession(1)
	before := sess.LastActivityAt
	o, _ := newOrchestrator(&fakeSTT{err: sttErr}, llm, &fakeTTS{})
	_, err := o.ProcessTurn(context.Background(), testInput(sess))

	te := domain.AsTurnError(err)
	if te.Stage != domain.StageSTT || te.Code != domain.CodeSTTTimeout {
		t.Fatalf("error = %v, want stt/stt_timeout", te)
	}
	if !te.Retryable {
		t.Error("stt_timeout must be retryable")
	}
	if te.RequestID != "req-1" {
		t.Errorf("RequestID = %q", te.RequestID)
	}
	if llm.calls != 0 {
		t.Error("LLM must not be called after STT failure")
	}
	if sess.TurnCount != 1 || !sess.LastActivityAt.Equal(before) {
		t.Error("session mutated on STT failure")
	}
}

func TestProcessTurn_LLMErrorPropagates(t *testing.T) {
	llmErr := domain.NewTurnError(domain.StageLLM, domain.CodeLLMRateLimit,
		"Too many requests.", true, nil)

	sess := testSession(1)
	tts := &fakeTTS{}
	o, _ := newOrchestrator(&fakeSTT{transcript: "answer"}, &fakeLLM{err: llmErr}, tts)
	_, err := o.ProcessTurn(context.Background(), testInput(sess))

	te := domain.AsTurnError(err)
	if te.Stage != domain.StageLLM || te.Code != domain.CodeLLMRateLimit {
		t.Fatalf("error = %v, want llm/llm_rate_limit", te)
	}
	if tts.calls != 0 {
		t.Error("TTS must not be called after LLM failure")
	}
	if sess.TurnCount != 1 {
		t.Errorf("TurnCount mutated to %d", sess.TurnCount)
	}
}

func TestProcessTurn_RetryableTTSDegrades(t *testing.T) {
	ttsErr := domain.NewTurnError(domain.StageTTS, domain.CodeTTSTimeout,
		"Speech synthesis timed out.", true, nil)
	llm := &fakeLLM{resp: &provider.FollowUpResponse{FollowUpQuestion: "Next question?"}}

	sess := testSession(1)
	o, cache := newOrchestrator(&fakeSTT{transcript: "answer"}, llm, &fakeTTS{err: ttsErr})
	result, err := o.ProcessTurn(context.Background(), testInput(sess))
	if err != nil {
		t.Fatalf("retryable TTS failure must not fail the turn: %v", err)
	}

	if result.TTSAudioURL != "" {
		t.Errorf("TTSAudioURL = %q, want empty", result.TTSAudioURL)
	}
	if sess.TurnCount != 2 {
		t.Errorf("TurnCount = %d, want 2 (turn still commits)", sess.TurnCount)
	}
	if _, ok := cache.Get("req-1"); ok {
		t.Error("no cache entry may exist after failed synthesis")
	}
}

func TestProcessTurn_NonRetryableTTSFails(t *testing.T) {
	ttsErr := domain.NewTurnError(domain.StageTTS, domain.CodeTTSAuthError,
		"TTS authentication failed.", false, nil)
	llm := &fakeLLM{resp: &provider.FollowUpResponse{FollowUpQuestion: "Next question?"}}

	sess := testSession(1)
	before := sess.LastActivityAt
	o, _ := newOrchestrator(&fakeSTT{transcript: "answer"}, llm, &fakeTTS{err: ttsErr})
	_, err := o.ProcessTurn(context.Background(), testInput(sess))

	te := domain.AsTurnError(err)
	if te.Stage != domain.StageTTS || te.Code != domain.CodeTTSAuthError {
		t.Fatalf("error = %v, want tts/tts_auth_error", te)
	}
	if sess.TurnCount != 1 || !sess.LastActivityAt.Equal(before) {
		t.Error("session mutated on non-retryable TTS failure")
	}
}

func TestProcessTurn_GeneratesRequestID(t *testing.T) {
	llm := &fakeLLM{resp: &provider.FollowUpResponse{FollowUpQuestion: "Q"}}

	sess := testSession(0)
	input := testInput(sess)
	input.RequestID = ""

	o, _ := newOrchestrator(&fakeSTT{transcript: "answer"}, llm, &fakeTTS{audio: []byte("a")})
	result, err := o.ProcessTurn(context.Background(), input)
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if result.TTSAudioURL == "" || result.TTSAudioURL == "/tts/" {
		t.Errorf("TTSAudioURL = %q, want generated id", result.TTSAudioURL)
	}
}

func TestProcessTurn_TimingAggregation(t *testing.T) {
	llm := &fakeLLM{resp: &provider.FollowUpResponse{FollowUpQuestion: "Q"}}

	sess := testSession(0)
	o, _ := newOrchestrator(&fakeSTT{transcript: "answer"}, llm, &fakeTTS{audio: []byte("a")})
	result, err := o.ProcessTurn(context.Background(), testInput(sess))
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}

	sum := result.Timings[domain.TimingSTT] + result.Timings[domain.TimingLLM] + result.Timings[domain.TimingTTS]
	if result.Timings[domain.TimingTotal] < sum {
		t.Errorf("total_ms %v < stage sum %v", result.Timings[domain.TimingTotal], sum)
	}
}
