package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
)

const defaultVoiceModel = "aura-2-thalia-en"

// TTSOption configures the TTS adapter.
type TTSOption func(*TTS)

// WithTTSBaseURL sets a custom API base URL.
func WithTTSBaseURL(baseURL string) TTSOption {
	return func(t *TTS) {
		t.baseURL = trimBaseURL(baseURL)
	}
}

// WithTTSHTTPClient sets a custom HTTP client.
func WithTTSHTTPClient(httpClient *http.Client) TTSOption {
	return func(t *TTS) {
		t.httpClient = httpClient
	}
}

// WithTTSTimeout sets the per-request timeout.
func WithTTSTimeout(timeout time.Duration) TTSOption {
	return func(t *TTS) {
		t.timeout = timeout
	}
}

// WithVoiceModel sets the Aura voice model.
func WithVoiceModel(model string) TTSOption {
	return func(t *TTS) {
		t.model = model
	}
}

// TTS synthesizes speech with Deepgram's Aura-2 voices.
type TTS struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewTTS creates the Deepgram TTS adapter.
func NewTTS(apiKey string, opts ...TTSOption) *TTS {
	t := &TTS{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultVoiceModel,
		timeout:    defaultTimeout,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Synthesize sends the text to /v1/speak and returns MP3 audio bytes.
func (t *TTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, domain.NewTurnError(domain.StageTTS, domain.CodeTTSBadRequest,
			"Invalid text for speech synthesis.", false, err)
	}

	params := url.Values{
		"model":    {t.model},
		"encoding": {"mp3"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/v1/speak?"+params.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewTurnError(domain.StageTTS, domain.CodeTTSProviderError,
			"Speech synthesis is unavailable right now.", true, err)
	}
	authHeader(req, t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, domain.NewTurnError(domain.StageTTS, domain.CodeTTSTimeout,
				"Speech synthesis timed out.", true, err)
		}
		return nil, domain.NewTurnError(domain.StageTTS, domain.CodeTTSProviderError,
			"TTS provider is unavailable.", true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, t.statusError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTurnError(domain.StageTTS, domain.CodeTTSProviderError,
			"TTS provider returned an unreadable response.", true, err)
	}
	return audio, nil
}

func (t *TTS) statusError(resp *http.Response) *domain.TurnError {
	err := fmt.Errorf("deepgram speak: status %d", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewTurnError(domain.StageTTS, domain.CodeTTSAuthError,
			"TTS authentication failed.", false, err)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewTurnError(domain.StageTTS, domain.CodeTTSRateLimit,
			"Too many requests. Please try again shortly.", true, err)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return domain.NewTurnError(domain.StageTTS, domain.CodeTTSBadRequest,
			"Invalid text or request parameters.", false, err)
	default:
		return domain.NewTurnError(domain.StageTTS, domain.CodeTTSProviderError,
			"TTS provider is unavailable.", true, err)
	}
}
