package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
)

// STTOption configures the STT adapter.
type STTOption func(*STT)

// WithSTTBaseURL sets a custom API base URL.
func WithSTTBaseURL(baseURL string) STTOption {
	return func(s *STT) {
		s.baseURL = trimBaseURL(baseURL)
	}
}

// WithSTTHTTPClient sets a custom HTTP client.
func WithSTTHTTPClient(httpClient *http.Client) STTOption {
	return func(s *STT) {
		s.httpClient = httpClient
	}
}

// WithSTTTimeout sets the per-request timeout.
func WithSTTTimeout(timeout time.Duration) STTOption {
	return func(s *STT) {
		s.timeout = timeout
	}
}

// STT transcribes pre-recorded audio with Deepgram's nova-2 model.
type STT struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewSTT creates the Deepgram STT adapter.
func NewSTT(apiKey string, opts ...STTOption) *STT {
	s := &STT{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends the audio to /v1/listen and returns the transcript.
func (s *STT) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := url.Values{
		"model":        {"nova-2"},
		"smart_format": {"true"},
		"punctuate":    {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/listen?"+params.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", domain.NewTurnError(domain.StageSTT, domain.CodeSTTProviderError,
			"Transcription is unavailable right now.", true, err)
	}
	authHeader(req, s.apiKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", domain.NewTurnError(domain.StageSTT, domain.CodeSTTTimeout,
				"Transcription timed out. Please try again.", true, err)
		}
		return "", domain.NewTurnError(domain.StageSTT, domain.CodeSTTProviderError,
			"STT provider is unavailable.", true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", s.statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewTurnError(domain.StageSTT, domain.CodeSTTProviderError,
			"STT provider returned an unreadable response.", true, err)
	}

	var parsed listenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", domain.NewTurnError(domain.StageSTT, domain.CodeSTTProviderError,
			"STT provider returned an invalid response.", true, err)
	}

	transcript := ""
	if len(parsed.Results.Channels) > 0 && len(parsed.Results.Channels[0].Alternatives) > 0 {
		transcript = parsed.Results.Channels[0].Alternatives[0].Transcript
	}
	if strings.TrimSpace(transcript) == "" {
		return "", domain.NewTurnError(domain.StageSTT, domain.CodeSTTEmptyTranscript,
			"We couldn't hear anything. Please try again.", false, nil)
	}

	return transcript, nil
}

func (s *STT) statusError(resp *http.Response) *domain.TurnError {
	err := fmt.Errorf("deepgram listen: status %d", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewTurnError(domain.StageSTT, domain.CodeSTTAuthError,
			"STT authentication failed.", false, err)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewTurnError(domain.StageSTT, domain.CodeSTTRateLimit,
			"Too many requests. Please try again shortly.", true, err)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return domain.NewTurnError(domain.StageSTT, domain.CodeSTTBadRequest,
			"Invalid audio or request parameters.", false, err)
	default:
		return domain.NewTurnError(domain.StageSTT, domain.CodeSTTProviderError,
			"STT provider is unavailable.", true, err)
	}
}
