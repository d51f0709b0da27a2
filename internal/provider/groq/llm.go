// Package groq provides the Groq chat-completions adapter for interview
// follow-up generation and end-of-session summaries.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tiktoken-go/tokenizer"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/provider"
)

const (
	defaultBaseURL      = "https://api.groq.com/openai/v1"
	defaultModel        = "llama-3.3-70b-versatile"
	defaultTimeout      = 30 * time.Second
	defaultMaxTokens    = 400
	defaultPromptBudget = 6000
)

// Option configures the adapter.
type Option func(*LLM)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(baseURL string) Option {
	return func(l *LLM) {
		l.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(l *LLM) {
		l.httpClient = httpClient
	}
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(l *LLM) {
		l.model = model
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(l *LLM) {
		l.timeout = timeout
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(maxTokens int) Option {
	return func(l *LLM) {
		l.maxTokens = maxTokens
	}
}

// WithPromptTokenBudget caps the summary prompt size; turn history is
// truncated oldest-first to fit.
func WithPromptTokenBudget(budget int) Option {
	return func(l *LLM) {
		l.promptBudget = budget
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *LLM) {
		l.logger = logger
	}
}

// LLM is the Groq chat-completions adapter.
type LLM struct {
	apiKey       string
	baseURL      string
	model        string
	maxTokens    int
	promptBudget int
	timeout      time.Duration
	httpClient   *http.Client
	codec        tokenizer.Codec
	logger       *slog.Logger
}

// New creates the adapter.
func New(apiKey string, opts ...Option) *LLM {
	l := &LLM{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		model:        defaultModel,
		maxTokens:    defaultMaxTokens,
		promptBudget: defaultPromptBudget,
		timeout:      defaultTimeout,
		httpClient:   http.DefaultClient,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	// Llama tokenization differs from cl100k, but for budgeting purposes an
	// approximate count is sufficient.
	if codec, err := tokenizer.Get(tokenizer.Cl100kBase); err == nil {
		l.codec = codec
	}
	return l
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateFollowUp produces the next interview question with optional
// coaching feedback. On the final turn (question number past the total) the
// prompt asks for a closing acknowledgment instead.
func (l *LLM) GenerateFollowUp(ctx context.Context, req provider.FollowUpRequest) (*provider.FollowUpResponse, error) {
	systemPrompt := buildFollowUpPrompt(req)

	content, err := l.complete(ctx, systemPrompt, req.Transcript, 0.7)
	if err != nil {
		return nil, err
	}

	return parseFollowUp(content), nil
}

// complete runs one chat completion and returns the trimmed content, with
// null and empty responses already rejected.
func (l *LLM) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   l.maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", domain.NewTurnError(domain.StageLLM, domain.CodeLLMProviderError,
			"The interview coach is unavailable right now.", true, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", domain.NewTurnError(domain.StageLLM, domain.CodeLLMProviderError,
			"The interview coach is unavailable right now.", true, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+l.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return "", domain.NewTurnError(domain.StageLLM, domain.CodeLLMTimeout,
				"The interview coach took too long to respond. Please try again.", true, err)
		}
		return "", domain.NewTurnError(domain.StageLLM, domain.CodeLLMProviderError,
			"The interview coach is unavailable right now.", true, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewTurnError(domain.StageLLM, domain.CodeLLMProviderError,
			"The interview coach returned an unreadable response.", true, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", l.statusError(resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", domain.NewTurnError(domain.StageLLM, domain.CodeLLMProviderError,
			"The interview coach returned an invalid response.", true, err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return "", domain.NewTurnError(domain.StageLLM, domain.CodeNullResponse,
			"The interview coach did not produce a response.", false, nil)
	}

	content := strings.TrimSpace(*parsed.Choices[0].Message.Content)
	if content == "" {
		return "", domain.NewTurnError(domain.StageLLM, domain.CodeEmptyResponse,
			"The interview coach produced an empty response.", false, nil)
	}

	return content, nil
}

func (l *LLM) statusError(statusCode int, body []byte) *domain.TurnError {
	message := fmt.Sprintf("groq chat completions: status %d", statusCode)
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}
	cause := errors.New(message)

	if statusCode == http.StatusTooManyRequests {
		return domain.NewTurnError(domain.StageLLM, domain.CodeLLMRateLimit,
			"Too many requests. Please try again shortly.", true, cause)
	}

	lower := strings.ToLower(message)
	if strings.Contains(lower, "content") &&
		(strings.Contains(lower, "filter") || strings.Contains(lower, "policy")) {
		return domain.NewTurnError(domain.StageLLM, domain.CodeLLMContentFilter,
			"That answer can't be processed. Please rephrase and try again.", false, cause)
	}

	return domain.NewTurnError(domain.StageLLM, domain.CodeLLMProviderError,
		"The interview coach is unavailable right now.", true, cause)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// countTokens approximates the token count of text. Returns a character-based
// estimate when no codec is available.
func (l *LLM) countTokens(text string) int {
	if l.codec == nil {
		return len(text) / 4
	}
	ids, _, err := l.codec.Encode(text)
	if err != nil {
		return len(text) / 4
	}
	return len(ids)
}
