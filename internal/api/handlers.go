package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/auth"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/orchestrator"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/server"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/session"
	"github.com/AvishkaGihan/voicemock-ai-interview/internal/ttscache"
)

// TurnProcessor runs one turn through the pipeline. Satisfied by
// *orchestrator.Orchestrator; narrowed to an interface so handler tests can
// substitute a fake.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, input orchestrator.TurnInput) (*domain.TurnResult, error)
}

// Handlers holds every route's dependencies, injected by the composition
// root.
type Handlers struct {
	store          *session.Store
	cache          *ttscache.Cache
	tokens         *auth.TokenService
	turns          TurnProcessor
	logger         *slog.Logger
	maxUploadBytes int64
}

// Option configures the handlers.
type Option func(*Handlers)

// WithMaxUploadBytes caps the accepted multipart body size.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handlers) {
		h.maxUploadBytes = n
	}
}

// NewHandlers wires the route handlers.
func NewHandlers(store *session.Store, cache *ttscache.Cache, tokens *auth.TokenService, turns TurnProcessor, logger *slog.Logger, opts ...Option) *Handlers {
	h := &Handlers{
		store:          store,
		cache:          cache,
		tokens:         tokens,
		turns:          turns,
		logger:         logger,
		maxUploadBytes: 10 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts all routes on the router.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)
	r.Post("/session/start", h.HandleSessionStart)
	r.Delete("/session/{sessionID}", h.HandleSessionDelete)
	r.Post("/turn", h.HandleTurn)
	r.Get("/tts/{requestID}", h.HandleTTSFetch)
}

// HealthData is the health endpoint payload.
type HealthData struct {
	Status string `json:"status"`
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, server.GetRequestID(r.Context()), HealthData{Status: "ok"})
}

// authorizeSession validates the bearer token and, when expectedSessionID is
// non-empty, that the token belongs to that session. On failure it writes the
// error envelope and returns false.
func (h *Handlers) authorizeSession(w http.ResponseWriter, r *http.Request, stage domain.Stage, expectedSessionID string) (string, bool) {
	requestID := server.GetRequestID(r.Context())

	token, err := auth.ExtractBearer(r)
	if err != nil {
		writeError(w, requestID, http.StatusUnauthorized, &APIError{
			Stage:       stage,
			Code:        domain.CodeInvalidToken,
			MessageSafe: "Missing or malformed authorization header",
		})
		return "", false
	}

	tokenSessionID, ok := h.tokens.Verify(token)
	if !ok {
		writeError(w, requestID, http.StatusUnauthorized, &APIError{
			Stage:       stage,
			Code:        domain.CodeInvalidToken,
			MessageSafe: "Session token is invalid or expired",
		})
		return "", false
	}

	if expectedSessionID != "" && tokenSessionID != expectedSessionID {
		writeError(w, requestID, http.StatusForbidden, &APIError{
			Stage:       stage,
			Code:        domain.CodeSessionIDMismatch,
			MessageSafe: "Session ID does not match token",
		})
		return "", false
	}

	return tokenSessionID, true
}
