// Package session provides the in-memory, TTL-bounded session store.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AvishkaGihan/voicemock-ai-interview/internal/domain"
)

// DefaultTTL is how long an idle session survives before a sweep removes it.
const DefaultTTL = 60 * time.Minute

// CreateRequest carries the immutable configuration for a new session.
type CreateRequest struct {
	Role          string
	InterviewType string
	Difficulty    domain.Difficulty
	QuestionCount int
}

// Patch is a partial update applied to a stored session. Nil fields mean
// "no change"; this keeps explicit clears distinguishable from omissions.
type Patch struct {
	TurnCount      *int
	AskedQuestions []string
	Status         *domain.Status
	LastActivityAt *time.Time
}

// Store is a thread-safe table of session state. All access is guarded by a
// single mutex held only for the duration of the table operation; reads and
// writes cross a copy boundary so no caller ever holds a reference into the
// table.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*domain.SessionState
	ttl      time.Duration
	now      func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithTTL overrides the default session TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty session store.
func New(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*domain.SessionState),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the store's configured session TTL.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create allocates a fresh session from the request and returns an isolated
// copy of the stored record.
func (s *Store) Create(req CreateRequest) *domain.SessionState {
	now := s.now()
	state := &domain.SessionState{
		SessionID:      uuid.New().String(),
		Role:           req.Role,
		InterviewType:  req.InterviewType,
		Difficulty:     req.Difficulty,
		QuestionCount:  req.QuestionCount,
		CreatedAt:      now,
		LastActivityAt: now,
		TurnCount:      0,
		AskedQuestions: []string{},
		Status:         domain.StatusActive,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.SessionID] = state
	return state.Clone()
}

// Get returns an isolated copy of the session, or false if it does not exist.
func (s *Store) Get(id string) (*domain.SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Clone(), true
}

// Update applies the patch to the stored session and returns an isolated
// copy of the result. LastActivityAt is refreshed automatically unless the
// patch sets it explicitly. Returns false if the session does not exist.
func (s *Store) Update(id string, patch Patch) (*domain.SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	if patch.TurnCount != nil {
		state.TurnCount = *patch.TurnCount
	}
	if patch.AskedQuestions != nil {
		state.AskedQuestions = append([]string(nil), patch.AskedQuestions...)
	}
	if patch.Status != nil {
		state.Status = *patch.Status
	}
	if patch.LastActivityAt != nil {
		state.LastActivityAt = *patch.LastActivityAt
	} else {
		state.LastActivityAt = s.now()
	}

	return state.Clone(), true
}

// Delete removes the session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// SweepExpired removes every session whose last activity is older than
// now - ttl and returns the number removed. Intended for a periodic
// maintenance goroutine or ad hoc invocation.
func (s *Store) SweepExpired(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, state := range s.sessions {
		if state.LastActivityAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.sessions, id)
	}
	return len(expired)
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
