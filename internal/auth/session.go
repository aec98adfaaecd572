// Package auth implements the two-factor login flow: the per-session attempt
// controller and the state machine that sequences face verification, password
// confirmation, and access-session issuance.
package auth

import (
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
)

// Session is one in-flight login flow. All access goes through the registry
// and the session's own mutex so that overlapping frame submissions for the
// same session are strictly serialized.
type Session struct {
	ID       uuid.UUID
	Deadline time.Time

	mu          sync.Mutex
	state       model.SessionState
	matchedUser int64
	attempts    int
	noFace      int
	lastSeen    time.Time
	createdAt   time.Time
}

// State returns the current state under the session lock.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MatchedUser returns the pinned user id, zero before FaceMatched.
func (s *Session) MatchedUser() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchedUser
}

// Attempts returns the cumulative frame attempt count.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// transition moves the machine to next, enforcing legal edges. Callers hold mu.
func (s *Session) transition(next model.SessionState) error {
	if s.state.Terminal() {
		return errs.ErrSessionTerminal
	}
	legal := false
	switch next {
	case model.FaceMatched:
		legal = s.state == model.FacePending
	case model.AwaitingPassword:
		legal = s.state == model.FaceMatched
	case model.Authenticated:
		legal = s.state == model.AwaitingPassword
	case model.Failed:
		legal = true // reachable from any non-terminal state
	}
	if !legal {
		return errs.ErrInvalidTransition
	}
	s.state = next
	return nil
}

// expired reports whether the deadline has passed. Callers hold mu.
func (s *Session) expired(now time.Time) bool {
	return now.After(s.Deadline)
}

// Registry owns all live login sessions. Distinct sessions proceed fully in
// parallel; the registry lock covers only map access.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates a registry issuing sessions with the given lifetime.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Begin creates a fresh FacePending session.
func (r *Registry) Begin() (*Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := r.now()
	s := &Session{
		ID:        id,
		Deadline:  now.Add(r.ttl),
		state:     model.FacePending,
		createdAt: now,
		lastSeen:  now,
	}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s, nil
}

// Get looks up a live session by id.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return s, nil
}

// Remove drops a session once it reaches a terminal state.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// PurgeExpired drops sessions past their deadline and returns how many were
// removed. Pacing is the caller's concern; the registry runs no timers of
// its own. Sessions are inspected without holding the registry lock: a
// session operation may call back into the registry while holding its own
// mutex, so the registry lock must never wrap a session lock.
func (r *Registry) PurgeExpired() int {
	now := r.now()

	r.mu.Lock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.Unlock()

	var gone []uuid.UUID
	for _, s := range candidates {
		s.mu.Lock()
		if s.expired(now) || s.state.Terminal() {
			gone = append(gone, s.ID)
		}
		s.mu.Unlock()
	}
	if len(gone) == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range gone {
		if _, ok := r.sessions[id]; ok {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
