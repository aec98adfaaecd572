package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
)

func TestRegistry_BeginAndGet(t *testing.T) {
	t.Parallel()
	r := NewRegistry(time.Minute)

	s, err := r.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if s.State() != model.FacePending {
		t.Fatalf("state = %v, want FacePending", s.State())
	}
	got, err := r.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get: %v (same=%v)", err, got == s)
	}

	r.Remove(s.ID)
	if _, err := r.Get(s.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("after Remove: err = %v, want ErrNotFound", err)
	}
}

func TestSession_TransitionLegality(t *testing.T) {
	t.Parallel()
	s := &Session{state: model.FacePending}

	// Skipping FaceMatched is illegal.
	if err := s.transition(model.AwaitingPassword); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("FacePending->AwaitingPassword: err = %v", err)
	}
	if err := s.transition(model.Authenticated); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("FacePending->Authenticated: err = %v", err)
	}

	for _, next := range []model.SessionState{model.FaceMatched, model.AwaitingPassword, model.Authenticated} {
		if err := s.transition(next); err != nil {
			t.Fatalf("to %v: %v", next, err)
		}
	}

	// Terminal states accept nothing.
	if err := s.transition(model.Failed); !errors.Is(err, errs.ErrSessionTerminal) {
		t.Fatalf("from Authenticated: err = %v", err)
	}
}

func TestSession_FailedFromAnyNonTerminal(t *testing.T) {
	t.Parallel()
	for _, from := range []model.SessionState{model.FacePending, model.FaceMatched, model.AwaitingPassword} {
		s := &Session{state: from}
		if err := s.transition(model.Failed); err != nil {
			t.Fatalf("from %v: %v", from, err)
		}
		if s.State() != model.Failed {
			t.Fatalf("state = %v, want Failed", s.State())
		}
	}
}

// A session operation holds its own mutex when it calls back into the
// registry (SubmitPassword removes the session on success), so a sweep that
// wraps session locks inside the registry lock would deadlock against it.
func TestRegistry_PurgeDoesNotBlockRemoval(t *testing.T) {
	t.Parallel()
	r := NewRegistry(time.Minute)

	held, err := r.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	expired, err := r.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	expired.Deadline = time.Now().Add(-time.Second)

	held.mu.Lock()
	swept := make(chan int)
	go func() { swept <- r.PurgeExpired() }()
	// Let the sweep reach the held session's mutex before touching the
	// registry from under it.
	time.Sleep(50 * time.Millisecond)

	removed := make(chan struct{})
	go func() {
		r.Remove(held.ID)
		close(removed)
	}()
	select {
	case <-removed:
	case <-time.After(time.Second):
		held.mu.Unlock()
		t.Fatal("Remove blocked behind the sweep")
	}
	held.mu.Unlock()

	select {
	case n := <-swept:
		if n != 1 {
			t.Fatalf("purged %d, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("PurgeExpired did not finish")
	}
	if _, err := r.Get(expired.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expired session kept: %v", err)
	}
}

func TestRegistry_PurgeExpired(t *testing.T) {
	t.Parallel()
	r := NewRegistry(time.Minute)

	live, err := r.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	old, err := r.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	old.Deadline = time.Now().Add(-time.Second)

	done, err := r.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	done.mu.Lock()
	done.state = model.Failed
	done.mu.Unlock()

	if n := r.PurgeExpired(); n != 2 {
		t.Fatalf("purged %d, want 2", n)
	}
	if _, err := r.Get(live.ID); err != nil {
		t.Fatalf("live session purged: %v", err)
	}
	if _, err := r.Get(old.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expired session kept: %v", err)
	}
}
