package match

import (
	"sync/atomic"
	"time"

	"github.com/centbank/facegate/internal/model"
)

// Store is the in-process read model of all enrolled templates. Every match
// scans it, so reads are lock-free over an immutable snapshot; a re-enrollment
// builds a fresh snapshot and swaps it in whole. A reader holding the old
// snapshot keeps seeing the old generation, never a mix.
type Store struct {
	snap atomic.Pointer[[]model.Template]
}

// NewStore creates a store seeded with the given templates (typically loaded
// from the template repository at startup).
func NewStore(templates []model.Template) *Store {
	s := &Store{}
	snap := append([]model.Template(nil), templates...)
	s.snap.Store(&snap)
	return s
}

// Snapshot returns the current immutable template set. Callers must not
// modify the returned slice.
func (s *Store) Snapshot() []model.Template {
	return *s.snap.Load()
}

// Replace swaps one user's template for a new generation, leaving all other
// users untouched.
func (s *Store) Replace(userID int64, embeddings []model.Embedding) {
	t := model.Template{
		UserID:     userID,
		Embeddings: embeddings,
		EnrolledAt: time.Now(),
	}
	for {
		old := s.snap.Load()
		next := make([]model.Template, 0, len(*old)+1)
		replaced := false
		for _, cur := range *old {
			if cur.UserID == userID {
				next = append(next, t)
				replaced = true
				continue
			}
			next = append(next, cur)
		}
		if !replaced {
			next = append(next, t)
		}
		if s.snap.CompareAndSwap(old, &next) {
			return
		}
	}
}
