// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Embedding is a fixed-length face feature vector produced by the external
// embedding source. Values are never mutated after extraction.
type Embedding []float32

// Clone returns an independent copy of the embedding.
func (e Embedding) Clone() Embedding {
	return append(Embedding(nil), e...)
}

// Template is the ordered set of reference embeddings stored for one enrolled
// customer. A template always holds at least one embedding and is only ever
// replaced wholesale on re-enrollment, never edited in place.
type Template struct {
	UserID     int64
	Embeddings []Embedding
	EnrolledAt time.Time
}

// MatchCandidate is a transient per-probe result: the best-scoring user and
// its distance. Not persisted.
type MatchCandidate struct {
	UserID   int64
	Distance float64
}

// User represents a bank customer. PwdHash is opaque to everything except the
// password verifier.
type User struct {
	ID            int64 // customer number, unique
	AccountNumber int64 // unique, used as transfer target
	Name          string
	Bank          string
	PwdHash       string
	Balance       int64 // cents
	CreatedAt     time.Time
	LastLoginAt   *time.Time
}

// Transaction is one ledger entry. Transfers produce two entries, one per side.
type Transaction struct {
	ID          uuid.UUID
	UserID      int64
	Kind        TxKind
	Amount      int64 // cents, always positive
	Description string
	CreatedAt   time.Time
}

// TxKind enumerates ledger entry types.
type TxKind string

const (
	TxDeposit  TxKind = "deposit"
	TxWithdraw TxKind = "withdraw"
	TxTransfer TxKind = "transfer"
)

// SessionState is the login-flow state machine position.
type SessionState int

const (
	// FacePending: frames are being submitted, no identity established yet.
	FacePending SessionState = iota
	// FaceMatched: a single user identity is pinned; password step may begin.
	FaceMatched
	// AwaitingPassword: identity surfaced to the client, waiting for the credential.
	AwaitingPassword
	// Authenticated: terminal success, an access session has been issued.
	Authenticated
	// Failed: terminal failure, a new login session is required.
	Failed
)

// String returns the wire name of the state.
func (s SessionState) String() string {
	switch s {
	case FacePending:
		return "face-pending"
	case FaceMatched:
		return "face-matched"
	case AwaitingPassword:
		return "awaiting-password"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == Authenticated || s == Failed
}

// FrameOutcome classifies a single submitFrame call.
type FrameOutcome struct {
	Matched bool
	// UserID is set only when Matched.
	UserID int64
	// Reason distinguishes pending causes ("no-face", "no-match").
	Reason string
	// Hint is advisory client feedback while the outcome is pending.
	Hint string
	// Attempts is the cumulative attempt count for the session.
	Attempts int
}

// AccessSession is the issued post-login session handed to the transport layer.
type AccessSession struct {
	Token     string // signed access token
	SID       string // opaque revocable session id
	UserID    int64
	ExpiresAt time.Time
}
