// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., name taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates a missing or invalid authenticated session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Biometric verification sentinels.
var (
	// ErrNoFace indicates the embedding source found no face in a frame.
	ErrNoFace = errors.New("no face detected")

	// ErrNoMatch indicates no enrolled template cleared the acceptance threshold.
	ErrNoMatch = errors.New("no match")

	// ErrInsufficientSamples indicates an enrollment batch below the minimum sample count.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrDimensionMismatch indicates an embedding of unexpected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Login-session sentinels.
var (
	// ErrSessionExpired indicates the login session passed its deadline.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionTerminal indicates the session already reached a terminal state.
	ErrSessionTerminal = errors.New("session in terminal state")

	// ErrMaxAttempts indicates the per-session frame attempt cap was reached.
	ErrMaxAttempts = errors.New("max attempts exceeded")

	// ErrIdentityMismatch indicates a password step referencing a different user
	// than the one pinned at face match.
	ErrIdentityMismatch = errors.New("identity mismatch")

	// ErrCredentialInvalid indicates a wrong password for the pinned user.
	ErrCredentialInvalid = errors.New("invalid credentials")

	// ErrInvalidTransition indicates an operation not valid in the session's current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Ledger sentinels.
var (
	// ErrInsufficientFunds indicates a withdrawal or transfer exceeding the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer indicates a transfer where sender and receiver are the same account.
	ErrSelfTransfer = errors.New("transfer to own account")

	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("invalid amount")
)
