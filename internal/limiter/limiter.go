// Package limiter defines interfaces and implementations for password-step
// rate limiting. The biometric attempt cap is handled per login session by
// the auth package; this limiter guards the credential check itself against
// brute force across sessions.
package limiter

import (
	"context"
	"time"
)

// Limiter controls credential attempts and temporary lockouts per
// (customer key, client IP).
type Limiter interface {
	// Allow reports whether a credential check is currently allowed and an
	// optional retry-after.
	Allow(ctx context.Context, key string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful authentication.
	Success(ctx context.Context, key string, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, key string, ipHash []byte) (bool, time.Duration, error)
}
