// Package session issues and validates post-login access sessions. A session
// is a signed HS256 token paired with an opaque server-side id in Redis, so
// logout revokes instantly regardless of token expiry.
package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/centbank/facegate/internal/crypto"
	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
)

const keyPrefix = "session:"

// Store mints, validates and revokes access sessions.
type Store struct {
	rdb     *redis.Client
	signKey []byte
	ttl     time.Duration
}

// NewStore constructs the session store.
func NewStore(rdb *redis.Client, signKey []byte, ttl time.Duration) *Store {
	return &Store{rdb: rdb, signKey: signKey, ttl: ttl}
}

// Issue creates a revocable session for the user and returns the signed
// access token.
func (s *Store) Issue(ctx context.Context, userID int64) (model.AccessSession, error) {
	raw, err := crypto.RandBytes(32)
	if err != nil {
		return model.AccessSession{}, err
	}
	sid := base64.RawURLEncoding.EncodeToString(raw)

	if err := s.rdb.Set(ctx, keyPrefix+sid, strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return model.AccessSession{}, fmt.Errorf("store session: %w", err)
	}

	now := time.Now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        sid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return model.AccessSession{}, err
	}
	return model.AccessSession{Token: signed, SID: sid, UserID: userID, ExpiresAt: exp}, nil
}

// Validate checks the token signature and expiry and confirms the session is
// still live in Redis. Returns the authenticated user id and session id.
func (s *Store) Validate(ctx context.Context, token string) (int64, string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return 0, "", errs.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return 0, "", errs.ErrUnauthorized
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", errs.ErrUnauthorized
	}

	stored, err := s.rdb.Get(ctx, keyPrefix+claims.ID).Result()
	if err != nil || stored != claims.Subject {
		// Missing key means revoked or expired server-side.
		return 0, "", errs.ErrUnauthorized
	}
	return userID, claims.ID, nil
}

// Revoke deletes the server-side session, invalidating its token immediately.
func (s *Store) Revoke(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, keyPrefix+sid).Err()
}
