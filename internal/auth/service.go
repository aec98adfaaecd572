package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/centbank/facegate/internal/biometric"
	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/limiter"
	"github.com/centbank/facegate/internal/match"
	"github.com/centbank/facegate/internal/model"
	"github.com/centbank/facegate/internal/repository"
)

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(password, hash string) (bool, error)
}

// SessionIssuer mints the post-login access session. Called only on reaching
// Authenticated.
type SessionIssuer interface {
	Issue(ctx context.Context, userID int64) (model.AccessSession, error)
}

// Attempt-count bands for the staged client hints.
const (
	hintSearchingBelow = 5
	hintCenteringBelow = 15
)

// hintFor recommends progressively more specific client feedback as attempts
// accumulate.
func hintFor(attempts int) string {
	switch {
	case attempts <= hintSearchingBelow:
		return "looking-for-face"
	case attempts <= hintCenteringBelow:
		return "center-your-face"
	default:
		return "recognition-in-progress"
	}
}

// Service drives login sessions end to end: frame pacing, matching, the
// password step, and issuance.
type Service struct {
	source      biometric.Source
	matcher     match.Identifier
	store       *match.Store
	users       repository.UserRepository
	verifier    PasswordVerifier
	issuer      SessionIssuer
	lim         limiter.Limiter
	registry    *Registry
	maxAttempts int
	log         *zap.Logger
}

// NewService wires the login service.
func NewService(
	source biometric.Source,
	matcher match.Identifier,
	store *match.Store,
	users repository.UserRepository,
	verifier PasswordVerifier,
	issuer SessionIssuer,
	lim limiter.Limiter,
	registry *Registry,
	maxAttempts int,
	log *zap.Logger,
) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 30
	}
	return &Service{
		source:      source,
		matcher:     matcher,
		store:       store,
		users:       users,
		verifier:    verifier,
		issuer:      issuer,
		lim:         lim,
		registry:    registry,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// BeginLogin opens a fresh login session and returns its handle.
func (s *Service) BeginLogin() (*Session, error) {
	sess, err := s.registry.Begin()
	if err != nil {
		return nil, err
	}
	s.log.Debug("login session opened", zap.String("sid", sess.ID.String()))
	return sess, nil
}

// SubmitFrame processes one captured frame for the session. Outcomes:
//   - Matched: the session advanced to AwaitingPassword with a pinned user.
//   - pending (nil error, Matched=false): no face or no match yet; the client
//     should keep submitting frames, guided by the returned hint.
//   - errs.ErrMaxAttempts / errs.ErrSessionExpired: the session failed and a
//     new one must be started.
func (s *Service) SubmitFrame(ctx context.Context, sid uuid.UUID, image string) (model.FrameOutcome, error) {
	sess, err := s.registry.Get(sid)
	if err != nil {
		return model.FrameOutcome{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	now := s.registry.now()
	if sess.state.Terminal() {
		return model.FrameOutcome{}, errs.ErrSessionTerminal
	}
	if sess.expired(now) {
		sess.state = model.Failed
		return model.FrameOutcome{}, errs.ErrSessionExpired
	}
	if sess.state != model.FacePending {
		return model.FrameOutcome{}, errs.ErrInvalidTransition
	}
	if sess.attempts >= s.maxAttempts {
		sess.state = model.Failed
		s.log.Info("login session failed, attempt cap",
			zap.String("sid", sess.ID.String()), zap.Int("attempts", sess.attempts))
		return model.FrameOutcome{}, errs.ErrMaxAttempts
	}
	sess.lastSeen = now
	sess.attempts++

	probe, err := s.source.Extract(ctx, image)
	if err != nil {
		if errors.Is(err, errs.ErrNoFace) {
			// No point scoring a frame with nothing in it.
			sess.noFace++
			return model.FrameOutcome{
				Reason:   "no-face",
				Hint:     hintFor(sess.attempts),
				Attempts: sess.attempts,
			}, nil
		}
		return model.FrameOutcome{}, fmt.Errorf("extract: %w", err)
	}

	cand, err := s.matcher.Identify(probe, s.store.Snapshot())
	if err != nil {
		if errors.Is(err, errs.ErrNoMatch) {
			return model.FrameOutcome{
				Reason:   "no-match",
				Hint:     hintFor(sess.attempts),
				Attempts: sess.attempts,
			}, nil
		}
		return model.FrameOutcome{}, fmt.Errorf("identify: %w", err)
	}

	if err := sess.transition(model.FaceMatched); err != nil {
		return model.FrameOutcome{}, err
	}
	sess.matchedUser = cand.UserID
	// Surfacing the identity to the caller is what moves the flow on; the
	// password step is armed as part of the same frame.
	if err := sess.transition(model.AwaitingPassword); err != nil {
		return model.FrameOutcome{}, err
	}

	s.log.Info("face matched",
		zap.String("sid", sess.ID.String()),
		zap.Int64("user_id", cand.UserID),
		zap.Float64("distance", cand.Distance),
		zap.Int("attempts", sess.attempts))
	return model.FrameOutcome{
		Matched:  true,
		UserID:   cand.UserID,
		Attempts: sess.attempts,
	}, nil
}

// SubmitPassword completes the second factor. The supplied user id must equal
// the id pinned at face match; any mismatch fails the session with
// errs.ErrIdentityMismatch even if the password is valid for the other user.
func (s *Service) SubmitPassword(ctx context.Context, sid uuid.UUID, userID int64, password, ip string) (model.AccessSession, error) {
	sess, err := s.registry.Get(sid)
	if err != nil {
		return model.AccessSession{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state.Terminal() {
		return model.AccessSession{}, errs.ErrSessionTerminal
	}
	if sess.expired(s.registry.now()) {
		sess.state = model.Failed
		return model.AccessSession{}, errs.ErrSessionExpired
	}
	if sess.state != model.AwaitingPassword {
		return model.AccessSession{}, errs.ErrInvalidTransition
	}
	if userID != sess.matchedUser {
		sess.state = model.Failed
		s.log.Warn("password step for mismatched identity",
			zap.String("sid", sess.ID.String()),
			zap.Int64("pinned", sess.matchedUser),
			zap.Int64("supplied", userID))
		return model.AccessSession{}, errs.ErrIdentityMismatch
	}

	access, err := s.authenticate(ctx, sess.matchedUser, password, ip)
	if err != nil {
		if errors.Is(err, errs.ErrCredentialInvalid) || errors.Is(err, errs.ErrRateLimited) {
			sess.state = model.Failed
		}
		return model.AccessSession{}, err
	}

	if err := sess.transition(model.Authenticated); err != nil {
		return model.AccessSession{}, err
	}
	s.registry.Remove(sess.ID)
	s.log.Info("login authenticated",
		zap.String("sid", sess.ID.String()), zap.Int64("user_id", userID))
	return access, nil
}

// DirectLogin is the password-only fallback path (no biometric factor).
func (s *Service) DirectLogin(ctx context.Context, name, password, ip string) (model.AccessSession, *model.User, error) {
	if name == "" || password == "" {
		return model.AccessSession{}, nil, errs.ErrCredentialInvalid
	}
	u, err := s.users.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// Hide user existence behind the generic credential error.
			return model.AccessSession{}, nil, errs.ErrCredentialInvalid
		}
		return model.AccessSession{}, nil, err
	}
	access, err := s.authenticate(ctx, u.ID, password, ip)
	if err != nil {
		return model.AccessSession{}, nil, err
	}
	return access, u, nil
}

// authenticate applies rate limiting, verifies the credential for the given
// user, stamps last login, and issues the access session.
func (s *Service) authenticate(ctx context.Context, userID int64, password, ip string) (model.AccessSession, error) {
	key := fmt.Sprintf("%d", userID)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, key, ipHash)
	if err != nil {
		return model.AccessSession{}, err
	}
	if !allowed {
		return model.AccessSession{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.AccessSession{}, err
	}
	ok, err := s.verifier.Verify(password, u.PwdHash)
	if err != nil {
		return model.AccessSession{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, key, ipHash); ferr == nil && blocked {
			return model.AccessSession{}, errs.ErrRateLimited
		}
		return model.AccessSession{}, errs.ErrCredentialInvalid
	}

	// Reset counters (best-effort) and stamp the login.
	_ = s.lim.Success(ctx, key, ipHash)
	if err := s.users.TouchLastLogin(ctx, userID); err != nil {
		s.log.Warn("touch last login", zap.Int64("user_id", userID), zap.Error(err))
	}

	access, err := s.issuer.Issue(ctx, userID)
	if err != nil {
		return model.AccessSession{}, fmt.Errorf("issue session: %w", err)
	}
	return access, nil
}
