package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/limiter"
	"github.com/centbank/facegate/internal/match"
	"github.com/centbank/facegate/internal/model"
)

type fakeSource struct {
	emb model.Embedding
	err error
}

func (f *fakeSource) Extract(_ context.Context, _ string) (model.Embedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.emb, nil
}

type fakeMatcher struct {
	cand model.MatchCandidate
	err  error
}

func (f *fakeMatcher) Identify(_ model.Embedding, _ []model.Template) (model.MatchCandidate, error) {
	if f.err != nil {
		return model.MatchCandidate{}, f.err
	}
	return f.cand, nil
}

var _ match.Identifier = (*fakeMatcher)(nil)

type fakeUsers struct {
	byID    map[int64]*model.User
	touched []int64
}

func (f *fakeUsers) Create(context.Context, *model.User) error { return nil }

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByAccount(_ context.Context, account int64) (*model.User, error) {
	for _, u := range f.byID {
		if u.AccountNumber == account {
			return u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByName(_ context.Context, name string) (*model.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Name, name) {
			return u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) UpdateName(context.Context, int64, string) error     { return nil }
func (f *fakeUsers) UpdatePassword(context.Context, int64, string) error { return nil }

func (f *fakeUsers) TouchLastLogin(_ context.Context, id int64) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeUsers) List(context.Context) ([]model.User, error) { return nil, nil }

type fakeVerifier struct{}

// Verify treats hash as the expected plaintext, which keeps tests readable.
func (fakeVerifier) Verify(password, hash string) (bool, error) {
	return password == hash, nil
}

type fakeLimiter struct {
	blocked        bool
	blockOnFailure bool
	failures       int
	successes      int
}

func (f *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return !f.blocked, 0, nil
}

func (f *fakeLimiter) Success(context.Context, string, []byte) error {
	f.successes++
	return nil
}

func (f *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	f.failures++
	return f.blockOnFailure, 0, nil
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

type fakeIssuer struct {
	issued []int64
}

func (f *fakeIssuer) Issue(_ context.Context, userID int64) (model.AccessSession, error) {
	f.issued = append(f.issued, userID)
	return model.AccessSession{Token: "tok", SID: "sid", UserID: userID}, nil
}

type testEnv struct {
	svc      *Service
	registry *Registry
	source   *fakeSource
	matcher  *fakeMatcher
	users    *fakeUsers
	lim      *fakeLimiter
	issuer   *fakeIssuer
}

func newTestEnv(t *testing.T, maxAttempts int) *testEnv {
	t.Helper()
	env := &testEnv{
		registry: NewRegistry(time.Minute),
		source:   &fakeSource{emb: model.Embedding{1, 0, 0, 0}},
		matcher:  &fakeMatcher{cand: model.MatchCandidate{UserID: 12345, Distance: 0.1}},
		users: &fakeUsers{byID: map[int64]*model.User{
			12345: {ID: 12345, AccountNumber: 1000000001, Name: "Alice", PwdHash: "secret-pass"},
			54321: {ID: 54321, AccountNumber: 1000000002, Name: "Bob", PwdHash: "other-pass"},
		}},
		lim:    &fakeLimiter{},
		issuer: &fakeIssuer{},
	}
	env.svc = NewService(
		env.source, env.matcher, match.NewStore(nil), env.users,
		fakeVerifier{}, env.issuer, env.lim, env.registry,
		maxAttempts, zap.NewNop(),
	)
	return env
}

func (e *testEnv) begin(t *testing.T) *Session {
	t.Helper()
	sess, err := e.svc.BeginLogin()
	if err != nil {
		t.Fatalf("BeginLogin: %v", err)
	}
	return sess
}

// matched drives a session through the face step.
func (e *testEnv) matched(t *testing.T) *Session {
	t.Helper()
	sess := e.begin(t)
	out, err := e.svc.SubmitFrame(context.Background(), sess.ID, "frame")
	if err != nil || !out.Matched {
		t.Fatalf("SubmitFrame: out=%+v err=%v", out, err)
	}
	return sess
}

func TestSubmitFrame_UnknownSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	sess := env.begin(t)
	env.registry.Remove(sess.ID)

	if _, err := env.svc.SubmitFrame(context.Background(), sess.ID, "frame"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSubmitFrame_NoFacePending(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	env.source.err = errs.ErrNoFace
	sess := env.begin(t)

	out, err := env.svc.SubmitFrame(context.Background(), sess.ID, "frame")
	if err != nil {
		t.Fatalf("SubmitFrame: %v", err)
	}
	if out.Matched || out.Reason != "no-face" || out.Attempts != 1 {
		t.Fatalf("out = %+v", out)
	}
	if out.Hint != "looking-for-face" {
		t.Fatalf("hint = %q", out.Hint)
	}
	if sess.State() != model.FacePending {
		t.Fatalf("state = %v, want FacePending", sess.State())
	}
}

func TestSubmitFrame_HintBands(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 100)
	env.matcher.err = errs.ErrNoMatch
	sess := env.begin(t)

	wantAt := map[int]string{
		1:  "looking-for-face",
		5:  "looking-for-face",
		6:  "center-your-face",
		15: "center-your-face",
		16: "recognition-in-progress",
	}
	for i := 1; i <= 16; i++ {
		out, err := env.svc.SubmitFrame(context.Background(), sess.ID, "frame")
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if out.Reason != "no-match" || out.Attempts != i {
			t.Fatalf("frame %d: out = %+v", i, out)
		}
		if want, ok := wantAt[i]; ok && out.Hint != want {
			t.Fatalf("frame %d: hint = %q, want %q", i, out.Hint, want)
		}
	}
}

func TestSubmitFrame_AttemptCap(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 3)
	env.matcher.err = errs.ErrNoMatch
	sess := env.begin(t)

	for i := 0; i < 3; i++ {
		if _, err := env.svc.SubmitFrame(context.Background(), sess.ID, "frame"); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if _, err := env.svc.SubmitFrame(context.Background(), sess.ID, "frame"); !errors.Is(err, errs.ErrMaxAttempts) {
		t.Fatalf("err = %v, want ErrMaxAttempts", err)
	}
	if sess.State() != model.Failed {
		t.Fatalf("state = %v, want Failed", sess.State())
	}
	if _, err := env.svc.SubmitFrame(context.Background(), sess.ID, "frame"); !errors.Is(err, errs.ErrSessionTerminal) {
		t.Fatalf("after failure: err = %v, want ErrSessionTerminal", err)
	}
}

func TestSubmitFrame_Expired(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	sess := env.begin(t)
	sess.Deadline = time.Now().Add(-time.Second)

	if _, err := env.svc.SubmitFrame(context.Background(), sess.ID, "frame"); !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if sess.State() != model.Failed {
		t.Fatalf("state = %v, want Failed", sess.State())
	}
}

func TestSubmitFrame_MatchAdvancesToPassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	sess := env.begin(t)

	out, err := env.svc.SubmitFrame(context.Background(), sess.ID, "frame")
	if err != nil {
		t.Fatalf("SubmitFrame: %v", err)
	}
	if !out.Matched || out.UserID != 12345 || out.Attempts != 1 {
		t.Fatalf("out = %+v", out)
	}
	if sess.State() != model.AwaitingPassword || sess.MatchedUser() != 12345 {
		t.Fatalf("state = %v, matched = %d", sess.State(), sess.MatchedUser())
	}

	// Further frames are rejected once the face step is done.
	if _, err := env.svc.SubmitFrame(context.Background(), sess.ID, "frame"); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("extra frame: err = %v, want ErrInvalidTransition", err)
	}
}

func TestSubmitPassword_BeforeMatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	sess := env.begin(t)

	_, err := env.svc.SubmitPassword(context.Background(), sess.ID, 12345, "secret-pass", "10.0.0.1")
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestSubmitPassword_Expired(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	sess := env.matched(t)
	sess.Deadline = time.Now().Add(-time.Second)

	_, err := env.svc.SubmitPassword(context.Background(), sess.ID, 12345, "secret-pass", "10.0.0.1")
	if !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if sess.State() != model.Failed {
		t.Fatalf("state = %v, want Failed", sess.State())
	}
	if len(env.issuer.issued) != 0 {
		t.Fatalf("issuer called %d times", len(env.issuer.issued))
	}
}

func TestSubmitPassword_IdentityMismatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	sess := env.matched(t)

	// Bob's credentials are valid for Bob, but the session is pinned to Alice.
	_, err := env.svc.SubmitPassword(context.Background(), sess.ID, 54321, "other-pass", "10.0.0.1")
	if !errors.Is(err, errs.ErrIdentityMismatch) {
		t.Fatalf("err = %v, want ErrIdentityMismatch", err)
	}
	if sess.State() != model.Failed {
		t.Fatalf("state = %v, want Failed", sess.State())
	}
	if len(env.issuer.issued) != 0 {
		t.Fatalf("issuer called %d times", len(env.issuer.issued))
	}
}

func TestSubmitPassword_WrongPassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	sess := env.matched(t)

	_, err := env.svc.SubmitPassword(context.Background(), sess.ID, 12345, "wrong", "10.0.0.1")
	if !errors.Is(err, errs.ErrCredentialInvalid) {
		t.Fatalf("err = %v, want ErrCredentialInvalid", err)
	}
	if sess.State() != model.Failed {
		t.Fatalf("state = %v, want Failed", sess.State())
	}
	if env.lim.failures != 1 {
		t.Fatalf("limiter failures = %d, want 1", env.lim.failures)
	}
}

func TestSubmitPassword_RateLimited(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	sess := env.matched(t)
	env.lim.blocked = true

	_, err := env.svc.SubmitPassword(context.Background(), sess.ID, 12345, "secret-pass", "10.0.0.1")
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if sess.State() != model.Failed {
		t.Fatalf("state = %v, want Failed", sess.State())
	}
}

func TestSubmitPassword_Success(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)
	sess := env.matched(t)

	access, err := env.svc.SubmitPassword(context.Background(), sess.ID, 12345, "secret-pass", "10.0.0.1")
	if err != nil {
		t.Fatalf("SubmitPassword: %v", err)
	}
	if access.UserID != 12345 || access.Token == "" {
		t.Fatalf("access = %+v", access)
	}
	if sess.State() != model.Authenticated {
		t.Fatalf("state = %v, want Authenticated", sess.State())
	}
	if len(env.issuer.issued) != 1 || env.issuer.issued[0] != 12345 {
		t.Fatalf("issued = %v", env.issuer.issued)
	}
	if len(env.users.touched) != 1 || env.users.touched[0] != 12345 {
		t.Fatalf("touched = %v", env.users.touched)
	}
	if env.lim.successes != 1 {
		t.Fatalf("limiter successes = %d", env.lim.successes)
	}
	// The login session is gone once the access session is out.
	if _, err := env.registry.Get(sess.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("registry still holds session: %v", err)
	}
}

func TestDirectLogin_UnknownUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)

	_, _, err := env.svc.DirectLogin(context.Background(), "nobody", "whatever", "10.0.0.1")
	if !errors.Is(err, errs.ErrCredentialInvalid) {
		t.Fatalf("err = %v, want ErrCredentialInvalid", err)
	}
}

func TestDirectLogin_Success(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 0)

	access, u, err := env.svc.DirectLogin(context.Background(), "alice", "secret-pass", "10.0.0.1")
	if err != nil {
		t.Fatalf("DirectLogin: %v", err)
	}
	if u == nil || u.ID != 12345 || access.UserID != 12345 {
		t.Fatalf("u = %+v, access = %+v", u, access)
	}
}
