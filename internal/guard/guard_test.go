package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"huntlab.org/internal/routes"
	"huntlab.org/internal/session"
)

type fakeRefresher struct {
	calls  int
	gotTok string
	access string
	err    error
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (string, error) {
	f.calls++
	f.gotTok = refreshToken
	return f.access, f.err
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newGuard(store session.Store, r Refresher, now time.Time) *Guard {
	g := New(store, r)
	g.now = func() time.Time { return now }
	return g
}

func hunterSession(t *testing.T, exp time.Time) session.Session {
	t.Helper()
	return session.Session{
		AccessToken:  signedToken(t, jwt.MapClaims{"exp": exp.Unix()}),
		RefreshToken: "ref-token",
		User:         &session.UserProfile{Username: "h1", Role: session.RoleHunter},
	}
}

func TestEvaluateNoSession(t *testing.T) {
	ref := &fakeRefresher{}
	g := newGuard(session.NewMemStore(), ref, time.Now())

	dec := g.Evaluate(context.Background(), routes.DestDashboard)
	if dec.Status != StatusUnauthenticated || dec.Redirect != routes.DestLogin {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if ref.calls != 0 {
		t.Fatalf("refresher must not be called without a session")
	}
}

func TestEvaluateMissingAccessTokenSkipsRefresh(t *testing.T) {
	store := session.NewMemStore()
	// Only a refresh token: access absence is checked first, independent of
	// refresh-token presence.
	_ = store.Set(session.Session{RefreshToken: "ref-token"})
	ref := &fakeRefresher{access: "new-access"}
	g := newGuard(store, ref, time.Now())

	dec := g.Evaluate(context.Background(), routes.DestDashboard)
	if dec.Status != StatusUnauthenticated {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if ref.calls != 0 {
		t.Fatalf("refresher called %d times, want 0", ref.calls)
	}
}

func TestEvaluateMalformedToken(t *testing.T) {
	store := session.NewMemStore()
	_ = store.Set(session.Session{AccessToken: "not-a-jwt", RefreshToken: "ref"})
	ref := &fakeRefresher{}
	g := newGuard(store, ref, time.Now())

	dec := g.Evaluate(context.Background(), routes.DestDashboard)
	if dec.Status != StatusUnauthenticated {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if ref.calls != 0 {
		t.Fatalf("malformed token must not trigger refresh")
	}
}

func TestEvaluateTokenWithoutExpiry(t *testing.T) {
	store := session.NewMemStore()
	_ = store.Set(session.Session{
		AccessToken:  signedToken(t, jwt.MapClaims{"sub": "h1"}),
		RefreshToken: "ref",
	})
	g := newGuard(store, &fakeRefresher{}, time.Now())

	if dec := g.Evaluate(context.Background(), routes.DestDashboard); dec.Status != StatusUnauthenticated {
		t.Fatalf("token without exp must be unauthenticated, got %+v", dec)
	}
}

func TestEvaluateFreshTokenAllowed(t *testing.T) {
	now := time.Now()
	store := session.NewMemStore()
	_ = store.Set(hunterSession(t, now.Add(10*time.Minute)))
	ref := &fakeRefresher{}
	g := newGuard(store, ref, now)

	dec := g.Evaluate(context.Background(), routes.DestDashboard)
	if dec.Status != StatusAuthenticated || dec.Redirect != "" || dec.Role != session.RoleHunter {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if ref.calls != 0 {
		t.Fatalf("fresh token must not trigger refresh")
	}
}

func TestEvaluateRoleDeniedRedirectsHome(t *testing.T) {
	now := time.Now()
	store := session.NewMemStore()
	_ = store.Set(hunterSession(t, now.Add(10*time.Minute)))
	g := newGuard(store, &fakeRefresher{}, now)

	dec := g.Evaluate(context.Background(), routes.DestAnalyst)
	if dec.Status != StatusAuthenticated {
		t.Fatalf("role denial is not an authentication failure: %+v", dec)
	}
	if dec.Redirect != routes.DestDashboard {
		t.Fatalf("hunter must be redirected home, got %s", dec.Redirect)
	}
}

func TestEvaluateUnknownRoleRedirectsToLogin(t *testing.T) {
	now := time.Now()
	store := session.NewMemStore()
	sess := hunterSession(t, now.Add(10*time.Minute))
	sess.User.Role = session.Role("auditor")
	_ = store.Set(sess)
	g := newGuard(store, &fakeRefresher{}, now)

	dec := g.Evaluate(context.Background(), routes.DestAnalyst)
	if dec.Status != StatusAuthenticated || dec.Redirect != routes.DestLogin {
		t.Fatalf("unknown role must fall back to login, got %+v", dec)
	}
}

func TestEvaluateExpiredTokenRefreshes(t *testing.T) {
	now := time.Now()
	store := session.NewMemStore()
	_ = store.Set(hunterSession(t, now.Add(-time.Minute)))
	newAccess := signedToken(t, jwt.MapClaims{"exp": now.Add(15 * time.Minute).Unix()})
	ref := &fakeRefresher{access: newAccess}
	g := newGuard(store, ref, now)

	dec := g.Evaluate(context.Background(), routes.DestDashboard)
	if dec.Status != StatusAuthenticated || dec.Redirect != "" {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if ref.calls != 1 || ref.gotTok != "ref-token" {
		t.Fatalf("refresh protocol not followed: calls=%d token=%q", ref.calls, ref.gotTok)
	}

	stored, ok, err := store.Get()
	if err != nil || !ok {
		t.Fatalf("session lost after refresh: ok=%v err=%v", ok, err)
	}
	if stored.AccessToken != newAccess {
		t.Fatalf("access token not replaced in store")
	}
	if stored.RefreshToken != "ref-token" {
		t.Fatalf("refresh token must not rotate")
	}
}

func TestEvaluateRefreshFailureClearsSession(t *testing.T) {
	now := time.Now()
	store := session.NewMemStore()
	_ = store.Set(hunterSession(t, now.Add(-time.Minute)))
	ref := &fakeRefresher{err: errors.New("backend unreachable")}
	g := newGuard(store, ref, now)

	dec := g.Evaluate(context.Background(), routes.DestDashboard)
	if dec.Status != StatusUnauthenticated || dec.Redirect != routes.DestLogin {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if ref.calls != 1 {
		t.Fatalf("refresh attempted %d times, want exactly 1", ref.calls)
	}
	if _, ok, _ := store.Get(); ok {
		t.Fatalf("session must be destroyed after refresh failure")
	}
}

func TestEvaluateExpiredWithoutRefreshTokenClears(t *testing.T) {
	now := time.Now()
	store := session.NewMemStore()
	sess := hunterSession(t, now.Add(-time.Minute))
	sess.RefreshToken = ""
	_ = store.Set(sess)
	ref := &fakeRefresher{}
	g := newGuard(store, ref, now)

	dec := g.Evaluate(context.Background(), routes.DestDashboard)
	if dec.Status != StatusUnauthenticated {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if ref.calls != 0 {
		t.Fatalf("no refresh request without a refresh token")
	}
	if _, ok, _ := store.Get(); ok {
		t.Fatalf("session must be cleared")
	}
}

func TestEvaluateReReadsStoreEveryCall(t *testing.T) {
	now := time.Now()
	store := session.NewMemStore()
	_ = store.Set(hunterSession(t, now.Add(10*time.Minute)))
	g := newGuard(store, &fakeRefresher{}, now)

	if dec := g.Evaluate(context.Background(), routes.DestDashboard); dec.Status != StatusAuthenticated {
		t.Fatalf("precondition failed: %+v", dec)
	}

	// Concurrent logout in another view.
	_ = store.Clear()

	if dec := g.Evaluate(context.Background(), routes.DestDashboard); dec.Status != StatusUnauthenticated {
		t.Fatalf("guard acted on a cached session: %+v", dec)
	}
}

func TestDecisionZeroValueIsPending(t *testing.T) {
	var dec Decision
	if dec.Status != StatusPending || dec.Status.String() != "pending" {
		t.Fatalf("zero decision must be pending, got %+v", dec)
	}
}
