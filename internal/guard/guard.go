// Package guard decides, for one guarded navigation, whether the caller is
// authenticated and whether its role may enter the destination. As a side
// effect it keeps the stored session fresh: an expired access token triggers
// a single silent refresh, and an irrecoverable refresh destroys the session.
package guard

import (
	"context"
	"strings"
	"time"

	"huntlab.org/internal/audit"
	"huntlab.org/internal/obs"
	"huntlab.org/internal/routes"
	"huntlab.org/internal/session"
)

// Status is the resolution of one guard evaluation.
type Status uint8

const (
	StatusPending Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "pending"
	}
}

// Decision is produced once per guarded navigation and is not persisted.
// The zero value is the pending state. A non-empty Redirect tells the caller
// to navigate away instead of rendering; an authenticated decision with a
// redirect means the role was denied for the destination, which is not an
// error surfaced to the user.
type Decision struct {
	Status   Status
	Role     session.Role
	Redirect routes.Destination
}

// Refresher exchanges a refresh token for a new access token. Satisfied by
// api.Client. A single failure is terminal for the evaluation; the guard
// never retries.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Guard evaluates guarded navigations against the process-wide session
// store. Evaluations never fail past the guard boundary: every failure mode
// resolves to an unauthenticated decision with a login redirect.
type Guard struct {
	store     session.Store
	refresher Refresher
	now       func() time.Time
}

func New(store session.Store, refresher Refresher) *Guard {
	return &Guard{store: store, refresher: refresher, now: time.Now}
}

// Evaluate runs the guard state machine for dest. The store is re-read on
// every call; a decision is never cached across evaluations, so a session
// cleared elsewhere is noticed immediately.
func (g *Guard) Evaluate(ctx context.Context, dest routes.Destination) Decision {
	dec := g.evaluate(ctx, dest)
	obs.ObserveGuardDecision(dec.Status.String())
	return dec
}

func (g *Guard) evaluate(ctx context.Context, dest routes.Destination) Decision {
	sess, ok, err := g.store.Get()
	if err != nil || !ok {
		return loginRedirect()
	}

	// Access token absence wins over everything else, including a refresh
	// token that is still present.
	if strings.TrimSpace(sess.AccessToken) == "" {
		return loginRedirect()
	}

	expiresAt, err := accessExpiry(sess.AccessToken)
	if err != nil {
		return loginRedirect()
	}

	if g.now().After(expiresAt) {
		refreshed, ok := g.refresh(ctx, &sess)
		if !ok {
			return loginRedirect()
		}
		sess = refreshed
	}

	return g.gate(sess.Role(), dest)
}

// refresh runs the single-attempt refresh protocol. On any failure the
// session is destroyed; the caller must re-authenticate via login.
func (g *Guard) refresh(ctx context.Context, sess *session.Session) (session.Session, bool) {
	refreshToken := strings.TrimSpace(sess.RefreshToken)
	if refreshToken == "" {
		g.clear(ctx, "refresh token missing")
		return session.Session{}, false
	}

	access, err := g.refresher.Refresh(ctx, refreshToken)
	if err != nil || strings.TrimSpace(access) == "" {
		g.clear(ctx, "refresh rejected")
		return session.Session{}, false
	}

	next := *sess
	next.AccessToken = access
	if err := g.store.Set(next); err != nil {
		// The new token is good even if persisting it failed; the next
		// evaluation will simply refresh again.
		obs.LogEvent(map[string]any{"level": "warn", "msg": "session persist failed", "error": err.Error()})
	}
	_ = audit.LogEvent(ctx, "session.refreshed", nil)
	return next, true
}

func (g *Guard) clear(ctx context.Context, reason string) {
	if err := g.store.Clear(); err != nil {
		obs.LogEvent(map[string]any{"level": "warn", "msg": "session clear failed", "error": err.Error()})
	}
	_ = audit.LogEvent(ctx, "session.cleared", map[string]any{"reason": reason})
}

// gate applies the route authorization policy to an authenticated session.
func (g *Guard) gate(role session.Role, dest routes.Destination) Decision {
	if routes.Permits(dest, role) {
		return Decision{Status: StatusAuthenticated, Role: role}
	}
	return Decision{Status: StatusAuthenticated, Role: role, Redirect: routes.Home(role)}
}

func loginRedirect() Decision {
	return Decision{Status: StatusUnauthenticated, Redirect: routes.DestLogin}
}
