package gate

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"jobfolio/web/internal/route"
	"jobfolio/web/internal/session"
)

type Kind string

const (
	Allow             Kind = "allow"
	RedirectLogin     Kind = "redirect_login"
	RedirectDashboard Kind = "redirect_dashboard"
)

// ReasonAuthRequired is sent to the login page with every forced redirect.
const ReasonAuthRequired = "auth_required"

// UserIDHeader forwards the cookie user id on API requests. It is a claim, not
// an identity: API handlers reject a value that differs from the user the
// backend reports for the token.
const UserIDHeader = "x-user-id"

type Decision struct {
	Kind     Kind
	Location string
}

// Decide combines a route class and a session into a navigation decision.
func Decide(class route.Class, s session.Session, path string) Decision {
	switch {
	case class == route.Protected && !s.Authenticated():
		return Decision{Kind: RedirectLogin, Location: LoginURL(path)}
	case class == route.AuthOnly && s.Authenticated():
		return Decision{Kind: RedirectDashboard, Location: route.DashboardPath}
	default:
		return Decision{Kind: Allow}
	}
}

// LoginURL builds the login target that brings the user back to path.
func LoginURL(path string) string {
	return route.LoginPath + "?redirect=" + url.QueryEscape(path) + "&reason=" + ReasonAuthRequired
}

// SetSecurityHeaders adds the headers every response carries.
func SetSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

// SetNoCache suppresses caching of login redirects and protected pages.
func SetNoCache(h http.Header) {
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

// Resolver builds credential stores for a request and resolves them.
type Resolver struct {
	// Volatile is nil when only cookies are available.
	Volatile       session.Volatile
	Cookies        session.CookieOptions
	ClientIDCookie string
}

// EdgeStore sees cookies only.
func (r *Resolver) EdgeStore(w http.ResponseWriter, req *http.Request) *session.Store {
	return session.NewStore(session.NewCookieSubstrate(req, w, r.Cookies))
}

// ClientStore sees the client's volatile substrate first, then cookies.
func (r *Resolver) ClientStore(w http.ResponseWriter, req *http.Request) *session.Store {
	cookies := session.NewCookieSubstrate(req, w, r.Cookies)
	if r.Volatile == nil {
		return session.NewStore(cookies)
	}
	name := r.ClientIDCookie
	if name == "" {
		name = "jf_client"
	}
	clientID := session.EnsureClientID(w, req, name, r.Cookies)
	return session.NewStore(r.Volatile.For(clientID), cookies)
}

// Resolve logs resolution failures and returns the verdict alongside them.
func (r *Resolver) Resolve(ctx context.Context, store *session.Store) (session.Session, error) {
	s, err := session.Resolve(ctx, store)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("session resolution failed")
	}
	if s.Status == session.StatusIncomplete {
		zerolog.Ctx(ctx).Debug().Msg("purged incomplete session")
	}
	return s, err
}
