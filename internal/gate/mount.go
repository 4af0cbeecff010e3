package gate

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"jobfolio/web/internal/route"
	"jobfolio/web/internal/session"
)

// Phase is the per-navigation state of the mount guard.
type Phase string

const (
	PhaseResolving              Phase = "resolving"
	PhaseAllowed                Phase = "allowed"
	PhaseRedirectingToLogin     Phase = "redirecting_to_login"
	PhaseRedirectingToDashboard Phase = "redirecting_to_dashboard"
)

// Next moves a resolving navigation to its terminal phase.
func Next(d Decision) Phase {
	switch d.Kind {
	case RedirectLogin:
		return PhaseRedirectingToLogin
	case RedirectDashboard:
		return PhaseRedirectingToDashboard
	default:
		return PhaseAllowed
	}
}

type phaseKey struct{}

func PhaseFromContext(ctx context.Context) Phase {
	if p, ok := ctx.Value(phaseKey{}).(Phase); ok {
		return p
	}
	return PhaseResolving
}

// Mount is the page-level instance of the gate. It does not trust the edge
// decision and resolves the session again from the client store.
type Mount struct {
	resolver *Resolver
	// loading renders the neutral shell shown while a verdict is unavailable.
	loading http.Handler
}

func NewMount(resolver *Resolver, loading http.Handler) *Mount {
	return &Mount{resolver: resolver, loading: loading}
}

func (m *Mount) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), phaseKey{}, PhaseResolving)
		r = r.WithContext(ctx)

		path := r.URL.Path
		class := route.Classify(path)
		sess, err := m.resolver.Resolve(ctx, m.resolver.ClientStore(w, r))
		if err != nil && class == route.Protected {
			// no trustworthy verdict; keep the page neutral and retry
			SetNoCache(w.Header())
			if m.loading != nil {
				m.loading.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		decision := Decide(class, sess, path)
		phase := Next(decision)
		switch phase {
		case PhaseRedirectingToLogin:
			zerolog.Ctx(ctx).Debug().Str("path", path).Str("layer", "mount").Msg("redirect to login")
			SetNoCache(w.Header())
			http.Redirect(w, r, decision.Location, http.StatusFound)
			return
		case PhaseRedirectingToDashboard:
			zerolog.Ctx(ctx).Debug().Str("path", path).Str("layer", "mount").Msg("redirect to dashboard")
			http.Redirect(w, r, decision.Location, http.StatusFound)
			return
		}

		if class == route.Protected && sess.Authenticated() {
			SetNoCache(w.Header())
		}

		ctx = context.WithValue(ctx, phaseKey{}, phase)
		ctx = session.WithSession(ctx, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
