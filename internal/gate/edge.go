package gate

import (
	"net/http"

	"github.com/rs/zerolog"

	"jobfolio/web/internal/route"
)

// Edge is the request-time instance of the gate.
type Edge struct {
	resolver *Resolver
}

func NewEdge(resolver *Resolver) *Edge {
	return &Edge{resolver: resolver}
}

func (e *Edge) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetSecurityHeaders(w.Header())

		path := r.URL.Path
		if route.IsStatic(path) {
			next.ServeHTTP(w, r)
			return
		}

		sess, _ := e.resolver.Resolve(r.Context(), e.resolver.EdgeStore(w, r))
		class := route.Classify(path)
		decision := Decide(class, sess, path)

		switch decision.Kind {
		case RedirectLogin:
			zerolog.Ctx(r.Context()).Debug().Str("path", path).Str("layer", "edge").Msg("redirect to login")
			SetNoCache(w.Header())
			http.Redirect(w, r, decision.Location, http.StatusTemporaryRedirect)
			return
		case RedirectDashboard:
			zerolog.Ctx(r.Context()).Debug().Str("path", path).Str("layer", "edge").Msg("redirect to dashboard")
			http.Redirect(w, r, decision.Location, http.StatusTemporaryRedirect)
			return
		}

		if class == route.Protected && sess.Authenticated() {
			SetNoCache(w.Header())
		}

		if route.IsAPI(path) && sess.Authenticated() && r.Header.Get(UserIDHeader) == "" {
			r = r.Clone(r.Context())
			r.Header.Set(UserIDHeader, sess.UserID)
		}

		next.ServeHTTP(w, r)
	})
}
