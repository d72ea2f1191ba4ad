package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jtsaich/fda-search-sub000/internal/rbac"
)

// withSession resolves the cookie-backed session into a request principal.
// Resolution failures leave the request unauthenticated; the decision whether
// that is fatal belongs to requireAuth on protected routes.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _, err := a.reader.Identity(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		profile, err := a.resolver.ResolveProfile(r.Context(), identity.UserID)
		if err != nil {
			// A verified token without a registered profile is still
			// unauthenticated for this service. Backend trouble is not.
			if errors.Is(err, rbac.ErrBackend) {
				writeRBACError(w, err)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := contextWithPrincipal(r.Context(), &Principal{Identity: identity, Profile: profile})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth gates a protected route. Browser navigations are redirected to
// the login page; API clients get a 401 JSON body.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			if wantsHTML(r) {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func wantsHTML(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}

// callerProfile returns the authenticated profile, or nil when the request is
// unauthenticated. Nil flows into the role-admin guard, which turns it into
// an authentication error.
func callerProfile(r *http.Request) *rbac.UserProfile {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	return p.Profile
}
