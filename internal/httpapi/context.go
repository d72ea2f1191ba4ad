package httpapi

import (
	"context"

	"github.com/jtsaich/fda-search-sub000/internal/rbac"
	"github.com/jtsaich/fda-search-sub000/internal/session"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	principalKey
)

// Principal is the authenticated caller attached to a request context: the
// verified token identity plus its registered profile.
type Principal struct {
	Identity session.Identity
	Profile  *rbac.UserProfile
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id set by the RequestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func contextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
