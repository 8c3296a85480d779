package auth

import "context"

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSession sets the session claims in the given context
func WithSession(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, sessionCtxKey, claims)
}

// SessionFromContext finds the session claims from the context.
func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*SessionClaims)
	return raw, ok
}

// IsGuestContext reports whether the context carries a guest session.
func IsGuestContext(ctx context.Context) bool {
	claims, ok := SessionFromContext(ctx)
	return ok && claims.IsGuest()
}
