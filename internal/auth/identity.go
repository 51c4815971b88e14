// internal/auth/identity.go
package auth

import "context"

// Identity is the caller established for one request.
// The zero value is the anonymous identity.
type Identity struct {
	Subject       string
	Authenticated bool
}

// Anonymous is the identity of a request without a valid token.
var Anonymous = Identity{}

// Authenticated returns an authenticated identity for subject.
func Authenticated(subject string) Identity {
	return Identity{Subject: subject, Authenticated: true}
}

// IsAuthenticated reports whether the identity carries a verified subject.
func (i Identity) IsAuthenticated() bool {
	return i.Authenticated && i.Subject != ""
}

type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity attached to ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// FromContext returns the identity attached to ctx or Anonymous.
func FromContext(ctx context.Context) Identity {
	if id, ok := IdentityFromContext(ctx); ok {
		return id
	}
	return Anonymous
}
