// internal/api/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"streamcart-orders/internal/auth"
	"streamcart-orders/internal/domain"
)

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	ExtractSubject(token string) (string, bool)
	Validate(token, expectedSubject string) bool
}

// UserLoader resolves a token subject to a stored user.
type UserLoader interface {
	LoadForAuthentication(ctx context.Context, username string) (*domain.User, bool)
}

// Authenticator establishes the request identity from a bearer token.
// It never rejects a request: anything short of a fully verified token
// leaves the request anonymous, and handlers decide what that means.
type Authenticator struct {
	tokens TokenVerifier
	users  UserLoader
	logger *slog.Logger
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(tokens TokenVerifier, users UserLoader, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		tokens: tokens,
		users:  users,
		logger: logger.With("component", "auth_middleware"),
	}
}

// Middleware attaches the established identity to the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		identity := a.identify(r)
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// identify returns the verified identity for r or auth.Anonymous.
func (a *Authenticator) identify(r *http.Request) (identity auth.Identity) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.ErrorContext(r.Context(), "Panic while authenticating request",
				"panic", fmt.Sprint(rec),
				"path", r.URL.Path,
			)
			identity = auth.Anonymous
		}
	}()

	token, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		if !errors.Is(err, errNoAuthorization) {
			a.logger.DebugContext(r.Context(), "Ignoring authorization header", "error", err, "path", r.URL.Path)
		}
		return auth.Anonymous
	}

	subject, ok := a.tokens.ExtractSubject(token)
	if !ok {
		a.logger.WarnContext(r.Context(), "Bearer token could not be parsed", "path", r.URL.Path)
		return auth.Anonymous
	}

	user, ok := a.users.LoadForAuthentication(r.Context(), subject)
	if !ok {
		a.logger.WarnContext(r.Context(), "Bearer token subject is not a known user",
			"username", subject,
			"path", r.URL.Path,
		)
		return auth.Anonymous
	}

	if !a.tokens.Validate(token, user.Username) {
		a.logger.DebugContext(r.Context(), "Bearer token rejected", "username", subject, "path", r.URL.Path)
		return auth.Anonymous
	}

	return auth.Authenticated(user.Username)
}

var errNoAuthorization = errors.New("missing authorization header")

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errNoAuthorization
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
