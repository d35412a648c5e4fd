package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/store"
)

// DefaultEmailHeader is read by the header resolver.
const DefaultEmailHeader = "X-User-Email"

// Resolver turns an incoming request into a principal. Implementations return
// an error wrapping apperr.ErrUnauthenticated when no valid identity is present.
type Resolver interface {
	Resolve(r *http.Request) (models.Principal, error)
}

// HeaderResolver trusts an upstream proxy to put the user's email in a header.
type HeaderResolver struct {
	Users  store.Users
	Header string
}

// Resolve implements Resolver.
func (h *HeaderResolver) Resolve(r *http.Request) (models.Principal, error) {
	name := h.Header
	if name == "" {
		name = DefaultEmailHeader
	}
	email := strings.TrimSpace(r.Header.Get(name))
	if email == "" {
		return models.Principal{}, fmt.Errorf("%w: missing %s header", apperr.ErrUnauthenticated, name)
	}
	return lookup(r.Context(), h.Users, email)
}

// JWTResolver verifies an "Authorization: Bearer <token>" header.
type JWTResolver struct {
	Users  store.Users
	Tokens *TokenManager
}

// Resolve implements Resolver.
func (j *JWTResolver) Resolve(r *http.Request) (models.Principal, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return models.Principal{}, fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthenticated)
	}
	email, err := j.Tokens.Parse(token)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	return lookup(r.Context(), j.Users, email)
}

func lookup(ctx context.Context, users store.Users, email string) (models.Principal, error) {
	u, err := users.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Principal{}, fmt.Errorf("%w: unknown user", apperr.ErrUnauthenticated)
	}
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{ID: u.ID, Email: u.Email}, nil
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok && p.ID != ""
}
