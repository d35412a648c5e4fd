// Package api implements the notehub REST API using chi.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/auth"
)

// PrincipalMiddleware resolves the caller with resolver and stores the
// principal in the request context. Requests without a valid identity get 401.
func PrincipalMiddleware(resolver auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolver.Resolve(r)
			if err != nil {
				if !errors.Is(err, apperr.ErrUnauthenticated) {
					slog.Error("resolve principal failed", slog.String("error", err.Error()))
					writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
					return
				}
				slog.Debug("unauthenticated request", slog.String("path", r.URL.Path), slog.String("reason", err.Error()))
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}
