package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/BradenHooton/offeradmin/internal/models"
	pkghttp "github.com/BradenHooton/offeradmin/pkg/http"
)

type contextKey string

const claimsContextKey contextKey = "session_claims"

// SessionChecker re-validates the active session on every request
type SessionChecker interface {
	CheckSession(ctx context.Context) (*models.Session, error)
}

// RequireSession accepts a request only when its bearer token is valid and
// names the currently active, unexpired session.
func RequireSession(tm *TokenManager, checker SessionChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := tm.Validate(tokenString)
			if err != nil {
				if errors.Is(err, models.ErrSessionExpired) {
					pkghttp.WriteError(w, http.StatusUnauthorized, "session_expired", "session expired, please log in again")
					return
				}
				pkghttp.WriteUnauthorized(w, "invalid token")
				return
			}

			session, err := checker.CheckSession(r.Context())
			switch {
			case errors.Is(err, models.ErrSessionExpired):
				pkghttp.WriteError(w, http.StatusUnauthorized, "session_expired", "session expired, please log in again")
				return
			case err != nil:
				pkghttp.WriteUnauthorized(w, "not authenticated")
				return
			case session.ID != claims.SessionID:
				// token from a session that was logged out or replaced
				pkghttp.WriteUnauthorized(w, "session is no longer active")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// ContextWithClaims attaches verified claims to ctx
func ContextWithClaims(ctx context.Context, claims *models.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the claims stored by RequireSession, or nil
func ClaimsFromContext(ctx context.Context) *models.SessionClaims {
	claims, _ := ctx.Value(claimsContextKey).(*models.SessionClaims)
	return claims
}

// UsernameFromContext is a convenience for audit logging
func UsernameFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.Username
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
