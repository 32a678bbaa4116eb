package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/offeradmin/internal/auth"
	pkglogger "github.com/BradenHooton/offeradmin/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// SecureLogger logs one line per request. Query strings naming a
// credential are replaced with [REDACTED].
func SecureLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// The session middleware runs inside this one, so the claims
			// are only visible through the request it hands downstream.
			var username string
			next.ServeHTTP(wrapped, r.WithContext(withUsernameSink(r.Context(), &username)))

			path := r.URL.Path
			if pkglogger.SanitizeQueryString(r.URL.RawQuery) {
				path += "?[REDACTED]"
			} else if r.URL.RawQuery != "" {
				path += "?" + r.URL.RawQuery
			}

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.String("duration", time.Since(start).String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if username != "" {
				attrs = append(attrs, slog.String("username", username))
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(context.Background(), level, "http_request", attrs...)
		})
	}
}

type usernameSinkKey struct{}

func withUsernameSink(ctx context.Context, dst *string) context.Context {
	return context.WithValue(ctx, usernameSinkKey{}, dst)
}

// RecordUser copies the authenticated username into the request log line.
// Mount it after auth.RequireSession.
func RecordUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dst, ok := r.Context().Value(usernameSinkKey{}).(*string); ok {
			*dst = auth.UsernameFromContext(r.Context())
		}
		next.ServeHTTP(w, r)
	})
}
