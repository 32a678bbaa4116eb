package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
	pkghttp "github.com/BradenHooton/offeradmin/pkg/http"
)

// writeServiceError maps service errors onto HTTP responses. Unknown errors
// are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		ve      *models.ValidationError
		authErr *models.AuthError
	)

	switch {
	case errors.As(err, &ve):
		pkghttp.WriteValidationError(w, ve.Field, ve.Message)
	case errors.As(err, &authErr):
		writeAuthError(w, authErr)
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "not authenticated")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "resource already exists")
	case errors.Is(err, models.ErrOperationInProgress):
		pkghttp.WriteError(w, http.StatusConflict, "operation_in_progress", "another operation is in progress, try again")
	case errors.Is(err, models.ErrStorageQuotaExceeded):
		pkghttp.WriteInsufficientStorage(w, "storage quota exceeded")
	case errors.Is(err, models.ErrStorage):
		logger.Error("storage failure", slog.Any("error", err))
		pkghttp.WriteServiceUnavailable(w, "storage unavailable")
	default:
		logger.Error("unhandled service error", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "internal server error")
	}
}

func writeAuthError(w http.ResponseWriter, authErr *models.AuthError) {
	switch authErr.Kind {
	case models.AuthAccountLocked:
		retry := authErr.RetryAfter(time.Now())
		pkghttp.WriteLocked(w,
			fmt.Sprintf("too many failed attempts, try again in %d minutes", minutesCeil(retry)),
			retry)
	case models.AuthSessionExpired:
		pkghttp.WriteError(w, http.StatusUnauthorized, "session_expired", "session expired, please log in again")
	default:
		pkghttp.WriteErrorWithDetails(w, http.StatusUnauthorized, "invalid_credentials",
			"invalid username or password",
			fmt.Sprintf("%d attempts remaining", authErr.AttemptsRemaining))
	}
}

// minutesCeil rounds d up to whole minutes, with a minimum of one
func minutesCeil(d time.Duration) int {
	m := int((d + time.Minute - 1) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}
