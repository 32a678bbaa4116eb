package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Input errors
	ErrValidation = errors.New("validation failed")

	// Auth errors
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrSessionExpired     = errors.New("session expired")

	// Storage errors
	ErrStorage              = errors.New("storage failure")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	ErrCorruptData          = errors.New("stored data is malformed")

	// ErrOperationInProgress is returned when a guarded operation is already running
	ErrOperationInProgress = errors.New("operation already in progress")
)

// ValidationError describes a single rejected field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthErrorKind enumerates authentication failure reasons
type AuthErrorKind int

const (
	AuthInvalidCredentials AuthErrorKind = iota
	AuthAccountLocked
	AuthSessionExpired
)

// AuthError carries the details callers need to build a user-facing message
type AuthError struct {
	Kind              AuthErrorKind
	AttemptsRemaining int
	LockedUntil       time.Time
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthAccountLocked:
		return fmt.Sprintf("%s until %s", ErrAccountLocked, e.LockedUntil.UTC().Format(time.RFC3339))
	case AuthSessionExpired:
		return ErrSessionExpired.Error()
	default:
		return fmt.Sprintf("%s (%d attempts remaining)", ErrInvalidCredentials, e.AttemptsRemaining)
	}
}

func (e *AuthError) Unwrap() error {
	switch e.Kind {
	case AuthAccountLocked:
		return ErrAccountLocked
	case AuthSessionExpired:
		return ErrSessionExpired
	default:
		return ErrInvalidCredentials
	}
}

// RetryAfter returns how long a locked caller has to wait, relative to now
func (e *AuthError) RetryAfter(now time.Time) time.Duration {
	if e.Kind != AuthAccountLocked {
		return 0
	}
	if d := e.LockedUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

// StorageError wraps a backend failure with the key and operation involved
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}
