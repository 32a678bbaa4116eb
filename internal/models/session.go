package models

import "time"

// RoleAdmin is the only role the panel knows about
const RoleAdmin = "admin"

// SessionUser identifies the person behind a session
type SessionUser struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session is the persisted authentication blob
type Session struct {
	ID              string      `json:"sessionId"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	User            SessionUser `json:"user"`
	LoginTime       int64       `json:"loginTime"` // unix milliseconds
}

// StartedAt returns the login time as a time.Time
func (s *Session) StartedAt() time.Time {
	return time.UnixMilli(s.LoginTime)
}

// ExpiresAt returns the instant the session stops being valid
func (s *Session) ExpiresAt(timeout time.Duration) time.Time {
	return s.StartedAt().Add(timeout)
}

// IsExpired reports whether now - loginTime >= timeout
func (s *Session) IsExpired(now time.Time, timeout time.Duration) bool {
	if s.LoginTime <= 0 {
		return true
	}
	return now.Sub(s.StartedAt()) >= timeout
}

// IsValid reports whether the session may be used at the given instant
func (s *Session) IsValid(now time.Time, timeout time.Duration) bool {
	return s.IsAuthenticated && s.User.Username != "" && !s.IsExpired(now, timeout)
}

// LoginAttempts is the persisted failed-login counter
type LoginAttempts struct {
	Count       int    `json:"count"`
	LockedUntil *int64 `json:"lockedUntil"` // unix milliseconds, nil when not locked
}

// LockExpiry returns the lock expiration, or the zero time when not locked
func (a *LoginAttempts) LockExpiry() time.Time {
	if a.LockedUntil == nil {
		return time.Time{}
	}
	return time.UnixMilli(*a.LockedUntil)
}

// IsLocked reports whether a lockout window is active at the given instant
func (a *LoginAttempts) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(a.LockExpiry())
}

// LockElapsed reports whether a lock was set and has since passed
func (a *LoginAttempts) LockElapsed(now time.Time) bool {
	return a.LockedUntil != nil && !now.Before(a.LockExpiry())
}

// Lock sets the lockout window
func (a *LoginAttempts) Lock(until time.Time) {
	ms := until.UnixMilli()
	a.LockedUntil = &ms
}

// Reset clears the counter and any lock
func (a *LoginAttempts) Reset() {
	a.Count = 0
	a.LockedUntil = nil
}

// AuthState is a node of the per-process authentication state machine
type AuthState string

const (
	AuthStateUnauthenticated AuthState = "unauthenticated"
	AuthStateAuthenticating  AuthState = "authenticating"
	AuthStateAuthenticated   AuthState = "authenticated"
	AuthStateExpired         AuthState = "expired"
	AuthStateLoggedOut       AuthState = "logged_out"
)

// authTransitions lists the allowed edges of the state machine
var authTransitions = map[AuthState][]AuthState{
	AuthStateUnauthenticated: {AuthStateAuthenticating, AuthStateAuthenticated},
	AuthStateAuthenticating:  {AuthStateAuthenticated, AuthStateUnauthenticated},
	AuthStateAuthenticated:   {AuthStateAuthenticating, AuthStateExpired, AuthStateLoggedOut},
	AuthStateExpired:         {AuthStateUnauthenticated},
	AuthStateLoggedOut:       {AuthStateUnauthenticated},
}

// CanTransition reports whether the state machine allows moving from s to next
func (s AuthState) CanTransition(next AuthState) bool {
	for _, allowed := range authTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AuthStatus is a snapshot of the auth manager for display
type AuthStatus struct {
	State             AuthState    `json:"state"`
	Locked            bool         `json:"locked"`
	LockedUntil       *time.Time   `json:"locked_until,omitempty"`
	AttemptsRemaining int          `json:"attempts_remaining"`
	User              *SessionUser `json:"user,omitempty"`
	ExpiresAt         *time.Time   `json:"expires_at,omitempty"`
	SavedUsername     string       `json:"saved_username,omitempty"`
}
