package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BradenHooton/offeradmin/internal/auth"
	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/validation"
	pkgauth "github.com/BradenHooton/offeradmin/pkg/auth"
	pkglogger "github.com/BradenHooton/offeradmin/pkg/logger"
	"github.com/google/uuid"
)

// SessionRepository persists the single admin session
type SessionRepository interface {
	Get(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context) error
}

// LoginAttemptRepository persists the failed-login counter
type LoginAttemptRepository interface {
	Get(ctx context.Context) (models.LoginAttempts, error)
	Save(ctx context.Context, a models.LoginAttempts) error
	Delete(ctx context.Context) error
}

// PreferencesRepository persists the remembered username
type PreferencesRepository interface {
	SavedUsername(ctx context.Context) (string, error)
	Remember(ctx context.Context, username string) error
	Forget(ctx context.Context) error
}

// TOTPChecker verifies second-factor codes
type TOTPChecker interface {
	Verify(code string, now time.Time) (bool, error)
}

// FailureDelayer pads failed logins to a uniform duration
type FailureDelayer interface {
	WaitFrom(ctx context.Context, start time.Time, success bool)
}

// AdminCredentials is the single configured account
type AdminCredentials struct {
	Username     string
	PasswordHash string // bcrypt
}

// AuthConfig holds the lockout and session policy
type AuthConfig struct {
	SessionTimeout  time.Duration
	MaxAttempts     int
	LockoutDuration time.Duration
}

// LoginInput is one submission of the login form
type LoginInput struct {
	Username  string `json:"username" validate:"required,min=3,max=50,username"`
	Password  string `json:"password" validate:"required,min=6"`
	TOTPCode  string `json:"totp_code,omitempty"`
	Remember  bool   `json:"remember"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// AuthService owns the session lifecycle and the lockout counter
type AuthService struct {
	sessions    SessionRepository
	attempts    LoginAttemptRepository
	prefs       PreferencesRepository
	creds       AdminCredentials
	config      AuthConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	totp     TOTPChecker
	delayer  FailureDelayer
	notifier LockoutNotifier
	onEnd    func()
	now      func() time.Time

	mu            sync.RWMutex
	session       *models.Session
	loginAttempts models.LoginAttempts
	state         models.AuthState

	loggingIn atomic.Bool
}

func NewAuthService(
	sessions SessionRepository,
	attempts LoginAttemptRepository,
	prefs PreferencesRepository,
	creds AdminCredentials,
	config AuthConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		sessions:    sessions,
		attempts:    attempts,
		prefs:       prefs,
		creds:       creds,
		config:      config,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
		state:       models.AuthStateUnauthenticated,
	}
}

// SetTOTPChecker makes a valid TOTP code part of the credentials
func (s *AuthService) SetTOTPChecker(c TOTPChecker) {
	s.totp = c
}

func (s *AuthService) SetFailureDelayer(d FailureDelayer) {
	s.delayer = d
}

// SetLockoutNotifier enables alerts when the account gets locked
func (s *AuthService) SetLockoutNotifier(n LockoutNotifier) {
	s.notifier = n
}

// OnSessionEnd registers fn to run whenever the active session ends or is
// replaced by a new login. fn runs with the service locked and must not call
// back into AuthService.
func (s *AuthService) OnSessionEnd(fn func()) {
	s.onEnd = fn
}

// SetClock replaces time.Now, for tests
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// SessionTimeout returns the configured session lifetime
func (s *AuthService) SessionTimeout() time.Duration {
	return s.config.SessionTimeout
}

// RestoreSession loads persisted state at startup. It returns true only when a
// well-formed, unexpired session was found; malformed or expired blobs are removed.
func (s *AuthService) RestoreSession(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadAttemptsLocked(ctx)

	s.session = nil
	s.state = models.AuthStateUnauthenticated

	session, err := s.sessions.Get(ctx)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return false
	case errors.Is(err, models.ErrCorruptData):
		s.logger.Warn("discarding malformed session", slog.Any("error", err))
		s.deleteSessionLocked(ctx)
		return false
	case err != nil:
		s.logger.Error("failed to read session", slog.Any("error", err))
		return false
	}

	if !session.IsValid(s.now(), s.config.SessionTimeout) {
		s.logger.Info("stored session expired", slog.String("session_id", session.ID))
		s.deleteSessionLocked(ctx)
		s.auditLogger.LogSessionEvent(ctx, pkglogger.EventSessionExpired, session.User.Username, session.ID)
		return false
	}

	if session.ID == "" {
		// blobs written by the browser panel carry no id
		session.ID = uuid.New().String()
		if err := s.sessions.Save(ctx, session); err != nil {
			s.logger.Warn("failed to persist session id", slog.Any("error", err))
		}
	}

	s.session = session
	s.state = models.AuthStateAuthenticated
	s.auditLogger.LogSessionEvent(ctx, pkglogger.EventSessionRestore, session.User.Username, session.ID)
	return true
}

// Login checks the lock, the input shape and the credentials, in that order.
// Every failure after the lock check counts towards the lockout.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.Session, error) {
	if !s.loggingIn.CompareAndSwap(false, true) {
		return nil, models.ErrOperationInProgress
	}
	defer s.loggingIn.Store(false)

	start := time.Now()
	session, err := s.login(ctx, in)

	if s.delayer != nil {
		var authErr *models.AuthError
		s.delayer.WaitFrom(ctx, start, !errors.As(err, &authErr))
	}
	return session, err
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (*models.Session, error) {
	now := s.now()

	s.mu.Lock()
	if s.state == models.AuthStateExpired || s.state == models.AuthStateLoggedOut {
		s.setStateLocked(models.AuthStateUnauthenticated)
	}
	previous := s.state
	s.setStateLocked(models.AuthStateAuthenticating)

	if s.loginAttempts.LockElapsed(now) {
		s.loginAttempts.Reset()
		s.saveAttemptsLocked(ctx)
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventLockCleared,
			Success:   true,
		})
	}
	if s.loginAttempts.IsLocked(now) {
		lockedUntil := s.loginAttempts.LockExpiry()
		s.setStateLocked(restingState(previous))
		s.mu.Unlock()

		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailure,
			Username:      pkglogger.SanitizedUsername(in.Username),
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			FailureReason: "account_locked",
		})
		return nil, &models.AuthError{Kind: models.AuthAccountLocked, LockedUntil: lockedUntil}
	}
	s.mu.Unlock()

	if err := validation.Struct(in); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		// malformed input is still a failed attempt; the field error is
		// reported until the attempt that triggers the lock
		if failure := s.recordFailureLocked(ctx, in, "invalid_input", previous, now); errors.Is(failure, models.ErrAccountLocked) {
			return nil, failure
		}
		return nil, err
	}

	ok, reason, err := s.checkCredentials(in, now)
	if err != nil {
		s.mu.Lock()
		s.setStateLocked(restingState(previous))
		s.mu.Unlock()
		s.logger.Error("credential check failed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok {
		return nil, s.recordFailureLocked(ctx, in, reason, previous, now)
	}

	session := &models.Session{
		ID:              uuid.New().String(),
		IsAuthenticated: true,
		User:            models.SessionUser{Username: s.creds.Username, Role: models.RoleAdmin},
		LoginTime:       now.UnixMilli(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.setStateLocked(restingState(previous))
		s.logger.Error("failed to persist session", slog.Any("error", err))
		return nil, err
	}

	s.endSessionLocked()
	s.session = session
	s.setStateLocked(models.AuthStateAuthenticated)

	s.loginAttempts.Reset()
	if err := s.attempts.Delete(ctx); err != nil {
		s.logger.Warn("failed to reset login attempts", slog.Any("error", err))
	}

	if in.Remember {
		err = s.prefs.Remember(ctx, in.Username)
	} else {
		err = s.prefs.Forget(ctx)
	}
	if err != nil {
		s.logger.Warn("failed to update remembered username", slog.Any("error", err))
	}

	s.logger.Info("admin logged in", slog.String("session_id", session.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		Username:  session.User.Username,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Success:   true,
	})

	out := *session
	return &out, nil
}

// checkCredentials always runs bcrypt so a wrong username costs as much as a wrong password
func (s *AuthService) checkCredentials(in LoginInput, now time.Time) (bool, string, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(in.Username), []byte(s.creds.Username)) == 1
	passwordOK := pkgauth.ComparePassword(s.creds.PasswordHash, in.Password) == nil
	if !usernameOK || !passwordOK {
		return false, "invalid_credentials", nil
	}

	if s.totp == nil {
		return true, "", nil
	}
	if in.TOTPCode == "" {
		return false, "totp_required", nil
	}
	valid, err := s.totp.Verify(in.TOTPCode, now)
	if errors.Is(err, auth.ErrTOTPReplay) {
		return false, "totp_replay", nil
	}
	if err != nil {
		return false, "", err
	}
	if !valid {
		return false, "invalid_totp", nil
	}
	return true, "", nil
}

func (s *AuthService) recordFailureLocked(ctx context.Context, in LoginInput, reason string, previous models.AuthState, now time.Time) error {
	s.loginAttempts.Count++
	attempts := s.loginAttempts.Count

	event := pkglogger.AuditEvent{
		EventType:     pkglogger.EventLoginFailure,
		Username:      pkglogger.SanitizedUsername(in.Username),
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
		FailureReason: reason,
		Metadata:      map[string]string{"attempts": strconv.Itoa(attempts)},
	}

	if attempts < s.config.MaxAttempts {
		s.saveAttemptsLocked(ctx)
		s.setStateLocked(restingState(previous))
		s.auditLogger.LogAuthAttempt(ctx, event)
		return &models.AuthError{
			Kind:              models.AuthInvalidCredentials,
			AttemptsRemaining: s.config.MaxAttempts - attempts,
		}
	}

	lockedUntil := now.Add(s.config.LockoutDuration)
	s.loginAttempts.Lock(lockedUntil)
	s.saveAttemptsLocked(ctx)

	if s.session != nil {
		s.logger.Warn("destroying active session after lockout", slog.String("session_id", s.session.ID))
	}
	s.session = nil
	s.deleteSessionLocked(ctx)
	s.endSessionLocked()
	s.state = models.AuthStateUnauthenticated

	event.EventType = pkglogger.EventAccountLocked
	event.Metadata["locked_until"] = lockedUntil.UTC().Format(time.RFC3339)
	s.auditLogger.LogAuthAttempt(ctx, event)

	if s.notifier != nil {
		alert := LockoutAlert{
			Username:    in.Username,
			IPAddress:   in.IPAddress,
			Attempts:    attempts,
			LockedUntil: lockedUntil,
		}
		if err := s.notifier.NotifyLockout(ctx, alert); err != nil {
			s.logger.Error("failed to send lockout alert", slog.Any("error", err))
		}
	}

	return &models.AuthError{Kind: models.AuthAccountLocked, LockedUntil: lockedUntil}
}

// Logout clears the session and the attempt counter. In-memory state is
// cleared even when storage fails; the storage error is returned.
func (s *AuthService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var username, sessionID string
	if s.session != nil {
		username, sessionID = s.session.User.Username, s.session.ID
	}

	s.session = nil
	s.loginAttempts.Reset()
	s.endSessionLocked()

	err := errors.Join(s.sessions.Delete(ctx), s.attempts.Delete(ctx))

	if s.state == models.AuthStateAuthenticated {
		s.setStateLocked(models.AuthStateLoggedOut)
	}

	s.auditLogger.LogSessionEvent(ctx, pkglogger.EventLogout, username, sessionID)
	return err
}

// IsAuthenticated reports whether a session exists and has not timed out
func (s *AuthService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil && s.session.IsValid(s.now(), s.config.SessionTimeout)
}

// CheckSession returns the active session, destroying it if it has expired
func (s *AuthService) CheckSession(ctx context.Context) (*models.Session, error) {
	s.mu.RLock()
	session := s.session
	valid := session != nil && session.IsValid(s.now(), s.config.SessionTimeout)
	s.mu.RUnlock()

	if valid {
		out := *session
		return &out, nil
	}
	if session == nil {
		return nil, models.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil && !s.session.IsValid(s.now(), s.config.SessionTimeout) {
		s.expireLocked(ctx)
	}
	return nil, &models.AuthError{Kind: models.AuthSessionExpired}
}

// SweepExpired drops a timed-out session and clears an elapsed lock.
// It reports whether anything changed.
func (s *AuthService) SweepExpired(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	changed := false

	if s.session != nil && !s.session.IsValid(now, s.config.SessionTimeout) {
		s.expireLocked(ctx)
		changed = true
	}
	if s.loginAttempts.LockElapsed(now) {
		s.loginAttempts.Reset()
		s.saveAttemptsLocked(ctx)
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventLockCleared,
			Success:   true,
		})
		changed = true
	}
	return changed
}

// ReloadSession re-reads the session after another process changed it
func (s *AuthService) ReloadSession(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(ctx)
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrCorruptData):
		if s.session != nil {
			s.session = nil
			s.endSessionLocked()
			s.setStateLocked(models.AuthStateLoggedOut)
		}
	case err != nil:
		s.logger.Warn("failed to reload session", slog.Any("error", err))
	case session.IsValid(s.now(), s.config.SessionTimeout):
		if s.state != models.AuthStateAuthenticated {
			s.setStateLocked(models.AuthStateUnauthenticated)
		}
		if s.session != nil && s.session.ID != session.ID {
			s.endSessionLocked()
		}
		s.session = session
		s.setStateLocked(models.AuthStateAuthenticated)
	default:
		s.session = session
		s.expireLocked(ctx)
	}
}

// ReloadAttempts re-reads the counter after another process changed it
func (s *AuthService) ReloadAttempts(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadAttemptsLocked(ctx)
}

// Status returns a snapshot for the login screen
func (s *AuthService) Status(ctx context.Context) models.AuthStatus {
	s.mu.RLock()
	now := s.now()
	status := models.AuthStatus{
		State:             s.state,
		AttemptsRemaining: max(s.config.MaxAttempts-s.loginAttempts.Count, 0),
	}
	if s.loginAttempts.IsLocked(now) {
		until := s.loginAttempts.LockExpiry()
		status.Locked = true
		status.LockedUntil = &until
		status.AttemptsRemaining = 0
	}
	if s.session != nil && s.session.IsValid(now, s.config.SessionTimeout) {
		user := s.session.User
		expires := s.session.ExpiresAt(s.config.SessionTimeout)
		status.User = &user
		status.ExpiresAt = &expires
	}
	s.mu.RUnlock()

	status.SavedUsername = s.SavedUsername(ctx)
	return status
}

// SavedUsername returns the remembered username, or "" on any failure
func (s *AuthService) SavedUsername(ctx context.Context) string {
	name, err := s.prefs.SavedUsername(ctx)
	if err != nil {
		s.logger.Warn("failed to read remembered username", slog.Any("error", err))
		return ""
	}
	return name
}

// State returns the current node of the auth state machine
func (s *AuthService) State() models.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// expireLocked destroys the current session and marks it expired
func (s *AuthService) expireLocked(ctx context.Context) {
	session := s.session
	s.session = nil
	s.deleteSessionLocked(ctx)
	s.endSessionLocked()
	s.setStateLocked(models.AuthStateExpired)

	s.logger.Info("session expired", slog.String("session_id", session.ID))
	s.auditLogger.LogSessionEvent(ctx, pkglogger.EventSessionExpired, session.User.Username, session.ID)
}

func (s *AuthService) endSessionLocked() {
	if s.onEnd != nil {
		s.onEnd()
	}
}

func (s *AuthService) deleteSessionLocked(ctx context.Context) {
	if err := s.sessions.Delete(ctx); err != nil {
		s.logger.Warn("failed to remove session from storage", slog.Any("error", err))
	}
}

func (s *AuthService) loadAttemptsLocked(ctx context.Context) {
	attempts, err := s.attempts.Get(ctx)
	if err != nil {
		s.logger.Warn("resetting unreadable login attempts", slog.Any("error", err))
		if errors.Is(err, models.ErrCorruptData) {
			if err := s.attempts.Delete(ctx); err != nil {
				s.logger.Warn("failed to remove login attempts", slog.Any("error", err))
			}
		}
	}
	s.loginAttempts = attempts
}

func (s *AuthService) saveAttemptsLocked(ctx context.Context) {
	if err := s.attempts.Save(ctx, s.loginAttempts); err != nil {
		s.logger.Error("failed to persist login attempts", slog.Any("error", err))
	}
}

func (s *AuthService) setStateLocked(next models.AuthState) {
	if s.state == next {
		return
	}
	if !s.state.CanTransition(next) {
		s.logger.Warn("unexpected auth state transition",
			slog.String("from", string(s.state)),
			slog.String("to", string(next)))
	}
	s.state = next
}

// restingState is where a failed login returns to
func restingState(previous models.AuthState) models.AuthState {
	if previous == models.AuthStateAuthenticated {
		return models.AuthStateAuthenticated
	}
	return models.AuthStateUnauthenticated
}
