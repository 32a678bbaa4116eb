package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/offeradmin/internal/handlers"
	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *models.Session {
	return &models.Session{
		ID:              "sess-1",
		IsAuthenticated: true,
		User:            models.SessionUser{Username: "admin", Role: models.RoleAdmin},
		LoginTime:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func newAuthHandler(svc *handlers.MockAuthService, tokens *handlers.MockTokenIssuer) *handlers.AuthHandler {
	if tokens == nil {
		tokens = &handlers.MockTokenIssuer{}
	}
	return handlers.NewAuthHandler(svc, tokens, nil, handlers.DiscardLogger())
}

func TestLogin_Success(t *testing.T) {
	var got services.LoginInput
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*models.Session, error) {
			got = in
			return testSession(), nil
		},
	}
	var expiry time.Time
	tokens := &handlers.MockTokenIssuer{
		IssueFunc: func(session *models.Session, expiresAt time.Time) (string, error) {
			expiry = expiresAt
			return "signed-token", nil
		},
	}

	handler := newAuthHandler(mockAuth, tokens)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Username: "admin",
		Password: "admin123",
		Remember: true,
	})
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "192.0.2.10:5555"

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "signed-token", resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "sess-1", resp.Session.ID)
	assert.Equal(t, testSession().ExpiresAt(8*time.Hour).UnixMilli(), expiry.UnixMilli())

	assert.Equal(t, "admin", got.Username)
	assert.True(t, got.Remember)
	assert.Equal(t, "192.0.2.10", got.IPAddress)
	assert.Equal(t, "test-agent", got.UserAgent)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid credentials",
			err:        &models.AuthError{Kind: models.AuthInvalidCredentials, AttemptsRemaining: 3},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_credentials",
		},
		{
			name:       "locked",
			err:        &models.AuthError{Kind: models.AuthAccountLocked, LockedUntil: time.Now().Add(10 * time.Minute)},
			wantStatus: http.StatusLocked,
			wantCode:   "account_locked",
		},
		{
			name:       "validation",
			err:        models.NewValidationError("username", "must have a minimum of 3 characters"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "validation_failed",
		},
		{
			name:       "busy",
			err:        models.ErrOperationInProgress,
			wantStatus: http.StatusConflict,
			wantCode:   "operation_in_progress",
		},
		{
			name:       "storage",
			err:        &models.StorageError{Op: "set", Key: "admin_auth", Err: errors.New("disk")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "service_unavailable",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, in services.LoginInput) (*models.Session, error) {
					return nil, tt.err
				},
			}
			handler := newAuthHandler(mockAuth, nil)
			req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{Username: "admin", Password: "nope-nope"})

			w := httptest.NewRecorder()
			handler.Login(w, req)

			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestLogin_LockedSetsRetryAfter(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*models.Session, error) {
			return nil, &models.AuthError{Kind: models.AuthAccountLocked, LockedUntil: time.Now().Add(15 * time.Minute)}
		},
	}
	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{Username: "admin", Password: "admin123"})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusLocked, "account_locked")
	assert.Contains(t, resp.Message, "15 minutes")
	secs, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 900, secs, 2)
}

func TestLogin_AttemptsRemainingInDetails(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{Username: "admin", Password: "wrong-one"})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "invalid_credentials")
	assert.Equal(t, "4 attempts remaining", resp.Details)
}

func TestLogin_BadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"malformed", `{"username":`},
		{"unknown field", `{"username":"admin","password":"admin123","role":"root"}`},
		{"two values", `{"username":"admin"}{"username":"admin"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mockAuth := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, in services.LoginInput) (*models.Session, error) {
					called = true
					return testSession(), nil
				},
			}
			handler := newAuthHandler(mockAuth, nil)
			req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(tt.body))

			w := httptest.NewRecorder()
			handler.Login(w, req)

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
			assert.False(t, called)
		})
	}
}

func TestLogin_TokenFailure(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*models.Session, error) {
			return testSession(), nil
		},
	}
	tokens := &handlers.MockTokenIssuer{
		IssueFunc: func(session *models.Session, expiresAt time.Time) (string, error) {
			return "", errors.New("signing failed")
		},
	}
	handler := newAuthHandler(mockAuth, tokens)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{Username: "admin", Password: "admin123"})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
}

func TestStatus(t *testing.T) {
	until := time.Date(2025, 3, 1, 12, 15, 0, 0, time.UTC)
	mockAuth := &handlers.MockAuthService{
		StatusFunc: func(ctx context.Context) models.AuthStatus {
			return models.AuthStatus{
				State:         models.AuthStateUnauthenticated,
				Locked:        true,
				LockedUntil:   &until,
				SavedUsername: "admin",
			}
		},
	}
	handler := newAuthHandler(mockAuth, nil)

	w := httptest.NewRecorder()
	handler.Status(w, httptest.NewRequest("GET", "/auth/status", nil))

	var resp models.AuthStatus
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Locked)
	assert.Equal(t, until, resp.LockedUntil.UTC())
	assert.Equal(t, "admin", resp.SavedUsername)
}

func TestLogout(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler := newAuthHandler(&handlers.MockAuthService{}, nil)
		w := httptest.NewRecorder()
		handler.Logout(w, handlers.WithAdminContext(httptest.NewRequest("POST", "/auth/logout", nil), "admin"))

		var resp map[string]string
		handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "logged_out", resp["status"])
	})

	t.Run("storage failure", func(t *testing.T) {
		mockAuth := &handlers.MockAuthService{
			LogoutFunc: func(ctx context.Context) error {
				return &models.StorageError{Op: "remove", Key: "admin_auth", Err: errors.New("down")}
			},
		}
		handler := newAuthHandler(mockAuth, nil)
		w := httptest.NewRecorder()
		handler.Logout(w, httptest.NewRequest("POST", "/auth/logout", nil))

		handlers.AssertErrorResponse(t, w, http.StatusServiceUnavailable, "service_unavailable")
	})
}

func TestSession(t *testing.T) {
	t.Run("active", func(t *testing.T) {
		mockAuth := &handlers.MockAuthService{
			CheckSessionFunc: func(ctx context.Context) (*models.Session, error) { return testSession(), nil },
		}
		handler := newAuthHandler(mockAuth, nil)
		w := httptest.NewRecorder()
		handler.Session(w, httptest.NewRequest("GET", "/auth/session", nil))

		var resp handlers.SessionResponse
		handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "sess-1", resp.Session.ID)
		assert.Equal(t, testSession().ExpiresAt(8*time.Hour).Unix(), resp.ExpiresAt.Unix())
	})

	t.Run("expired", func(t *testing.T) {
		mockAuth := &handlers.MockAuthService{
			CheckSessionFunc: func(ctx context.Context) (*models.Session, error) {
				return nil, &models.AuthError{Kind: models.AuthSessionExpired}
			},
		}
		handler := newAuthHandler(mockAuth, nil)
		w := httptest.NewRecorder()
		handler.Session(w, httptest.NewRequest("GET", "/auth/session", nil))

		handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "session_expired")
	})
}
