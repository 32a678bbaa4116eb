package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
	pkghttp "github.com/BradenHooton/offeradmin/pkg/http"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough!"

func testSession(loginTime time.Time) *models.Session {
	return &models.Session{
		ID:              "session-1",
		IsAuthenticated: true,
		User:            models.SessionUser{Username: "admin", Role: models.RoleAdmin},
		LoginTime:       loginTime.UnixMilli(),
	}
}

func TestTokenManager_IssueAndValidate(t *testing.T) {
	now := time.Now()
	tm := NewTokenManager(testSecret)
	session := testSession(now)

	token, err := tm.Issue(session, now.Add(8*time.Hour))
	require.NoError(t, err)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_Expired(t *testing.T) {
	now := time.Now()
	tm := NewTokenManager(testSecret)

	token, err := tm.Issue(testSession(now), now.Add(time.Hour))
	require.NoError(t, err)

	tm.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = tm.Validate(token)
	assert.True(t, errors.Is(err, models.ErrSessionExpired))
}

func TestTokenManager_WrongSecret(t *testing.T) {
	now := time.Now()
	token, err := NewTokenManager(testSecret).Issue(testSession(now), now.Add(time.Hour))
	require.NoError(t, err)

	_, err = NewTokenManager("another-secret-value-entirely!!").Validate(token)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	claims := &models.SessionClaims{
		SessionID: "s",
		Username:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret).Validate(token)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

type mockSessionChecker struct {
	session *models.Session
	err     error
}

func (m *mockSessionChecker) CheckSession(ctx context.Context) (*models.Session, error) {
	return m.session, m.err
}

func TestRequireSession(t *testing.T) {
	now := time.Now()
	tm := NewTokenManager(testSecret)
	session := testSession(now)
	token, err := tm.Issue(session, now.Add(time.Hour))
	require.NoError(t, err)

	replaced := *session
	replaced.ID = "session-2"

	tests := []struct {
		name       string
		header     string
		checker    *mockSessionChecker
		wantStatus int
		wantCode   string
	}{
		{"valid", "Bearer " + token, &mockSessionChecker{session: session}, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + token, &mockSessionChecker{session: session}, http.StatusOK, ""},
		{"missing header", "", &mockSessionChecker{session: session}, http.StatusUnauthorized, "unauthorized"},
		{"wrong scheme", "Basic " + token, &mockSessionChecker{session: session}, http.StatusUnauthorized, "unauthorized"},
		{"garbage token", "Bearer abc.def.ghi", &mockSessionChecker{session: session}, http.StatusUnauthorized, "unauthorized"},
		{"session expired", "Bearer " + token, &mockSessionChecker{err: &models.AuthError{Kind: models.AuthSessionExpired}}, http.StatusUnauthorized, "session_expired"},
		{"no session", "Bearer " + token, &mockSessionChecker{err: models.ErrUnauthorized}, http.StatusUnauthorized, "unauthorized"},
		{"session replaced", "Bearer " + token, &mockSessionChecker{session: &replaced}, http.StatusUnauthorized, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotClaims *models.SessionClaims
			handler := RequireSession(tm, tt.checker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotClaims = ClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/offers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, gotClaims)
				assert.Equal(t, "admin", gotClaims.Username)
				assert.Empty(t, UsernameFromContext(context.Background()))
				return
			}

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}
