package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/offeradmin/internal/auth"
	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/services"
	pkghttp "github.com/BradenHooton/offeradmin/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAdminContext adds session claims to the request context
func WithAdminContext(req *http.Request, username string) *http.Request {
	claims := &models.SessionClaims{
		SessionID: "test-session",
		Username:  username,
		Role:      models.RoleAdmin,
	}
	return req.WithContext(auth.ContextWithClaims(req.Context(), claims))
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, in services.LoginInput) (*models.Session, error)
	LogoutFunc       func(ctx context.Context) error
	CheckSessionFunc func(ctx context.Context) (*models.Session, error)
	StatusFunc       func(ctx context.Context) models.AuthStatus
	Timeout          time.Duration
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*models.Session, error) {
	if m.LoginFunc == nil {
		return nil, &models.AuthError{Kind: models.AuthInvalidCredentials, AttemptsRemaining: 4}
	}
	return m.LoginFunc(ctx, in)
}

func (m *MockAuthService) Logout(ctx context.Context) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx)
}

func (m *MockAuthService) CheckSession(ctx context.Context) (*models.Session, error) {
	if m.CheckSessionFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.CheckSessionFunc(ctx)
}

func (m *MockAuthService) Status(ctx context.Context) models.AuthStatus {
	if m.StatusFunc == nil {
		return models.AuthStatus{State: models.AuthStateUnauthenticated, AttemptsRemaining: 5}
	}
	return m.StatusFunc(ctx)
}

func (m *MockAuthService) SessionTimeout() time.Duration {
	if m.Timeout == 0 {
		return 8 * time.Hour
	}
	return m.Timeout
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	IssueFunc func(session *models.Session, expiresAt time.Time) (string, error)
}

func (m *MockTokenIssuer) Issue(session *models.Session, expiresAt time.Time) (string, error) {
	if m.IssueFunc == nil {
		return "test-token", nil
	}
	return m.IssueFunc(session, expiresAt)
}

// MockOfferService implements OfferServiceInterface for testing
type MockOfferService struct {
	Offers           []models.Offer
	GetFunc          func(id string) (models.Offer, error)
	AddFunc          func(ctx context.Context, offer models.Offer) (models.Offer, error)
	UpdateFunc       func(ctx context.Context, offer models.Offer) (models.Offer, error)
	RemoveFunc       func(ctx context.Context, id string) error
	ToggleStatusFunc func(ctx context.Context, id string) (models.Offer, error)
	SaveFunc         func(ctx context.Context, offers []models.Offer) error
	StatsFunc        func() models.OfferStats
}

func (m *MockOfferService) List() []models.Offer {
	return models.CloneOffers(m.Offers)
}

func (m *MockOfferService) Get(id string) (models.Offer, error) {
	if m.GetFunc == nil {
		return models.Offer{}, models.ErrNotFound
	}
	return m.GetFunc(id)
}

func (m *MockOfferService) Add(ctx context.Context, offer models.Offer) (models.Offer, error) {
	if m.AddFunc == nil {
		return models.Offer{}, models.ErrInternalServer
	}
	return m.AddFunc(ctx, offer)
}

func (m *MockOfferService) Update(ctx context.Context, offer models.Offer) (models.Offer, error) {
	if m.UpdateFunc == nil {
		return models.Offer{}, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, offer)
}

func (m *MockOfferService) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc == nil {
		return nil
	}
	return m.RemoveFunc(ctx, id)
}

func (m *MockOfferService) ToggleStatus(ctx context.Context, id string) (models.Offer, error) {
	if m.ToggleStatusFunc == nil {
		return models.Offer{}, models.ErrNotFound
	}
	return m.ToggleStatusFunc(ctx, id)
}

func (m *MockOfferService) Save(ctx context.Context, offers []models.Offer) error {
	if m.SaveFunc == nil {
		return nil
	}
	return m.SaveFunc(ctx, offers)
}

func (m *MockOfferService) Stats() models.OfferStats {
	if m.StatsFunc == nil {
		return models.OfferStats{}
	}
	return m.StatsFunc()
}

// MockActionService implements ActionServiceInterface for testing
type MockActionService struct {
	ProposeFunc func(kind models.ActionKind, offerID string) (models.PendingAction, error)
	PendingFunc func() (models.PendingAction, bool)
	ConfirmFunc func(ctx context.Context) (services.ActionResult, error)
	CancelFunc  func() bool
}

func (m *MockActionService) Propose(kind models.ActionKind, offerID string) (models.PendingAction, error) {
	if m.ProposeFunc == nil {
		return models.PendingAction{}, models.ErrInternalServer
	}
	return m.ProposeFunc(kind, offerID)
}

func (m *MockActionService) Pending() (models.PendingAction, bool) {
	if m.PendingFunc == nil {
		return models.PendingAction{}, false
	}
	return m.PendingFunc()
}

func (m *MockActionService) Confirm(ctx context.Context) (services.ActionResult, error) {
	if m.ConfirmFunc == nil {
		return services.ActionResult{}, models.ErrNotFound
	}
	return m.ConfirmFunc(ctx)
}

func (m *MockActionService) Cancel() bool {
	if m.CancelFunc == nil {
		return false
	}
	return m.CancelFunc()
}

// MockPinger implements Pinger for testing
type MockPinger struct {
	Err error
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Err
}
