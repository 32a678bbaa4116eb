package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/services"
	pkghttp "github.com/BradenHooton/offeradmin/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*models.Session, error)
	Logout(ctx context.Context) error
	CheckSession(ctx context.Context) (*models.Session, error)
	Status(ctx context.Context) models.AuthStatus
	SessionTimeout() time.Duration
}

// TokenIssuer signs bearer tokens for a session
type TokenIssuer interface {
	Issue(session *models.Session, expiresAt time.Time) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	tokens   TokenIssuer
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, tokens TokenIssuer, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		tokens:   tokens,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
	Remember bool   `json:"remember"`
}

// LoginResponse carries the bearer token for the new session
type LoginResponse struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	ExpiresAt time.Time       `json:"expires_at"`
	Session   *models.Session `json:"session"`
}

// SessionResponse describes the active session
type SessionResponse struct {
	Session   *models.Session `json:"session"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Login handles admin login
// @Summary Admin login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 422 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	session, err := h.service.Login(r.Context(), services.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		TOTPCode:  req.TOTPCode,
		Remember:  req.Remember,
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	expiresAt := session.ExpiresAt(h.service.SessionTimeout())
	token, err := h.tokens.Issue(session, expiresAt)
	if err != nil {
		h.logger.Error("failed to issue session token", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		Session:   session,
	})
}

// Status reports lockout and session state for the login screen
// @Router /auth/status [get]
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, h.service.Status(r.Context()))
}

// Logout ends the session
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Session returns the active session
// @Router /auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.CheckSession(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		Session:   session,
		ExpiresAt: session.ExpiresAt(h.service.SessionTimeout()),
	})
}
