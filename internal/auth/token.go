package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "offeradmin"

// TokenManager signs and verifies session bearer tokens (HS256)
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// WithClock overrides the clock used for expiry checks
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// Issue creates a token for session that expires together with it
func (tm *TokenManager) Issue(session *models.Session, expiresAt time.Time) (string, error) {
	claims := &models.SessionClaims{
		SessionID: session.ID,
		Username:  session.User.Username,
		Role:      session.User.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    tokenIssuer,
			Subject:   session.User.Username,
			IssuedAt:  jwt.NewNumericDate(session.StartedAt()),
			NotBefore: jwt.NewNumericDate(session.StartedAt()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and lifetime of tokenString.
// Expired tokens return models.ErrSessionExpired, anything else models.ErrUnauthorized.
func (tm *TokenManager) Validate(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return tm.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", models.ErrSessionExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	if claims.SessionID == "" || claims.Username == "" {
		return nil, fmt.Errorf("%w: token is missing session claims", models.ErrUnauthorized)
	}

	return claims, nil
}
