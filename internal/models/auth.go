package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are carried by the bearer token issued at login. The token
// is only honoured while SessionID names the active session.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}
