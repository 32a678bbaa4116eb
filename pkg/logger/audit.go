package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventAccountLocked  = "account_locked"
	EventLockCleared    = "lock_cleared"
	EventLogout         = "logout"
	EventSessionExpired = "session_expired"
	EventSessionRestore = "session_restored"

	EventOfferCreated = "offer_created"
	EventOfferUpdated = "offer_updated"
	EventOfferDeleted = "offer_deleted"
	EventOfferToggled = "offer_toggled"
	EventOffersSaved  = "offers_saved"
	EventOffersReset  = "offers_reset"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Username      string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through the application logger so they
// land in the same JSON stream, tagged with audit_type.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs login outcomes and lockouts
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Username != "" {
		attrs = append(attrs, slog.String("username", event.Username))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogSessionEvent logs logout, expiry and restore of the admin session
func (al *AuditLogger) LogSessionEvent(ctx context.Context, eventType, username, sessionID string) {
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("audit_type", "session"),
		slog.String("event_type", eventType),
		slog.String("username", username),
		slog.String("session_id", sessionID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

// LogOfferChange logs a mutation of the offers collection
func (al *AuditLogger) LogOfferChange(ctx context.Context, eventType, username, offerID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "offer"),
		slog.String("event_type", eventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if username != "" {
		attrs = append(attrs, slog.String("username", username))
	}
	if offerID != "" {
		attrs = append(attrs, slog.String("offer_id", offerID))
	}
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}
