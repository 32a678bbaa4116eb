package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/BradenHooton/offeradmin/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	assert.Equal(t, "o*****@*******.com", logger.SanitizedEmail("offers@example.com"))
	assert.Equal(t, "a@***.io", logger.SanitizedEmail("a@ops.io"))
	assert.Equal(t, "[invalid-email]", logger.SanitizedEmail("no-at-sign"))
	assert.Equal(t, "[invalid-email]", logger.SanitizedEmail("a@b@c"))
}

func TestSanitizedUsername(t *testing.T) {
	assert.Equal(t, "", logger.SanitizedUsername(""))
	assert.Equal(t, "**", logger.SanitizedUsername("ab"))
	assert.Equal(t, "a***n", logger.SanitizedUsername("admin"))
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, logger.SanitizeQueryString("password=x"))
	assert.True(t, logger.SanitizeQueryString("Token=abc"))
	assert.False(t, logger.SanitizeQueryString("status=active&page=2"))
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, "[REDACTED]", logger.RedactedAttr("k", "v", "production").Value.String())
	assert.Equal(t, "v", logger.RedactedAttr("k", "v", "development").Value.String())
}

func TestAuditLogger_LogAuthAttempt(t *testing.T) {
	var buf bytes.Buffer
	audit := logger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogAuthAttempt(context.Background(), logger.AuditEvent{
		EventType:     logger.EventLoginFailure,
		Username:      "a***n",
		IPAddress:     "203.0.113.1",
		FailureReason: "invalid_credentials",
		Metadata:      map[string]string{"attempts_remaining": "3"},
	})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "auth", rec["audit_type"])
	assert.Equal(t, logger.EventLoginFailure, rec["event_type"])
	assert.Equal(t, "3", rec["attempts_remaining"])
	assert.NotContains(t, rec, "user_agent")
}

func TestAuditLogger_LogOfferChange(t *testing.T) {
	var buf bytes.Buffer
	audit := logger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogOfferChange(context.Background(), logger.EventOfferDeleted, "admin", "offer_1", nil)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "offer", rec["audit_type"])
	assert.Equal(t, "offer_1", rec["offer_id"])
}
