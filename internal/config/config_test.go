package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_TOKEN_SECRET", testSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.False(t, cfg.Server.EnableHSTS)

	assert.Equal(t, "admin", cfg.Auth.AdminUsername)
	assert.Equal(t, "admin123", cfg.Auth.AdminPassword)
	assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTimeout)
	assert.Equal(t, 5, cfg.Auth.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LockoutDuration)
	assert.Equal(t, "admin_auth", cfg.Auth.SessionKey)
	assert.Equal(t, "login_attempts", cfg.Auth.AttemptsKey)
	assert.Equal(t, "saved_username", cfg.Auth.SavedUsernameKey)
	assert.Equal(t, "remember_login", cfg.Auth.RememberKey)

	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, int64(5*1024*1024), cfg.Storage.QuotaBytes)

	assert.Equal(t, "admin_offers", cfg.Offers.StorageKey)
	assert.Equal(t, "demo", cfg.Offers.Seed)
	assert.Equal(t, 30*time.Second, cfg.Offers.RefreshInterval)
	assert.Equal(t, 20, cfg.Offers.PerPage)

	assert.False(t, cfg.Alerts.Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_READ_TIMEOUT", "30s")
	t.Setenv("SESSION_TIMEOUT", "24h")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("OFFERS_SEED", "none")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1/32,")
	t.Setenv("ENABLE_HSTS", "true")
	t.Setenv("ALERT_EMAIL", "ops@example.com")
	t.Setenv("ALERT_FROM_ADDRESS", "noreply@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTimeout)
	assert.Equal(t, 3, cfg.Auth.MaxAttempts)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "none", cfg.Offers.Seed)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1/32"}, cfg.Server.TrustedProxies)
	assert.True(t, cfg.Server.EnableHSTS)
	assert.True(t, cfg.Alerts.Enabled())
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "five")
	t.Setenv("ENABLE_HSTS", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5, cfg.Auth.MaxAttempts)
	assert.False(t, cfg.Server.EnableHSTS)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing secret", map[string]string{"SESSION_TOKEN_SECRET": ""}, "SESSION_TOKEN_SECRET is required"},
		{"short secret", map[string]string{"SESSION_TOKEN_SECRET": "short"}, "at least 16"},
		{"production needs 32", map[string]string{"ENV": "production", "SESSION_TOKEN_SECRET": "sixteen-chars-ok"}, "at least 32"},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mongo"}, "unknown STORAGE_DRIVER"},
		{"postgres without password", map[string]string{"STORAGE_DRIVER": "postgres"}, "DB_PASSWORD"},
		{"zero attempts", map[string]string{"LOGIN_MAX_ATTEMPTS": "0"}, "LOGIN_MAX_ATTEMPTS"},
		{"negative lockout", map[string]string{"LOGIN_LOCKOUT_DURATION": "-1m"}, "LOGIN_LOCKOUT_DURATION"},
		{"bad seed", map[string]string{"OFFERS_SEED": "random"}, "OFFERS_SEED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTokenSecret_WeakValues(t *testing.T) {
	assert.Error(t, validateTokenSecret("changeme", "development"))
	assert.NoError(t, validateTokenSecret("a-much-longer-random-value", "development"))
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "offers", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=offers sslmode=require", cfg.DSN())
}
