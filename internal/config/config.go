package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Offers   OffersConfig
	Alerts   AlertsConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
	LoginRateLimit int // requests per minute per IP on /auth/login
	WriteRateLimit int // mutating requests per minute per admin session
	AllowedOrigins []string
	EnableHSTS     bool
}

type AuthConfig struct {
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string // bcrypt; takes precedence over AdminPassword
	TokenSecret       string
	SessionTimeout    time.Duration
	MaxAttempts       int
	LockoutDuration   time.Duration
	FailureDelay      time.Duration
	FailureJitter     time.Duration
	TOTPSecret        string
	TOTPIssuer        string
	SweepInterval     time.Duration

	// Storage keys
	SessionKey       string
	AttemptsKey      string
	SavedUsernameKey string
	RememberKey      string
}

type StorageConfig struct {
	Driver        string
	Path          string
	Namespace     string
	QuotaBytes    int64
	EncryptionKey string
	RedisURL      string
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type OffersConfig struct {
	StorageKey      string
	Seed            string // "demo" or "none"
	RefreshInterval time.Duration
	PerPage         int
}

type AlertsConfig struct {
	AWSRegion   string
	FromAddress string
	ToAddress   string
}

// Enabled reports whether lockout alert emails should be sent
func (a AlertsConfig) Enabled() bool {
	return a.ToAddress != "" && a.FromAddress != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	tokenSecret := getEnv("SESSION_TOKEN_SECRET", "")
	if tokenSecret == "" {
		return nil, fmt.Errorf("SESSION_TOKEN_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			LoginRateLimit: getEnvAsInt("LOGIN_RATE_LIMIT", 10),
			WriteRateLimit: getEnvAsInt("WRITE_RATE_LIMIT", 60),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
			EnableHSTS:     getEnvAsBool("ENABLE_HSTS", env == "production"),
		},
		Auth: AuthConfig{
			AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword:     getEnv("ADMIN_PASSWORD", "admin123"),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			TokenSecret:       tokenSecret,
			SessionTimeout:    getEnvAsDuration("SESSION_TIMEOUT", 8*time.Hour),
			MaxAttempts:       getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			LockoutDuration:   getEnvAsDuration("LOGIN_LOCKOUT_DURATION", 15*time.Minute),
			FailureDelay:      getEnvAsDuration("LOGIN_FAILURE_DELAY", 500*time.Millisecond),
			FailureJitter:     getEnvAsDuration("LOGIN_FAILURE_JITTER", 250*time.Millisecond),
			TOTPSecret:        getEnv("ADMIN_TOTP_SECRET", ""),
			TOTPIssuer:        getEnv("TOTP_ISSUER", "offeradmin"),
			SweepInterval:     getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
			SessionKey:        getEnv("AUTH_STORAGE_KEY", "admin_auth"),
			AttemptsKey:       getEnv("ATTEMPTS_STORAGE_KEY", "login_attempts"),
			SavedUsernameKey:  getEnv("SAVED_USERNAME_KEY", "saved_username"),
			RememberKey:       getEnv("REMEMBER_LOGIN_KEY", "remember_login"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", DriverFile)),
			Path:          getEnv("STORAGE_PATH", "data/offeradmin.json"),
			Namespace:     getEnv("STORAGE_NAMESPACE", "default"),
			QuotaBytes:    int64(getEnvAsInt("STORAGE_QUOTA_BYTES", 5*1024*1024)),
			EncryptionKey: getEnv("STORAGE_ENCRYPTION_KEY", ""),
			RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "offeradmin"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Offers: OffersConfig{
			StorageKey:      getEnv("OFFERS_STORAGE_KEY", "admin_offers"),
			Seed:            strings.ToLower(getEnv("OFFERS_SEED", "demo")),
			RefreshInterval: getEnvAsDuration("OFFERS_REFRESH_INTERVAL", 30*time.Second),
			PerPage:         getEnvAsInt("OFFERS_PER_PAGE", 20),
		},
		Alerts: AlertsConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("ALERT_FROM_ADDRESS", ""),
			ToAddress:   getEnv("ALERT_EMAIL", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validateTokenSecret(c.Auth.TokenSecret, c.Server.Env); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverRedis:
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Auth.AdminPassword == "" && c.Auth.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if c.Auth.MaxAttempts < 1 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be at least 1 (got %d)", c.Auth.MaxAttempts)
	}
	if c.Auth.LockoutDuration <= 0 {
		return fmt.Errorf("LOGIN_LOCKOUT_DURATION must be positive")
	}
	if c.Auth.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if c.Offers.Seed != "demo" && c.Offers.Seed != "none" {
		return fmt.Errorf("OFFERS_SEED must be demo or none (got %q)", c.Offers.Seed)
	}
	if c.Offers.PerPage < 1 {
		return fmt.Errorf("OFFERS_PER_PAGE must be at least 1")
	}

	return nil
}

// validateTokenSecret enforces minimum security standards for the token signing secret
func validateTokenSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_TOKEN_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_TOKEN_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
