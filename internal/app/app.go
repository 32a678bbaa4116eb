// Package app wires storage, services and HTTP routing into one runnable
// admin panel backend.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/offeradmin/internal/auth"
	"github.com/BradenHooton/offeradmin/internal/background"
	"github.com/BradenHooton/offeradmin/internal/config"
	"github.com/BradenHooton/offeradmin/internal/handlers"
	middlewareCustom "github.com/BradenHooton/offeradmin/internal/middleware"
	"github.com/BradenHooton/offeradmin/internal/repositories"
	"github.com/BradenHooton/offeradmin/internal/routes"
	"github.com/BradenHooton/offeradmin/internal/services"
	"github.com/BradenHooton/offeradmin/internal/storage"
	pkgauth "github.com/BradenHooton/offeradmin/pkg/auth"
	pkghttp "github.com/BradenHooton/offeradmin/pkg/http"
	pkglogger "github.com/BradenHooton/offeradmin/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 60 * time.Second

// App is the root controller. It owns the storage handle and every
// long-lived service built on it.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	Storage storage.Storage
	Tokens  *auth.TokenManager
	Auth    *services.AuthService
	Offers  *services.OfferService
	Actions *services.ActionService

	scheduler *background.Scheduler
	watcher   *background.ChangeWatcher
	router    chi.Router
	stop      context.CancelFunc
}

// New opens storage and restores persisted state in order: the session
// first, then the offers. It does not start background work; call Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a, err := NewWithStorage(ctx, cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStorage is New over an already opened store
func NewWithStorage(ctx context.Context, cfg *config.Config, store storage.Storage, logger *slog.Logger) (*App, error) {
	creds, err := AdminCredentials(cfg.Auth, logger)
	if err != nil {
		return nil, err
	}

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize repositories
	sessionRepo := repositories.NewSessionRepository(store, cfg.Auth.SessionKey)
	attemptRepo := repositories.NewLoginAttemptRepository(store, cfg.Auth.AttemptsKey)
	prefsRepo := repositories.NewPreferencesRepository(store, cfg.Auth.SavedUsernameKey, cfg.Auth.RememberKey)
	offerRepo := repositories.NewOfferRepository(store, cfg.Offers.StorageKey)

	// Initialize services
	authService := services.NewAuthService(
		sessionRepo,
		attemptRepo,
		prefsRepo,
		creds,
		services.AuthConfig{
			SessionTimeout:  cfg.Auth.SessionTimeout,
			MaxAttempts:     cfg.Auth.MaxAttempts,
			LockoutDuration: cfg.Auth.LockoutDuration,
		},
		logger,
		auditLogger,
	)
	authService.SetFailureDelayer(auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay: cfg.Auth.FailureDelay,
		Jitter:    cfg.Auth.FailureJitter,
	}))

	if cfg.Auth.TOTPSecret != "" {
		verifier, err := auth.NewTOTPVerifier(cfg.Auth.TOTPSecret)
		if err != nil {
			return nil, err
		}
		authService.SetTOTPChecker(verifier)
		logger.Info("totp second factor enabled")
	}

	if cfg.Alerts.Enabled() {
		notifier, err := services.NewSESLockoutNotifier(ctx, cfg.Alerts.AWSRegion, cfg.Alerts.FromAddress, cfg.Alerts.ToAddress, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize lockout alerts: %w", err)
		}
		authService.SetLockoutNotifier(notifier)
	}

	seed, err := services.SeedByName(cfg.Offers.Seed)
	if err != nil {
		return nil, err
	}
	offerService := services.NewOfferService(offerRepo, seed, logger, auditLogger)
	actionService := services.NewActionService(offerService, logger)
	authService.OnSessionEnd(func() {
		if actionService.Cancel() {
			logger.Info("pending action dropped with the session")
		}
	})

	// Restore persisted state: session before offers
	if authService.RestoreSession(ctx) {
		logger.Info("admin session restored")
	}
	offers := offerService.Load(ctx)
	logger.Info("offers loaded", slog.Int("count", len(offers)))

	a := &App{
		cfg:       cfg,
		logger:    logger,
		Storage:   store,
		Tokens:    auth.NewTokenManager(cfg.Auth.TokenSecret),
		Auth:      authService,
		Offers:    offerService,
		Actions:   actionService,
		scheduler: background.NewScheduler(logger),
	}

	if err := a.scheduleJobs(); err != nil {
		return nil, err
	}

	if w, ok := store.(storage.Watcher); ok {
		a.watcher = background.NewChangeWatcher(w, authService, offerService, background.WatchKeys{
			Session:  cfg.Auth.SessionKey,
			Attempts: cfg.Auth.AttemptsKey,
			Offers:   cfg.Offers.StorageKey,
		}, logger)
	}

	a.router = a.buildRouter()
	return a, nil
}

func (a *App) scheduleJobs() error {
	if err := a.scheduler.Every("session_sweep", a.cfg.Auth.SweepInterval, func(ctx context.Context) {
		if a.Auth.SweepExpired(ctx) {
			a.logger.Info("expired admin session cleared")
		}
	}); err != nil {
		return err
	}

	return a.scheduler.Every("offers_refresh", a.cfg.Offers.RefreshInterval, func(ctx context.Context) {
		if err := a.Offers.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("periodic offers refresh failed", slog.Any("error", err))
		}
	})
}

func (a *App) buildRouter() chi.Router {
	cfg := a.cfg

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{
		Env:        cfg.Server.Env,
		EnableHSTS: cfg.Server.EnableHSTS,
	}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(a.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	routes.RegisterRoutes(router, routes.Handlers{
		Auth:    handlers.NewAuthHandler(a.Auth, a.Tokens, ipConfig, a.logger),
		Offers:  handlers.NewOfferHandler(a.Offers, cfg.Offers.PerPage, a.logger),
		Actions: handlers.NewActionHandler(a.Actions, a.logger),
		Health:  handlers.NewHealthHandler(a.Storage, cfg.Storage.Driver, a.logger),
	}, a.Tokens, a.Auth, routes.Limits{
		Login:  middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.LoginRateLimit},
		Writes: middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.WriteRateLimit},
	})

	return router
}

// Router returns the HTTP handler serving the API
func (a *App) Router() http.Handler {
	return a.router
}

// Start launches the maintenance jobs and, when the backend supports it,
// the change watcher that picks up writes from other instances.
func (a *App) Start(ctx context.Context) {
	ctx, a.stop = context.WithCancel(ctx)
	a.scheduler.Start()
	if a.watcher != nil {
		go a.watcher.Start(ctx)
	}
}

// Close stops background work and releases the store
func (a *App) Close(ctx context.Context) error {
	if a.stop != nil {
		a.stop()
		if a.watcher != nil {
			a.watcher.Stop()
		}
	}
	a.scheduler.Stop(ctx)
	return a.Storage.Close()
}

// AdminCredentials resolves the configured admin password to a bcrypt hash.
// A plaintext ADMIN_PASSWORD is hashed here and never kept.
func AdminCredentials(cfg config.AuthConfig, logger *slog.Logger) (services.AdminCredentials, error) {
	creds := services.AdminCredentials{Username: cfg.AdminUsername}

	switch {
	case cfg.AdminPasswordHash != "":
		if !pkgauth.IsHash(cfg.AdminPasswordHash) {
			return creds, errors.New("ADMIN_PASSWORD_HASH is not a bcrypt hash")
		}
		creds.PasswordHash = cfg.AdminPasswordHash
	case pkgauth.IsHash(cfg.AdminPassword):
		creds.PasswordHash = cfg.AdminPassword
	default:
		if err := pkgauth.CheckStrength(cfg.AdminPassword); err != nil {
			logger.Warn("admin password is weak; set ADMIN_PASSWORD_HASH in production", slog.Any("reason", err))
		}
		hash, err := pkgauth.HashPassword(cfg.AdminPassword, pkgauth.DefaultBcryptCost)
		if err != nil {
			return creds, fmt.Errorf("failed to hash admin password: %w", err)
		}
		creds.PasswordHash = hash
	}

	return creds, nil
}
