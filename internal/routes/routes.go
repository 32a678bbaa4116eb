package routes

import (
	"github.com/BradenHooton/offeradmin/internal/auth"
	"github.com/BradenHooton/offeradmin/internal/handlers"
	"github.com/BradenHooton/offeradmin/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups everything RegisterRoutes mounts
type Handlers struct {
	Auth    *handlers.AuthHandler
	Offers  *handlers.OfferHandler
	Actions *handlers.ActionHandler
	Health  *handlers.HealthHandler
}

// Limits configures the per-route rate limits
type Limits struct {
	Login  middleware.RateLimitConfig
	Writes middleware.RateLimitConfig
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	sessions auth.SessionChecker,
	limits Limits,
) {
	// Public routes - no authentication required
	router.Get("/health", h.Health.Health)
	router.Get("/auth/status", h.Auth.Status)
	router.With(middleware.RateLimitByIP(limits.Login)).Post("/auth/login", h.Auth.Login)

	// Protected routes - an active admin session is required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(tokenManager, sessions))
		r.Use(middleware.RecordUser)
		r.Use(middleware.RateLimitBySession(limits.Writes))

		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/session", h.Auth.Session)

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", h.Offers.ListOffers)
			r.Post("/", h.Offers.CreateOffer)
			r.Put("/", h.Offers.ReplaceOffers)

			// static paths before the {id} pattern
			r.Get("/stats", h.Offers.Stats)
			r.Get("/export", h.Offers.Export)

			r.Get("/{id}", h.Offers.GetOffer)
			r.Put("/{id}", h.Offers.UpdateOffer)
			r.Delete("/{id}", h.Offers.DeleteOffer)
			r.Post("/{id}/toggle", h.Offers.ToggleOffer)
		})

		r.Route("/actions", func(r chi.Router) {
			r.Get("/", h.Actions.GetPending)
			r.Post("/", h.Actions.Propose)
			r.Delete("/", h.Actions.Cancel)
			r.Post("/confirm", h.Actions.Confirm)
		})
	})
}
