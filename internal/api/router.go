// Package api wires the HTTP surface: routing, middleware stacks, and
// the handlers behind them.
package api

import (
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/glasshq/glass-server/internal/api/handler"
	"github.com/glasshq/glass-server/internal/api/middleware"
	"github.com/glasshq/glass-server/internal/billing"
	"github.com/glasshq/glass-server/internal/storage"
)

// RouterConfig carries the router's collaborators. Verifier and Billing
// may be nil when the corresponding integration is not configured.
type RouterConfig struct {
	Store          storage.Storage
	Logger         *logrus.Logger
	Verifier       *oidc.IDTokenVerifier
	Billing        *billing.Service
	BootstrapKey   string
	AdminEmails    []string
	AllowedOrigins []string
}

// NewRouter builds the HTTP router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	auth := middleware.NewAuthenticator(cfg.Store, cfg.Verifier, cfg.BootstrapKey, cfg.AdminEmails)

	labs := handler.NewLabHandler(cfg.Store, cfg.Logger)
	teams := handler.NewTeamHandler(cfg.Store, cfg.Logger)
	profiles := handler.NewProfileHandler(cfg.Store, cfg.Logger)
	keys := handler.NewAPIKeyHandler(cfg.Store, cfg.Logger)
	billingH := handler.NewBillingHandler(cfg.Store, cfg.Billing, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Stripe authenticates webhooks by signature, not bearer token.
	r.Post("/webhooks/stripe", billingH.Webhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(auth.Authenticate)

		// Public reads. Anonymous callers see visible entities only.
		r.Get("/labs", labs.List)
		r.Get("/labs/{id}", labs.Get)
		r.Get("/labs/{id}/teams", teams.ListByLab)
		r.Get("/teams", teams.List)
		r.Get("/teams/{id}", teams.Get)
		r.Get("/teams/{id}/labs", labs.ListByTeam)

		// Authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/labs", labs.Create)
			r.Put("/labs/{id}", labs.Update)
			r.Delete("/labs/{id}", labs.Delete)

			r.Post("/teams", teams.Create)
			r.Put("/teams/{id}", teams.Update)
			r.Delete("/teams/{id}", teams.Delete)

			r.Get("/my/labs", labs.Mine)
			r.Get("/my/teams", teams.Mine)
			r.Get("/me", profiles.Me)

			r.Post("/billing/setup-intent", billingH.CreateSetupIntent)
			r.Get("/billing/subscription", billingH.GetSubscription)
		})

		// Admin routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/keys", keys.Create)
			r.Get("/keys", keys.List)
			r.Delete("/keys/{id}", keys.Delete)
		})
	})

	return r
}
