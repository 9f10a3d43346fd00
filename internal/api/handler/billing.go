package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/glasshq/glass-server/internal/api/middleware"
	"github.com/glasshq/glass-server/internal/billing"
	"github.com/glasshq/glass-server/internal/domain"
	"github.com/glasshq/glass-server/internal/storage"
)

const webhookBodyLimit = 64 << 10

// BillingHandler exposes the Stripe-backed billing endpoints. It
// tolerates a nil billing service: deployments without Stripe
// configured answer 503 on these routes instead of failing at startup.
type BillingHandler struct {
	store   storage.Storage
	billing *billing.Service
	logger  *logrus.Logger
}

// NewBillingHandler creates a new billing handler. billing may be nil.
func NewBillingHandler(store storage.Storage, billingService *billing.Service, logger *logrus.Logger) *BillingHandler {
	return &BillingHandler{store: store, billing: billingService, logger: logger}
}

func (h *BillingHandler) unconfigured(w http.ResponseWriter) bool {
	if h.billing == nil {
		respondError(w, http.StatusServiceUnavailable, "billing is not configured")
		return true
	}
	return false
}

// CreateSetupIntent creates a Stripe SetupIntent for the caller and
// returns its client secret.
func (h *BillingHandler) CreateSetupIntent(w http.ResponseWriter, r *http.Request) {
	if h.unconfigured(w) {
		return
	}

	identity := middleware.GetIdentity(r.Context())
	profile, err := h.store.UpsertProfile(r.Context(), &domain.Profile{
		Subject: identity.Subject,
		Email:   identity.Email,
		Name:    identity.Name,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	si, err := h.billing.CreateSetupIntent(r.Context(), profile)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"clientSecret": si.ClientSecret,
	})
}

// GetSubscription returns the caller's current subscription state.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	if h.unconfigured(w) {
		return
	}

	identity := middleware.GetIdentity(r.Context())
	profile, err := h.store.GetProfile(r.Context(), identity.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]string{
				"status": "",
				"plan":   "",
			})
			return
		}
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": profile.SubscriptionStatus,
		"plan":   profile.SubscriptionPlan,
	})
}

// Webhook receives Stripe events. The signature check replaces normal
// authentication here, so this route is mounted outside the auth stack.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.unconfigured(w) {
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	event, err := h.billing.ConstructEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.WithError(err).Warn("rejected stripe webhook")
		respondError(w, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	if err := h.billing.HandleEvent(r.Context(), event); err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
