// Package billing is a thin wrapper around Stripe. It shuttles
// SetupIntent client secrets to the client and keeps the profile's
// subscription state current from webhook events; payment capture
// itself happens entirely on Stripe.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/setupintent"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/glasshq/glass-server/internal/domain"
	"github.com/glasshq/glass-server/internal/storage"
)

// Service talks to Stripe on behalf of the marketplace.
type Service struct {
	store         storage.Storage
	logger        *logrus.Logger
	webhookSecret string
}

// New configures the Stripe client and returns a Service.
func New(secretKey, webhookSecret string, store storage.Storage, logger *logrus.Logger) *Service {
	stripe.Key = secretKey
	return &Service{
		store:         store,
		logger:        logger,
		webhookSecret: webhookSecret,
	}
}

// EnsureCustomer returns the profile's Stripe customer id, creating the
// customer on first use and persisting the linkage.
func (s *Service) EnsureCustomer(ctx context.Context, profile *domain.Profile) (string, error) {
	if profile.StripeCustomerID != "" {
		return profile.StripeCustomerID, nil
	}

	c, err := customer.New(&stripe.CustomerParams{
		Params:   stripe.Params{Context: ctx},
		Email:    stripe.String(profile.Email),
		Name:     stripe.String(profile.Name),
		Metadata: map[string]string{"subject": profile.Subject},
	})
	if err != nil {
		return "", fmt.Errorf("creating stripe customer: %w", err)
	}

	if err := s.store.SetProfileCustomer(ctx, profile.Subject, c.ID); err != nil {
		return "", err
	}
	return c.ID, nil
}

// CreateSetupIntent creates a SetupIntent for the profile's customer so
// the client can collect a payment method off-session.
func (s *Service) CreateSetupIntent(ctx context.Context, profile *domain.Profile) (*stripe.SetupIntent, error) {
	customerID, err := s.EnsureCustomer(ctx, profile)
	if err != nil {
		return nil, err
	}

	si, err := setupintent.New(&stripe.SetupIntentParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(customerID),
		Usage:    stripe.String("off_session"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating setup intent: %w", err)
	}
	return si, nil
}

// ConstructEvent verifies the webhook signature, with tolerance for
// clock drift, and returns the decoded event.
func (s *Service) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithTolerance(payload, signature, s.webhookSecret, 5*time.Minute)
}

// HandleEvent applies a verified webhook event to local state.
// Subscription lifecycle events update the owning profile by customer
// id; everything else is ignored.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parsing subscription event: %w", err)
		}

		status := string(sub.Status)
		if event.Type == "customer.subscription.deleted" {
			status = "canceled"
		}

		plan := ""
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			plan = sub.Items.Data[0].Price.LookupKey
			if plan == "" {
				plan = sub.Items.Data[0].Price.ID
			}
		}

		if sub.Customer == nil || sub.Customer.ID == "" {
			s.logger.WithField("event_id", event.ID).Warn("subscription event without customer")
			return nil
		}

		err := s.store.UpdateSubscriptionByCustomer(ctx, sub.Customer.ID, status, plan)
		if errors.Is(err, domain.ErrNotFound) {
			// Customer created outside this deployment; nothing to update.
			s.logger.WithFields(logrus.Fields{
				"event_id": event.ID,
				"customer": sub.Customer.ID,
			}).Warn("subscription event for unknown customer")
			return nil
		}
		return err
	default:
		s.logger.WithField("type", event.Type).Debug("ignoring stripe event")
		return nil
	}
}
