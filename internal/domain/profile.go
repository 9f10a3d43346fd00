package domain

import "time"

// Profile is the server-side record for an authenticated user. Identity
// itself lives with the external provider; this row carries what the
// marketplace needs locally, including the Stripe linkage that the
// billing webhook keeps current.
type Profile struct {
	Subject            string    `json:"subject" db:"subject"`
	Email              string    `json:"email" db:"email"`
	Name               string    `json:"name" db:"name"`
	StripeCustomerID   string    `json:"-" db:"stripe_customer_id"`
	SubscriptionStatus string    `json:"subscriptionStatus" db:"subscription_status"`
	SubscriptionPlan   string    `json:"subscriptionPlan" db:"subscription_plan"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}
