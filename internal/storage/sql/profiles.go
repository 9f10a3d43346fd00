package sql

import (
	"context"
	"database/sql"
	"time"

	"github.com/glasshq/glass-server/internal/domain"
)

const profileColumns = `subject, email, name, stripe_customer_id, subscription_status, subscription_plan, created_at, updated_at`

func (s *Store) GetProfile(ctx context.Context, subject string) (*domain.Profile, error) {
	var profile domain.Profile
	err := s.db.GetContext(ctx, &profile,
		`SELECT `+profileColumns+` FROM profiles WHERE subject = $1`, subject)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile inserts a profile row for a new subject or refreshes the
// identity fields of an existing one. Billing fields are never touched
// here; the Stripe webhook owns those.
func (s *Store) UpsertProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (subject, email, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (subject) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   updated_at = excluded.updated_at`,
		profile.Subject, profile.Email, profile.Name, now)
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, profile.Subject)
}

func (s *Store) SetProfileCustomer(ctx context.Context, subject, customerID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET stripe_customer_id = $1, updated_at = $2 WHERE subject = $3`,
		customerID, time.Now().UTC(), subject)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateSubscriptionByCustomer(ctx context.Context, customerID, status, plan string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET subscription_status = $1, subscription_plan = $2, updated_at = $3
		 WHERE stripe_customer_id = $4`,
		status, plan, time.Now().UTC(), customerID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
