package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
)

const subscriptionColumns = `stripe_customer_id, subscription_id, status, price_id,
	current_period_start, current_period_end, cancel_at_period_end,
	payment_method_brand, payment_method_last4, updated_at`

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert replaces the stored state for the customer. Redelivered events converge
// on whatever Stripe reported last.
func (r *SubscriptionRepository) Upsert(ctx context.Context, s *domain.CustomerSubscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO customer_subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (stripe_customer_id) DO UPDATE SET
			subscription_id = EXCLUDED.subscription_id,
			status = EXCLUDED.status,
			price_id = EXCLUDED.price_id,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			payment_method_brand = EXCLUDED.payment_method_brand,
			payment_method_last4 = EXCLUDED.payment_method_last4,
			updated_at = EXCLUDED.updated_at`,
		s.StripeCustomerID, s.SubscriptionID, s.Status, s.PriceID,
		s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CancelAtPeriodEnd,
		s.PaymentMethodBrand, s.PaymentMethodLast4, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.CustomerSubscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM customer_subscriptions WHERE stripe_customer_id = $1`, customerID,
	)
	s, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByCustomerID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByCustomerID: %w", err)
	}
	return s, nil
}

func scanSubscription(sc scanner) (*domain.CustomerSubscription, error) {
	var s domain.CustomerSubscription
	err := sc.Scan(
		&s.StripeCustomerID, &s.SubscriptionID, &s.Status, &s.PriceID,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd,
		&s.PaymentMethodBrand, &s.PaymentMethodLast4, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
