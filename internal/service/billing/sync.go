package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v80"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/logging"
)

type subscriptionFetcher interface {
	LatestSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error)
}

type subscriptionStore interface {
	Upsert(ctx context.Context, s *domain.CustomerSubscription) error
}

// Syncer pulls a customer's current subscription from Stripe and writes it to
// the local store. Stripe is always the source of truth, so the same call can
// be repeated for any number of events about the customer.
type Syncer struct {
	gateway subscriptionFetcher
	store   subscriptionStore
	now     func() time.Time
}

func NewSyncer(gateway subscriptionFetcher, store subscriptionStore) *Syncer {
	return &Syncer{gateway: gateway, store: store, now: time.Now}
}

func (s *Syncer) SyncCustomerData(ctx context.Context, customerID string) (*domain.CustomerSubscription, error) {
	if customerID == "" {
		return nil, fmt.Errorf("SyncCustomerData: empty customer id: %w", domain.ErrInvalidRequest)
	}

	sub, err := s.gateway.LatestSubscription(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("SyncCustomerData: %w", err)
	}

	record := toCustomerSubscription(customerID, sub, s.now().UTC())
	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("SyncCustomerData: %w", err)
	}

	logging.FromContext(ctx).Info("customer subscription synced",
		"customer_id", customerID,
		"status", record.Status,
	)
	return record, nil
}

func toCustomerSubscription(customerID string, sub *stripe.Subscription, now time.Time) *domain.CustomerSubscription {
	record := &domain.CustomerSubscription{
		StripeCustomerID: customerID,
		Status:           domain.SubscriptionStatusNone,
		UpdatedAt:        now,
	}
	if sub == nil {
		return record
	}

	record.SubscriptionID = &sub.ID
	record.Status = string(sub.Status)
	record.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	record.CurrentPeriodStart = unixTime(sub.CurrentPeriodStart)
	record.CurrentPeriodEnd = unixTime(sub.CurrentPeriodEnd)

	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID := sub.Items.Data[0].Price.ID
		record.PriceID = &priceID
	}

	if pm := sub.DefaultPaymentMethod; pm != nil && pm.Card != nil {
		brand := string(pm.Card.Brand)
		last4 := pm.Card.Last4
		record.PaymentMethodBrand = &brand
		record.PaymentMethodLast4 = &last4
	}

	return record
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
