package domain

import "time"

// SubscriptionStatusNone marks a customer with no subscription on the provider side.
const SubscriptionStatusNone = "none"

type CustomerSubscription struct {
	StripeCustomerID   string
	SubscriptionID     *string
	Status             string
	PriceID            *string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	PaymentMethodBrand *string
	PaymentMethodLast4 *string
	UpdatedAt          time.Time
}

func (s *CustomerSubscription) IsActive() bool {
	return s.Status == "active" || s.Status == "trialing"
}
