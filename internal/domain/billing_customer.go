package domain

import (
	"time"

	"github.com/google/uuid"
)

// BillingCustomer links an application user to a Stripe customer. A Stripe
// customer with no link is treated as a guest purchaser.
type BillingCustomer struct {
	UserID           uuid.UUID
	StripeCustomerID string
	CreatedAt        time.Time
}
