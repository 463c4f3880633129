package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/logging"
)

type customerLinkStore interface {
	Create(ctx context.Context, c *domain.BillingCustomer) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.BillingCustomer, error)
}

// CustomerLinker writes the user to Stripe customer mapping that turns a
// customer from guest into member.
type CustomerLinker struct {
	customers customerLinkStore
	now       func() time.Time
}

func NewCustomerLinker(customers customerLinkStore) *CustomerLinker {
	return &CustomerLinker{customers: customers, now: time.Now}
}

// LinkCustomer links userID to customerID. Relinking the same pair is a no-op,
// so redelivered checkout events succeed. Any other clash on either side
// returns domain.ErrCustomerLinkConflict.
func (l *CustomerLinker) LinkCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	if userID == uuid.Nil || customerID == "" {
		return fmt.Errorf("LinkCustomer: user and customer id required: %w", domain.ErrInvalidRequest)
	}

	err := l.customers.Create(ctx, &domain.BillingCustomer{
		UserID:           userID,
		StripeCustomerID: customerID,
		CreatedAt:        l.now().UTC(),
	})
	if err == nil {
		logging.FromContext(ctx).Info("billing customer linked", "user_id", userID, "customer_id", customerID)
		return nil
	}
	if !errors.Is(err, domain.ErrCustomerLinkConflict) {
		return fmt.Errorf("LinkCustomer: %w", err)
	}

	existing, getErr := l.customers.GetByUserID(ctx, userID)
	if getErr == nil && existing.StripeCustomerID == customerID {
		return nil
	}
	if getErr != nil && !errors.Is(getErr, domain.ErrNotFound) {
		return fmt.Errorf("LinkCustomer: %w", getErr)
	}
	return fmt.Errorf("LinkCustomer: user %s, customer %s: %w", userID, customerID, domain.ErrCustomerLinkConflict)
}
