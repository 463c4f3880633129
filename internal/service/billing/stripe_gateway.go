package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
)

// StripeGateway is the read side of the Stripe API this service needs.
type StripeGateway struct {
	client *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return newStripeGateway(secretKey, nil)
}

// newStripeGateway allows pointing the client at a fake API; nil backends use Stripe's.
func newStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &StripeGateway{client: sc}
}

// LatestSubscription returns the customer's most recent subscription in any
// status, or nil when the customer has none.
func (g *StripeGateway) LatestSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true
	params.AddExpand("data.default_payment_method")

	iter := g.client.Subscriptions.List(params)
	var latest *stripe.Subscription
	if iter.Next() {
		latest = iter.Subscription()
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("LatestSubscription: %w: %w", domain.ErrProviderUnavailable, err)
	}
	return latest, nil
}

func (g *StripeGateway) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := g.client.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("CustomerEmail: %w: %w", domain.ErrProviderUnavailable, err)
	}
	if c.Deleted {
		return "", fmt.Errorf("CustomerEmail: customer %s deleted: %w", customerID, domain.ErrNotFound)
	}
	return c.Email, nil
}
