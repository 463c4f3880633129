package dispatch

import "github.com/stripe/stripe-go/v80"

const (
	EventSubscriptionCreated     stripe.EventType = "customer.subscription.created"
	EventSubscriptionUpdated     stripe.EventType = "customer.subscription.updated"
	EventSubscriptionDeleted     stripe.EventType = "customer.subscription.deleted"
	EventInvoicePaid             stripe.EventType = "invoice.paid"
	EventInvoicePaymentSucceeded stripe.EventType = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    stripe.EventType = "invoice.payment_failed"
	EventCheckoutSessionComplete stripe.EventType = "checkout.session.completed"
)

type eventKind int

const (
	kindSubscription eventKind = iota + 1
	kindInvoice
	kindCheckout
)

func defaultRelevantEvents() map[stripe.EventType]eventKind {
	return map[stripe.EventType]eventKind{
		EventSubscriptionCreated:     kindSubscription,
		EventSubscriptionUpdated:     kindSubscription,
		EventSubscriptionDeleted:     kindSubscription,
		EventInvoicePaid:             kindInvoice,
		EventInvoicePaymentSucceeded: kindInvoice,
		EventInvoicePaymentFailed:    kindInvoice,
		EventCheckoutSessionComplete: kindCheckout,
	}
}

// CustomerID normalizes a Stripe customer reference. Stripe sends either the
// bare ID or the expanded object; stripe-go decodes both into *stripe.Customer
// with ID set. A nil reference yields "".
func CustomerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripe.Subscription) *string {
	if s == nil || s.ID == "" {
		return nil
	}
	id := s.ID
	return &id
}
