package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/logging"
)

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
)

type CustomerSyncer interface {
	SyncCustomerData(ctx context.Context, customerID string) (*domain.CustomerSubscription, error)
}

type GuestClassifier interface {
	IsGuestCustomer(ctx context.Context, customerID string) (bool, error)
}

type GuestSessionCreator interface {
	CreateGuestSession(ctx context.Context, g *domain.GuestSession) (bool, error)
}

type CustomerEmailLookup interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// CustomerLinker records which application user owns a Stripe customer.
type CustomerLinker interface {
	LinkCustomer(ctx context.Context, userID uuid.UUID, customerID string) error
}

// CleanupTrigger asks the background sweeper for an early run. Implementations
// must not block.
type CleanupTrigger interface {
	Trigger()
}

type Config struct {
	Syncer    CustomerSyncer
	Guests    GuestClassifier
	Sessions  GuestSessionCreator
	Customers CustomerEmailLookup

	// Linker is optional. When set, a checkout carrying the purchaser's user
	// id in client_reference_id or metadata.user_id links the customer before
	// classification.
	Linker CustomerLinker

	// Cleanup is optional. When set, each handled event nudges it with
	// probability CleanupSampleRate.
	Cleanup           CleanupTrigger
	CleanupSampleRate float64
	// Rand returns values in [0, 1). Defaults to math/rand/v2.
	Rand func() float64
}

// Dispatcher routes verified Stripe events to the sync and guest-session
// collaborators. It holds no per-event state and is safe for concurrent use.
type Dispatcher struct {
	cfg      Config
	relevant map[stripe.EventType]eventKind
}

func New(cfg Config) *Dispatcher {
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	return &Dispatcher{cfg: cfg, relevant: defaultRelevantEvents()}
}

func (d *Dispatcher) IsRelevant(t stripe.EventType) bool {
	_, ok := d.relevant[t]
	return ok
}

func (d *Dispatcher) Dispatch(ctx context.Context, event stripe.Event) (Outcome, error) {
	ctx = logging.With(ctx, "event_id", event.ID, "event_type", event.Type)
	log := logging.FromContext(ctx)

	kind, ok := d.relevant[event.Type]
	if !ok {
		log.Debug("ignoring irrelevant stripe event")
		return OutcomeIgnored, nil
	}
	if event.Data == nil {
		return "", fmt.Errorf("Dispatch %s: event has no data object", event.Type)
	}

	var err error
	switch kind {
	case kindSubscription:
		err = d.handleSubscription(ctx, event.Data.Raw)
	case kindInvoice:
		err = d.handleInvoice(ctx, event.Data.Raw)
	case kindCheckout:
		err = d.handleCheckoutCompleted(ctx, event.Data.Raw)
	}
	if err != nil {
		return "", fmt.Errorf("Dispatch %s: %w", event.Type, err)
	}

	d.maybeTriggerCleanup(ctx)
	return OutcomeProcessed, nil
}

func (d *Dispatcher) handleSubscription(ctx context.Context, raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	customerID := CustomerID(sub.Customer)
	if customerID == "" {
		logging.FromContext(ctx).Warn("subscription event without customer, skipping", "subscription_id", sub.ID)
		return nil
	}
	return d.syncUnlessGuest(ctx, customerID)
}

// handleInvoice applies the same guest check as subscription events so a guest
// invoice never creates a subscription record ahead of reconciliation.
func (d *Dispatcher) handleInvoice(ctx context.Context, raw json.RawMessage) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}

	customerID := CustomerID(inv.Customer)
	if customerID == "" {
		logging.FromContext(ctx).Info("invoice without customer, skipping", "invoice_id", inv.ID)
		return nil
	}
	return d.syncUnlessGuest(ctx, customerID)
}

func (d *Dispatcher) handleCheckoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}

	log := logging.FromContext(ctx)
	customerID := CustomerID(session.Customer)

	if session.Mode != stripe.CheckoutSessionModeSubscription {
		log.Info("checkout session is not a subscription, skipping", "session_id", session.ID, "mode", session.Mode)
		return nil
	}
	if customerID == "" {
		log.Info("checkout session without customer, skipping", "session_id", session.ID)
		return nil
	}

	ctx = logging.With(ctx, "customer_id", customerID, "session_id", session.ID)
	linked, err := d.linkPurchaser(ctx, &session, customerID)
	if err != nil {
		return err
	}
	if linked || !d.classifyGuest(ctx, customerID) {
		if _, err := d.cfg.Syncer.SyncCustomerData(ctx, customerID); err != nil {
			return fmt.Errorf("sync customer %s: %w", customerID, err)
		}
		return nil
	}

	email, err := d.resolveEmail(ctx, &session, customerID)
	if err != nil {
		return err
	}

	guest := &domain.GuestSession{
		SessionID:      session.ID,
		CustomerID:     customerID,
		SubscriptionID: subscriptionID(session.Subscription),
		Email:          email,
		PlanName:       session.Metadata["plan_name"],
		PriceID:        session.Metadata["price_id"],
		PaymentStatus:  string(session.PaymentStatus),
		AmountTotal:    session.AmountTotal,
		Currency:       string(session.Currency),
		Metadata:       session.Metadata,
	}
	created, err := d.cfg.Sessions.CreateGuestSession(ctx, guest)
	if err != nil {
		return fmt.Errorf("create guest session %s: %w", session.ID, err)
	}
	if !created {
		logging.FromContext(ctx).Info("guest session not created, already recorded")
	}
	return nil
}

// linkPurchaser links the customer to the signed-in purchaser named by the
// session. A conflicting existing link is logged and left to guest
// classification.
func (d *Dispatcher) linkPurchaser(ctx context.Context, session *stripe.CheckoutSession, customerID string) (bool, error) {
	if d.cfg.Linker == nil {
		return false, nil
	}
	userID, ok := purchaserID(session)
	if !ok {
		return false, nil
	}

	err := d.cfg.Linker.LinkCustomer(ctx, userID, customerID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrCustomerLinkConflict):
		logging.FromContext(ctx).Warn("checkout user reference conflicts with existing link", "user_id", userID, "error", err)
		return false, nil
	default:
		return false, fmt.Errorf("link customer %s: %w", customerID, err)
	}
}

func purchaserID(session *stripe.CheckoutSession) (uuid.UUID, bool) {
	for _, ref := range []string{session.ClientReferenceID, session.Metadata["user_id"]} {
		if ref == "" {
			continue
		}
		if id, err := uuid.Parse(ref); err == nil && id != uuid.Nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

func (d *Dispatcher) syncUnlessGuest(ctx context.Context, customerID string) error {
	ctx = logging.With(ctx, "customer_id", customerID)
	if d.classifyGuest(ctx, customerID) {
		logging.FromContext(ctx).Info("guest customer, deferring sync until account reconciliation")
		return nil
	}

	if _, err := d.cfg.Syncer.SyncCustomerData(ctx, customerID); err != nil {
		return fmt.Errorf("sync customer %s: %w", customerID, err)
	}
	return nil
}

// classifyGuest falls back to non-guest when classification fails: a lookup
// outage must not stop subscription state from propagating.
func (d *Dispatcher) classifyGuest(ctx context.Context, customerID string) bool {
	isGuest, err := d.cfg.Guests.IsGuestCustomer(ctx, customerID)
	if err != nil {
		logging.FromContext(ctx).Error("guest classification failed, treating customer as non-guest", "error", err)
		return false
	}
	return isGuest
}

func (d *Dispatcher) resolveEmail(ctx context.Context, session *stripe.CheckoutSession, customerID string) (string, error) {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email, nil
	}
	if session.CustomerEmail != "" {
		return session.CustomerEmail, nil
	}
	if session.Customer != nil && session.Customer.Email != "" {
		return session.Customer.Email, nil
	}

	email, err := d.cfg.Customers.CustomerEmail(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("resolve email for %s: %w", customerID, err)
	}
	return email, nil
}

func (d *Dispatcher) maybeTriggerCleanup(ctx context.Context) {
	if d.cfg.Cleanup == nil || d.cfg.CleanupSampleRate <= 0 {
		return
	}
	if d.cfg.Rand() < d.cfg.CleanupSampleRate {
		logging.FromContext(ctx).Debug("triggering expired guest session cleanup")
		d.cfg.Cleanup.Trigger()
	}
}
