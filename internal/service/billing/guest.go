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

type customerLinkLookup interface {
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.BillingCustomer, error)
}

type guestSessionStore interface {
	Create(ctx context.Context, g *domain.GuestSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*domain.GuestSession, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type customerEmailFetcher interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

type GuestService struct {
	customers customerLinkLookup
	sessions  guestSessionStore
	gateway   customerEmailFetcher
	ttl       time.Duration
	now       func() time.Time
}

func NewGuestService(customers customerLinkLookup, sessions guestSessionStore, gateway customerEmailFetcher, ttl time.Duration) *GuestService {
	return &GuestService{
		customers: customers,
		sessions:  sessions,
		gateway:   gateway,
		ttl:       ttl,
		now:       time.Now,
	}
}

// IsGuestCustomer reports whether no application user is linked to the Stripe
// customer. A lookup failure is returned as an error rather than a verdict.
func (s *GuestService) IsGuestCustomer(ctx context.Context, customerID string) (bool, error) {
	_, err := s.customers.GetByStripeCustomerID(ctx, customerID)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	return false, fmt.Errorf("IsGuestCustomer: %w", err)
}

// CreateGuestSession stores a pending guest session. It returns false without an
// error when the checkout session was already recorded.
func (s *GuestService) CreateGuestSession(ctx context.Context, g *domain.GuestSession) (bool, error) {
	if g.SessionID == "" || g.CustomerID == "" {
		return false, fmt.Errorf("CreateGuestSession: session and customer id required: %w", domain.ErrInvalidRequest)
	}

	now := s.now().UTC()
	g.ID = uuid.New()
	g.Status = domain.GuestSessionStatusPending
	g.CreatedAt = now
	g.ExpiresAt = now.Add(s.ttl)

	if err := s.sessions.Create(ctx, g); err != nil {
		if errors.Is(err, domain.ErrDuplicateGuestSession) {
			logging.FromContext(ctx).Info("guest session already recorded", "session_id", g.SessionID)
			return false, nil
		}
		return false, fmt.Errorf("CreateGuestSession: %w", err)
	}

	logging.FromContext(ctx).Info("guest session created",
		"guest_session_id", g.ID,
		"session_id", g.SessionID,
		"customer_id", g.CustomerID,
		"expires_at", g.ExpiresAt,
	)
	return true, nil
}

func (s *GuestService) GetGuestSession(ctx context.Context, sessionID string) (*domain.GuestSession, error) {
	g, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("GetGuestSession: %w", err)
	}
	return g, nil
}

func (s *GuestService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("CleanupExpiredSessions: %w", err)
	}
	return n, nil
}

func (s *GuestService) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	email, err := s.gateway.CustomerEmail(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("CustomerEmail: %w", err)
	}
	return email, nil
}
