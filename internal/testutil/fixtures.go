package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
)

// SeedBillingCustomer links a fresh user to the given Stripe customer, making
// that customer a non-guest.
func SeedBillingCustomer(t *testing.T, db *sql.DB, stripeCustomerID string) *domain.BillingCustomer {
	t.Helper()

	c := &domain.BillingCustomer{
		UserID:           uuid.New(),
		StripeCustomerID: stripeCustomerID,
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
	_, err := db.Exec(
		`INSERT INTO billing_customers (user_id, stripe_customer_id, created_at) VALUES ($1, $2, $3)`,
		c.UserID, c.StripeCustomerID, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed billing customer %s: %v", stripeCustomerID, err)
	}
	return c
}

func SeedGuestSession(t *testing.T, db *sql.DB, sessionID string, status domain.GuestSessionStatus, expiresAt time.Time) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO guest_sessions (id, session_id, customer_id, email, payment_status, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), sessionID, "cus_"+sessionID, "guest@example.com", "paid", status, expiresAt,
	)
	if err != nil {
		t.Fatalf("seed guest session %s: %v", sessionID, err)
	}
}

func CountGuestSessions(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM guest_sessions`).Scan(&count); err != nil {
		t.Fatalf("count guest sessions: %v", err)
	}
	return count
}
