package domain

import (
	"time"

	"github.com/google/uuid"
)

type GuestSessionStatus string

const (
	GuestSessionStatusPending    GuestSessionStatus = "pending"
	GuestSessionStatusReconciled GuestSessionStatus = "reconciled"
)

// GuestSession records a subscription checkout completed before the purchaser
// had an account. It stays pending until reconciled or until ExpiresAt.
type GuestSession struct {
	ID             uuid.UUID
	SessionID      string
	CustomerID     string
	SubscriptionID *string
	Email          string
	PlanName       string
	PriceID        string
	PaymentStatus  string
	AmountTotal    int64
	Currency       string
	Metadata       map[string]string
	Status         GuestSessionStatus
	CreatedAt      time.Time
	ExpiresAt      time.Time
	ReconciledAt   *time.Time
}

func (g *GuestSession) IsExpired(now time.Time) bool {
	return g.Status == GuestSessionStatusPending && now.After(g.ExpiresAt)
}
