package domain

import (
	"time"

	"github.com/google/uuid"
)

type WebhookEventStatus string

const (
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusIgnored   WebhookEventStatus = "ignored"
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
)

// WebhookEvent is the ledger entry for one verified Stripe delivery. Redeliveries
// of the same Stripe event update the entry in place.
type WebhookEvent struct {
	ID            uuid.UUID
	StripeEventID string
	EventType     string
	Status        WebhookEventStatus
	Error         *string
	Attempts      int
	CreatedAt     time.Time
	ProcessedAt   time.Time
}
