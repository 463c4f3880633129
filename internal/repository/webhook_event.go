package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
)

const webhookEventColumns = `id, stripe_event_id, event_type, status, error,
	attempts, created_at, processed_at`

type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record stores the outcome of a delivery. A redelivery of the same Stripe event
// overwrites the outcome and bumps attempts; the original ID and created_at stay.
func (r *WebhookEventRepository) Record(ctx context.Context, event *domain.WebhookEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_events (
			id, stripe_event_id, event_type, status, error, attempts, created_at, processed_at
		) VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
		ON CONFLICT (stripe_event_id) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			attempts = webhook_events.attempts + 1,
			processed_at = EXCLUDED.processed_at`,
		event.ID, event.StripeEventID, event.EventType, event.Status, event.Error,
		event.CreatedAt, event.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

func (r *WebhookEventRepository) GetByStripeEventID(ctx context.Context, stripeEventID string) (*domain.WebhookEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+webhookEventColumns+` FROM webhook_events WHERE stripe_event_id = $1`, stripeEventID,
	)
	e, err := scanWebhookEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByStripeEventID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByStripeEventID: %w", err)
	}
	return e, nil
}

func scanWebhookEvent(s scanner) (*domain.WebhookEvent, error) {
	var e domain.WebhookEvent
	err := s.Scan(
		&e.ID, &e.StripeEventID, &e.EventType, &e.Status, &e.Error,
		&e.Attempts, &e.CreatedAt, &e.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
