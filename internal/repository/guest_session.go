package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
)

const guestSessionColumns = `id, session_id, customer_id, subscription_id, email, plan_name,
	price_id, payment_status, amount_total, currency, metadata, status,
	created_at, expires_at, reconciled_at`

type GuestSessionRepository struct {
	db *sql.DB
}

func NewGuestSessionRepository(db *sql.DB) *GuestSessionRepository {
	return &GuestSessionRepository{db: db}
}

func (r *GuestSessionRepository) Create(ctx context.Context, g *domain.GuestSession) error {
	metadata, err := json.Marshal(nonNilMetadata(g.Metadata))
	if err != nil {
		return fmt.Errorf("Create: marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO guest_sessions (`+guestSessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		g.ID, g.SessionID, g.CustomerID, g.SubscriptionID, g.Email, g.PlanName,
		g.PriceID, g.PaymentStatus, g.AmountTotal, g.Currency, metadata, g.Status,
		g.CreatedAt, g.ExpiresAt, g.ReconciledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateGuestSession)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *GuestSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.GuestSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+guestSessionColumns+` FROM guest_sessions WHERE session_id = $1`, sessionID,
	)
	g, err := scanGuestSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetBySessionID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetBySessionID: %w", err)
	}
	return g, nil
}

// DeleteExpired removes pending sessions whose expiry is before now. Reconciled
// sessions are kept as history.
func (r *GuestSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM guest_sessions WHERE status = $1 AND expires_at < $2`,
		domain.GuestSessionStatusPending, now,
	)
	if err != nil {
		return 0, fmt.Errorf("DeleteExpired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteExpired: rows affected: %w", err)
	}
	return n, nil
}

func scanGuestSession(s scanner) (*domain.GuestSession, error) {
	var (
		g        domain.GuestSession
		metadata []byte
	)
	err := s.Scan(
		&g.ID, &g.SessionID, &g.CustomerID, &g.SubscriptionID, &g.Email, &g.PlanName,
		&g.PriceID, &g.PaymentStatus, &g.AmountTotal, &g.Currency, &metadata, &g.Status,
		&g.CreatedAt, &g.ExpiresAt, &g.ReconciledAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &g.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &g, nil
}

func nonNilMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
