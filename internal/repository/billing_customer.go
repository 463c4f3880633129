package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
)

const billingCustomerColumns = `user_id, stripe_customer_id, created_at`

type BillingCustomerRepository struct {
	db *sql.DB
}

func NewBillingCustomerRepository(db *sql.DB) *BillingCustomerRepository {
	return &BillingCustomerRepository{db: db}
}

func (r *BillingCustomerRepository) Create(ctx context.Context, c *domain.BillingCustomer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO billing_customers (user_id, stripe_customer_id, created_at)
		VALUES ($1, $2, $3)`,
		c.UserID, c.StripeCustomerID, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrCustomerLinkConflict)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *BillingCustomerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.BillingCustomer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billingCustomerColumns+` FROM billing_customers WHERE user_id = $1`, userID,
	)
	c, err := scanBillingCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUserID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByUserID: %w", err)
	}
	return c, nil
}

func (r *BillingCustomerRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.BillingCustomer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billingCustomerColumns+` FROM billing_customers WHERE stripe_customer_id = $1`, customerID,
	)
	c, err := scanBillingCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByStripeCustomerID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByStripeCustomerID: %w", err)
	}
	return c, nil
}

func scanBillingCustomer(s scanner) (*domain.BillingCustomer, error) {
	var c domain.BillingCustomer
	if err := s.Scan(&c.UserID, &c.StripeCustomerID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
