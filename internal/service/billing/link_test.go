package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
)

// fakeLinkStore enforces both unique columns like billing_customers.
type fakeLinkStore struct {
	byUser    map[uuid.UUID]string
	createErr error
}

func newFakeLinkStore() *fakeLinkStore {
	return &fakeLinkStore{byUser: map[uuid.UUID]string{}}
}

func (f *fakeLinkStore) Create(_ context.Context, c *domain.BillingCustomer) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byUser[c.UserID]; ok {
		return fmt.Errorf("Create: %w", domain.ErrCustomerLinkConflict)
	}
	for _, cus := range f.byUser {
		if cus == c.StripeCustomerID {
			return fmt.Errorf("Create: %w", domain.ErrCustomerLinkConflict)
		}
	}
	f.byUser[c.UserID] = c.StripeCustomerID
	return nil
}

func (f *fakeLinkStore) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.BillingCustomer, error) {
	cus, ok := f.byUser[userID]
	if !ok {
		return nil, fmt.Errorf("GetByUserID: %w", domain.ErrNotFound)
	}
	return &domain.BillingCustomer{UserID: userID, StripeCustomerID: cus}, nil
}

func TestCustomerLinker_LinkCustomer(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()

	tests := []struct {
		name     string
		seed     map[uuid.UUID]string
		user     uuid.UUID
		customer string
		wantErr  error
	}{
		{name: "new link", user: user, customer: "cus_new"},
		{name: "same pair again", seed: map[uuid.UUID]string{user: "cus_new"}, user: user, customer: "cus_new"},
		{name: "user linked to another customer", seed: map[uuid.UUID]string{user: "cus_old"}, user: user, customer: "cus_new", wantErr: domain.ErrCustomerLinkConflict},
		{name: "customer linked to another user", seed: map[uuid.UUID]string{other: "cus_new"}, user: user, customer: "cus_new", wantErr: domain.ErrCustomerLinkConflict},
		{name: "nil user", user: uuid.Nil, customer: "cus_new", wantErr: domain.ErrInvalidRequest},
		{name: "empty customer", user: user, customer: "", wantErr: domain.ErrInvalidRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeLinkStore()
			for u, c := range tc.seed {
				store.byUser[u] = c
			}
			linker := NewCustomerLinker(store)
			linker.now = func() time.Time { return fixedNow }

			err := linker.LinkCustomer(ctx, tc.user, tc.customer)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.customer, store.byUser[tc.user])
		})
	}
}

func TestCustomerLinker_StoreFailure(t *testing.T) {
	store := newFakeLinkStore()
	store.createErr = errors.New("connection reset")

	err := NewCustomerLinker(store).LinkCustomer(context.Background(), uuid.New(), "cus_1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCustomerLinkConflict)
	assert.Contains(t, err.Error(), "connection reset")
}
