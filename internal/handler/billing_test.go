package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/auth"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
)

type fakeCustomerLinks struct {
	links map[uuid.UUID]string
	err   error
}

func (f *fakeCustomerLinks) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.BillingCustomer, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.links[userID]
	if !ok {
		return nil, fmt.Errorf("GetByUserID: %w", domain.ErrNotFound)
	}
	return &domain.BillingCustomer{UserID: userID, StripeCustomerID: id}, nil
}

type fakeSubscriptions struct {
	subs map[string]*domain.CustomerSubscription
}

func (f *fakeSubscriptions) GetByCustomerID(_ context.Context, customerID string) (*domain.CustomerSubscription, error) {
	s, ok := f.subs[customerID]
	if !ok {
		return nil, fmt.Errorf("GetByCustomerID: %w", domain.ErrNotFound)
	}
	return s, nil
}

type fakeSyncer struct {
	calls []string
	sub   *domain.CustomerSubscription
	err   error
}

func (f *fakeSyncer) SyncCustomerData(_ context.Context, customerID string) (*domain.CustomerSubscription, error) {
	f.calls = append(f.calls, customerID)
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

type fakeGuestSessions struct {
	sessions map[string]*domain.GuestSession
}

func (f *fakeGuestSessions) GetGuestSession(_ context.Context, sessionID string) (*domain.GuestSession, error) {
	g, ok := f.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("GetGuestSession: %w", domain.ErrNotFound)
	}
	return g, nil
}

func strPtr(s string) *string { return &s }

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) (map[string]any, map[string]any) {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	data, _ := resp.Data.(map[string]any)
	var errBody map[string]any
	if resp.Error != nil {
		errBody = map[string]any{"code": resp.Error.Code, "message": resp.Error.Message}
	}
	return data, errBody
}

func authedRequest(method, target string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(auth.ContextWithClaims(req.Context(), &auth.Claims{UserID: userID, Email: "member@example.com"}))
}

func TestBillingHandler_GetSubscription(t *testing.T) {
	linked := uuid.New()
	linkedNoRecord := uuid.New()
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	h := NewBillingHandler(
		&fakeCustomerLinks{links: map[uuid.UUID]string{linked: "cus_1", linkedNoRecord: "cus_2"}},
		&fakeSubscriptions{subs: map[string]*domain.CustomerSubscription{
			"cus_1": {
				StripeCustomerID:   "cus_1",
				SubscriptionID:     strPtr("sub_1"),
				Status:             "active",
				PriceID:            strPtr("price_pro"),
				CurrentPeriodEnd:   &end,
				PaymentMethodBrand: strPtr("visa"),
				PaymentMethodLast4: strPtr("4242"),
				UpdatedAt:          end,
			},
		}},
		&fakeSyncer{},
		&fakeGuestSessions{},
	)

	tests := []struct {
		name       string
		userID     uuid.UUID
		wantStatus string
		wantActive bool
	}{
		{"synced subscription", linked, "active", true},
		{"linked without record", linkedNoRecord, "none", false},
		{"no customer link", uuid.New(), "none", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.GetSubscription(rr, authedRequest(http.MethodGet, "/api/v1/billing/subscription", tc.userID))

			assert.Equal(t, http.StatusOK, rr.Code)
			data, errBody := decodeEnvelope(t, rr)
			assert.Nil(t, errBody)
			assert.Equal(t, tc.wantStatus, data["status"])
			assert.Equal(t, tc.wantActive, data["active"])
		})
	}

	t.Run("payment method is included", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.GetSubscription(rr, authedRequest(http.MethodGet, "/api/v1/billing/subscription", linked))

		data, _ := decodeEnvelope(t, rr)
		pm, ok := data["payment_method"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "visa", pm["brand"])
		assert.Equal(t, "4242", pm["last4"])
		assert.Equal(t, "sub_1", data["subscription_id"])
	})

	t.Run("no user in context", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.GetSubscription(rr, httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		_, errBody := decodeEnvelope(t, rr)
		assert.Equal(t, "MISSING_TOKEN", errBody["code"])
	})
}

func TestBillingHandler_GetSubscription_StoreFailure(t *testing.T) {
	h := NewBillingHandler(&fakeCustomerLinks{err: errors.New("connection refused")}, &fakeSubscriptions{}, &fakeSyncer{}, &fakeGuestSessions{})

	rr := httptest.NewRecorder()
	h.GetSubscription(rr, authedRequest(http.MethodGet, "/api/v1/billing/subscription", uuid.New()))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	_, errBody := decodeEnvelope(t, rr)
	assert.Equal(t, "INTERNAL_ERROR", errBody["code"])
}

func TestBillingHandler_Sync(t *testing.T) {
	linked := uuid.New()
	links := &fakeCustomerLinks{links: map[uuid.UUID]string{linked: "cus_1"}}

	tests := []struct {
		name       string
		userID     uuid.UUID
		syncErr    error
		wantCode   int
		wantErr    string
		wantCalled bool
	}{
		{
			name:       "synced",
			userID:     linked,
			wantCode:   http.StatusOK,
			wantCalled: true,
		},
		{
			name:     "no customer link",
			userID:   uuid.New(),
			wantCode: http.StatusNotFound,
			wantErr:  "BILLING_CUSTOMER_NOT_FOUND",
		},
		{
			name:       "stripe unavailable",
			userID:     linked,
			syncErr:    fmt.Errorf("SyncCustomerData: %w", fmt.Errorf("LatestSubscription: %w: %w", domain.ErrProviderUnavailable, errors.New("timeout"))),
			wantCode:   http.StatusBadGateway,
			wantErr:    "PROVIDER_UNAVAILABLE",
			wantCalled: true,
		},
		{
			name:       "store failure",
			userID:     linked,
			syncErr:    errors.New("Upsert: connection reset"),
			wantCode:   http.StatusInternalServerError,
			wantErr:    "INTERNAL_ERROR",
			wantCalled: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			syncer := &fakeSyncer{
				sub: &domain.CustomerSubscription{StripeCustomerID: "cus_1", Status: "trialing"},
				err: tc.syncErr,
			}
			h := NewBillingHandler(links, &fakeSubscriptions{}, syncer, &fakeGuestSessions{})

			rr := httptest.NewRecorder()
			h.Sync(rr, authedRequest(http.MethodPost, "/api/v1/billing/sync", tc.userID))

			assert.Equal(t, tc.wantCode, rr.Code)
			data, errBody := decodeEnvelope(t, rr)
			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, errBody["code"])
			} else {
				assert.Equal(t, "trialing", data["status"])
				assert.Equal(t, true, data["active"])
			}
			if tc.wantCalled {
				assert.Equal(t, []string{"cus_1"}, syncer.calls)
			} else {
				assert.Empty(t, syncer.calls)
			}
		})
	}
}

func TestBillingHandler_GetGuestSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := &fakeGuestSessions{sessions: map[string]*domain.GuestSession{
		"cs_usd": {
			SessionID:     "cs_usd",
			Email:         "guest@example.com",
			PlanName:      "Pro",
			PriceID:       "price_pro",
			PaymentStatus: "paid",
			AmountTotal:   2900,
			Currency:      "usd",
			Status:        domain.GuestSessionStatusPending,
			CreatedAt:     now.Add(-time.Hour),
			ExpiresAt:     now.Add(time.Hour),
		},
		"cs_jpy": {
			SessionID:   "cs_jpy",
			AmountTotal: 500,
			Currency:    "jpy",
			Status:      domain.GuestSessionStatusPending,
			ExpiresAt:   now.Add(time.Hour),
		},
		"cs_expired": {
			SessionID: "cs_expired",
			Status:    domain.GuestSessionStatusPending,
			ExpiresAt: now.Add(-time.Minute),
		},
	}}

	h := NewBillingHandler(&fakeCustomerLinks{}, &fakeSubscriptions{}, &fakeSyncer{}, sessions)
	h.now = func() time.Time { return now }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/billing/guest-sessions/{sessionID}", h.GetGuestSession)

	tests := []struct {
		name       string
		sessionID  string
		wantCode   int
		wantAmount string
		wantHint   string
	}{
		{"usd session", "cs_usd", http.StatusOK, "29.00", "g***@example.com"},
		{"zero decimal currency", "cs_jpy", http.StatusOK, "500", ""},
		{"expired session", "cs_expired", http.StatusNotFound, "", ""},
		{"unknown session", "cs_missing", http.StatusNotFound, "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/billing/guest-sessions/"+tc.sessionID, nil))

			assert.Equal(t, tc.wantCode, rr.Code)
			data, errBody := decodeEnvelope(t, rr)
			if tc.wantCode != http.StatusOK {
				assert.Equal(t, "RESOURCE_NOT_FOUND", errBody["code"])
				return
			}
			assert.Equal(t, tc.sessionID, data["session_id"])
			assert.Equal(t, tc.wantAmount, data["amount"])
			assert.NotContains(t, rr.Body.String(), "guest@example.com")
			assert.NotContains(t, data, "email")
			if tc.wantHint == "" {
				assert.NotContains(t, data, "email_hint")
				return
			}
			assert.Equal(t, tc.wantHint, data["email_hint"])
		})
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"guest@example.com", "g***@example.com"},
		{"a@b.io", "a***@b.io"},
		{"", ""},
		{"not-an-email", "***"},
		{"@example.com", "***"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, maskEmail(tc.in), tc.in)
	}
}
