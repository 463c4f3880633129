package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/auth"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/logging"
)

type customerLinkReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.BillingCustomer, error)
}

type subscriptionReader interface {
	GetByCustomerID(ctx context.Context, customerID string) (*domain.CustomerSubscription, error)
}

type customerSyncer interface {
	SyncCustomerData(ctx context.Context, customerID string) (*domain.CustomerSubscription, error)
}

type guestSessionReader interface {
	GetGuestSession(ctx context.Context, sessionID string) (*domain.GuestSession, error)
}

type BillingHandler struct {
	customers     customerLinkReader
	subscriptions subscriptionReader
	syncer        customerSyncer
	guests        guestSessionReader
	now           func() time.Time
}

func NewBillingHandler(customers customerLinkReader, subscriptions subscriptionReader, syncer customerSyncer, guests guestSessionReader) *BillingHandler {
	return &BillingHandler{
		customers:     customers,
		subscriptions: subscriptions,
		syncer:        syncer,
		guests:        guests,
		now:           time.Now,
	}
}

type subscriptionDTO struct {
	Status             string     `json:"status"`
	SubscriptionID     *string    `json:"subscription_id,omitempty"`
	PriceID            *string    `json:"price_id,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	PaymentMethod      *cardDTO   `json:"payment_method,omitempty"`
	Active             bool       `json:"active"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

type cardDTO struct {
	Brand *string `json:"brand"`
	Last4 *string `json:"last4"`
}

var noSubscription = subscriptionDTO{Status: domain.SubscriptionStatusNone}

func toSubscriptionDTO(s *domain.CustomerSubscription) subscriptionDTO {
	dto := subscriptionDTO{
		Status:             s.Status,
		SubscriptionID:     s.SubscriptionID,
		PriceID:            s.PriceID,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		Active:             s.IsActive(),
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		dto.UpdatedAt = &updated
	}
	if s.PaymentMethodBrand != nil || s.PaymentMethodLast4 != nil {
		dto.PaymentMethod = &cardDTO{Brand: s.PaymentMethodBrand, Last4: s.PaymentMethodLast4}
	}
	return dto
}

type guestSessionDTO struct {
	SessionID      string    `json:"session_id"`
	EmailHint      string    `json:"email_hint,omitempty"`
	PlanName       string    `json:"plan_name"`
	PriceID        string    `json:"price_id"`
	SubscriptionID *string   `json:"subscription_id,omitempty"`
	PaymentStatus  string    `json:"payment_status"`
	AmountTotal    int64     `json:"amount_total"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// maskEmail keeps the first character of the local part and the domain. The
// guest session endpoint is unauthenticated, so the full address never leaves.
func maskEmail(email string) string {
	if email == "" {
		return ""
	}
	local, host, found := strings.Cut(email, "@")
	if !found || local == "" || host == "" {
		return "***"
	}
	return local[:1] + "***@" + host
}

func toGuestSessionDTO(g *domain.GuestSession) guestSessionDTO {
	return guestSessionDTO{
		SessionID:      g.SessionID,
		EmailHint:      maskEmail(g.Email),
		PlanName:       g.PlanName,
		PriceID:        g.PriceID,
		SubscriptionID: g.SubscriptionID,
		PaymentStatus:  g.PaymentStatus,
		AmountTotal:    g.AmountTotal,
		Amount:         domain.FormatAmount(g.AmountTotal, g.Currency),
		Currency:       g.Currency,
		Status:         string(g.Status),
		CreatedAt:      g.CreatedAt,
		ExpiresAt:      g.ExpiresAt,
	}
}

// GetSubscription returns the caller's last synced subscription. Users who
// never checked out get status "none" rather than an error.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	link, err := h.customers.GetByUserID(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		RespondSuccess(w, http.StatusOK, noSubscription)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load billing customer", "error", err)
		RespondDomainError(w, err)
		return
	}

	sub, err := h.subscriptions.GetByCustomerID(r.Context(), link.StripeCustomerID)
	if errors.Is(err, domain.ErrNotFound) {
		RespondSuccess(w, http.StatusOK, noSubscription)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load subscription", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toSubscriptionDTO(sub))
}

// Sync pulls the caller's subscription from Stripe immediately. The checkout
// success page calls this so the user does not wait on webhook delivery.
func (h *BillingHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	link, err := h.customers.GetByUserID(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		RespondAppError(w, ErrCustomerNotLinked, nil)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load billing customer", "error", err)
		RespondDomainError(w, err)
		return
	}

	sub, err := h.syncer.SyncCustomerData(r.Context(), link.StripeCustomerID)
	if err != nil {
		logging.FromContext(r.Context()).Error("on-demand sync failed",
			"customer_id", link.StripeCustomerID,
			"error", err,
		)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toSubscriptionDTO(sub))
}

func (h *BillingHandler) GetGuestSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	if sessionID == "" {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	g, err := h.guests.GetGuestSession(r.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.FromContext(r.Context()).Error("failed to load guest session", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	// Expired sessions are hidden even before the sweeper removes them.
	if g.IsExpired(h.now()) {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, toGuestSessionDTO(g))
}
