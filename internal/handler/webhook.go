package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/domain"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/logging"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/service/dispatch"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBodyBytes   = 1 << 20
)

const (
	msgMissingSignature  = "Missing stripe-signature header"
	msgSecretMissing     = "Webhook secret not configured"
	msgProcessingFailed  = "Webhook processing failed"
	msgUnreadableWebhook = "Unable to read request body"
)

type eventDispatcher interface {
	Dispatch(ctx context.Context, event stripe.Event) (dispatch.Outcome, error)
}

type webhookEventRecorder interface {
	Record(ctx context.Context, event *domain.WebhookEvent) error
}

type WebhookHandler struct {
	dispatcher eventDispatcher
	events     webhookEventRecorder
	secret     string
	now        func() time.Time
}

func NewWebhookHandler(dispatcher eventDispatcher, events webhookEventRecorder, secret string) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		events:     events,
		secret:     secret,
		now:        time.Now,
	}
}

type webhookErrorBody struct {
	Error string `json:"error"`
}

type webhookAckBody struct {
	Received bool `json:"received"`
}

// ReceiveStripeWebhook verifies a Stripe delivery and hands it to the
// dispatcher. Stripe retries anything outside 2xx, so only dispatch failures
// answer 500; requests that can never verify answer 400.
func (h *WebhookHandler) ReceiveStripeWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	sig := r.Header.Get(stripeSignatureHeader)
	if sig == "" {
		log.Warn("stripe webhook without signature header")
		RespondJSON(w, http.StatusBadRequest, webhookErrorBody{Error: msgMissingSignature})
		return
	}

	if h.secret == "" {
		log.Error("stripe webhook secret not configured")
		RespondJSON(w, http.StatusInternalServerError, webhookErrorBody{Error: msgSecretMissing})
		return
	}

	// Verification runs over the exact bytes Stripe signed.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Warn("failed to read stripe webhook body", "error", err)
		RespondJSON(w, http.StatusBadRequest, webhookErrorBody{Error: msgUnreadableWebhook})
		return
	}

	event, err := webhook.ConstructEventWithOptions(body, sig, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Warn("stripe webhook signature verification failed", "error", err)
		RespondJSON(w, http.StatusBadRequest, webhookErrorBody{Error: err.Error()})
		return
	}

	log.Info("stripe webhook received", "event_id", event.ID, "event_type", event.Type)

	outcome, err := h.dispatcher.Dispatch(r.Context(), event)
	if err != nil {
		log.Error("stripe webhook processing failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		h.record(r.Context(), event, domain.WebhookEventStatusFailed, err)
		RespondJSON(w, http.StatusInternalServerError, webhookErrorBody{Error: msgProcessingFailed})
		return
	}

	status := domain.WebhookEventStatusProcessed
	if outcome == dispatch.OutcomeIgnored {
		status = domain.WebhookEventStatusIgnored
	}
	h.record(r.Context(), event, status, nil)

	RespondJSON(w, http.StatusOK, webhookAckBody{Received: true})
}

// record writes the delivery outcome to the ledger. The ledger is for
// diagnosis only; a failed write never changes the response Stripe sees.
func (h *WebhookHandler) record(ctx context.Context, event stripe.Event, status domain.WebhookEventStatus, procErr error) {
	if h.events == nil {
		return
	}

	now := h.now().UTC()
	entry := &domain.WebhookEvent{
		ID:            uuid.New(),
		StripeEventID: event.ID,
		EventType:     string(event.Type),
		Status:        status,
		CreatedAt:     now,
		ProcessedAt:   now,
	}
	if procErr != nil {
		msg := procErr.Error()
		entry.Error = &msg
	}

	if err := h.events.Record(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to record stripe webhook event",
			"event_id", event.ID,
			"error", err,
		)
	}
}
