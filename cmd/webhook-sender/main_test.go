package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

const testSecret = "whsec_sender_test"

func TestBuildEvent_Templates(t *testing.T) {
	now := time.Now()
	types := []string{
		"customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted",
		"invoice.paid",
		"invoice.payment_succeeded",
		"invoice.payment_failed",
		"checkout.session.completed",
	}

	for _, eventType := range types {
		t.Run(eventType, func(t *testing.T) {
			body, err := buildEvent(eventType, "cus_tmpl", "guest@example.com", now)
			require.NoError(t, err)

			signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
				Payload: body, Secret: testSecret, Timestamp: now,
			})
			event, err := webhook.ConstructEventWithOptions(body, signed.Header, testSecret, webhook.ConstructEventOptions{
				IgnoreAPIVersionMismatch: true,
			})
			require.NoError(t, err)
			assert.Equal(t, stripe.EventType(eventType), event.Type)
			assert.Equal(t, "cus_tmpl", event.Data.Object["customer"])
		})
	}
}

func TestBuildEvent_UnknownType(t *testing.T) {
	_, err := buildEvent("charge.refunded", "cus_tmpl", "", time.Now())
	assert.Error(t, err)
}

func TestSend_SignsBody(t *testing.T) {
	var verifyErr error
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, verifyErr = webhook.ConstructEventWithOptions(body, r.Header.Get("Stripe-Signature"), testSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		w.Write([]byte(`{"received":true}`))
	}))
	defer srv.Close()

	body, err := buildEvent("invoice.paid", "cus_send", "", time.Now())
	require.NoError(t, err)

	status, resp, err := send(t.Context(), srv.Client(), srv.URL, testSecret, body, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"received":true}`, string(resp))
	assert.NoError(t, verifyErr)
}
