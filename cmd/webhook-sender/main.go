// Command webhook-sender posts signed Stripe events to a local billing API so
// the webhook path can be exercised without the Stripe CLI.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/config"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/logging"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	var (
		target     = flag.String("url", "http://localhost:8080/api/v1/webhooks/stripe", "webhook endpoint")
		secret     = flag.String("secret", os.Getenv("STRIPE_WEBHOOK_SECRET"), "webhook signing secret")
		file       = flag.String("file", "", "path to a JSON event; overrides -type")
		eventType  = flag.String("type", "customer.subscription.updated", "built-in event template")
		customerID = flag.String("customer", "cus_local_test", "customer id used by templates")
		email      = flag.String("email", "guest@example.com", "customer email used by the checkout template")
	)
	flag.Parse()

	logging.Init("webhook-sender", "info", os.Getenv("APP_ENV"))

	if *secret == "" {
		slog.Error("signing secret required: pass -secret or set STRIPE_WEBHOOK_SECRET")
		os.Exit(2)
	}

	var body []byte
	var err error
	if *file != "" {
		body, err = os.ReadFile(*file)
	} else {
		body, err = buildEvent(*eventType, *customerID, *email, time.Now())
	}
	if err != nil {
		slog.Error("failed to prepare event", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, resp, err := send(ctx, http.DefaultClient, *target, *secret, body, time.Now())
	if err != nil {
		slog.Error("failed to deliver event", "error", err)
		os.Exit(1)
	}

	slog.Info("event delivered", "status", status, "response", string(resp))
	if status >= 300 {
		os.Exit(1)
	}
}

func send(ctx context.Context, client *http.Client, target, secret string, body []byte, now time.Time) (int, []byte, error) {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    secret,
		Timestamp: now,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("send: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("send: read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func buildEvent(eventType, customerID, email string, now time.Time) ([]byte, error) {
	object, err := templateObject(eventType, customerID, email, now)
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"id":          fmt.Sprintf("evt_local_%d", now.UnixNano()),
		"object":      "event",
		"api_version": "2024-06-20",
		"created":     now.Unix(),
		"livemode":    false,
		"type":        eventType,
		"data":        map[string]any{"object": object},
	})
}

func templateObject(eventType, customerID, email string, now time.Time) (map[string]any, error) {
	switch eventType {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		status := "active"
		if eventType == "customer.subscription.deleted" {
			status = "canceled"
		}
		return map[string]any{
			"id":                   "sub_local_test",
			"object":               "subscription",
			"customer":             customerID,
			"status":               status,
			"current_period_start": now.Unix(),
			"current_period_end":   now.AddDate(0, 1, 0).Unix(),
		}, nil
	case "invoice.paid", "invoice.payment_succeeded", "invoice.payment_failed":
		return map[string]any{
			"id":           "in_local_test",
			"object":       "invoice",
			"customer":     customerID,
			"subscription": "sub_local_test",
			"amount_paid":  2900,
			"currency":     "usd",
		}, nil
	case "checkout.session.completed":
		return map[string]any{
			"id":             fmt.Sprintf("cs_local_%d", now.Unix()),
			"object":         "checkout.session",
			"mode":           "subscription",
			"customer":       customerID,
			"subscription":   "sub_local_test",
			"payment_status": "paid",
			"amount_total":   2900,
			"currency":       "usd",
			"customer_details": map[string]any{
				"email": email,
			},
			"metadata": map[string]any{
				"plan_name": "Pro",
				"price_id":  "price_local_pro",
			},
		}, nil
	default:
		return nil, fmt.Errorf("no template for event type %q", eventType)
	}
}
