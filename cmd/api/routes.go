package main

import (
	"net/http"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/handler"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/middleware"
)

type routerDeps struct {
	jwtSecret   string
	syncLimiter *middleware.RateLimiter
	health      *handler.HealthHandler
	webhooks    *handler.WebhookHandler
	billing     *handler.BillingHandler
}

func newRouter(d routerDeps) http.Handler {
	requireUser := middleware.Auth(d.jwtSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", d.health.Liveness)
	mux.HandleFunc("GET /health/ready", d.health.Readiness)
	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec())

	mux.HandleFunc("POST /api/v1/webhooks/stripe", d.webhooks.ReceiveStripeWebhook)

	mux.Handle("GET /api/v1/billing/subscription", requireUser(http.HandlerFunc(d.billing.GetSubscription)))
	mux.Handle("POST /api/v1/billing/sync", requireUser(d.syncLimiter.Middleware(http.HandlerFunc(d.billing.Sync))))
	mux.HandleFunc("GET /api/v1/billing/guest-sessions/{sessionID}", d.billing.GetGuestSession)

	return middleware.Chain(mux, middleware.Tracing, middleware.Logging, middleware.Recovery)
}
