package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/auth"
)

func TestRateLimiter_PerUserBuckets(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 2)
	rl.now = func() time.Time { return clock }

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	alice, bob := uuid.New(), uuid.New()
	call := func(user uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/sync", nil)
		req = req.WithContext(auth.ContextWithClaims(req.Context(), &auth.Claims{UserID: user}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, call(alice).Code)
	assert.Equal(t, http.StatusOK, call(alice).Code)

	limited := call(alice)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", errorCode(t, limited))

	assert.Equal(t, http.StatusOK, call(bob).Code)

	clock = clock.Add(time.Second)
	assert.Equal(t, http.StatusOK, call(alice).Code)
}

func TestRateLimiter_EvictsIdleCallers(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return clock }

	ok, _ := rl.allow("ip:10.0.0.1")
	assert.True(t, ok)

	clock = clock.Add(limiterIdleTTL + time.Minute)
	ok, _ = rl.allow("ip:10.0.0.2")
	assert.True(t, ok)

	assert.Len(t, rl.callers, 1)
	assert.Contains(t, rl.callers, "ip:10.0.0.2")
}

func TestCallerKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5123"
	assert.Equal(t, "ip:192.0.2.7", callerKey(req))

	id := uuid.New()
	req = req.WithContext(auth.ContextWithClaims(req.Context(), &auth.Claims{UserID: id}))
	assert.Equal(t, "user:"+id.String(), callerKey(req))
}
