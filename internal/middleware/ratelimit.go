package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/auth"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/handler"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/logging"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per caller. Authenticated requests
// are keyed by user ID, anonymous ones by remote IP.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		callers: make(map[string]*limiterEntry),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
	}
}

func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.callers[key]
	if !ok {
		rl.evictIdle(now)
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.callers[key] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, e := range rl.callers {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(rl.callers, key)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := rl.allow(callerKey(r))
		if !ok {
			logging.FromContext(r.Context()).Warn("rate limit exceeded", "path", r.URL.Path)
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
			handler.RespondAppError(w, handler.ErrRateLimited, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
