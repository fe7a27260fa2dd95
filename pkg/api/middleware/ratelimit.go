package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/orderflow/orderflow/config"
	"github.com/orderflow/orderflow/pkg/api/response"
)

// clientLimiter tracks the limiter and last activity for one client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client address using token buckets.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter

	rps   rate.Limit
	burst int
}

// NewRateLimiter creates a rate limiter with the given sustained rate and burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether the client may proceed.
func (rl *RateLimiter) Allow(clientKey string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[clientKey]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[clientKey] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

// cleanup evicts limiters idle for more than three minutes.
func (rl *RateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		rl.mu.Lock()
		for key, cl := range rl.clients {
			if time.Since(cl.lastSeen) > 3*time.Minute {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit returns a middleware that enforces per-client request limits.
func RateLimit(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	rl := NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !rl.Allow(key) {
				requestID := GetRequestID(r.Context())
				response.Error(w,
					http.StatusTooManyRequests,
					response.ErrCodeTooManyRequests,
					"rate limit exceeded",
					requestID,
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey derives the limiter key from the remote address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
