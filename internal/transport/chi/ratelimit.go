package chi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/voicegate/internal/metrics"
)

const (
	msgRateLimited    = "Too many requests, slow down."
	rateLimitWindow   = time.Minute
	staleClientAfter  = 5 * time.Minute
	defaultCleanupInt = time.Minute
)

// RateLimiter provides per-client token bucket rate limiting.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*rate.Limiter
	lastSeen   map[string]time.Time
	rate       rate.Limit
	burst      int
	trustProxy bool
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// PerMinute is the number of requests a client may make per minute.
	PerMinute int
	// TrustProxy resolves the client from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	// CleanupInterval is how often stale clients are dropped.
	CleanupInterval time.Duration
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
// Call Close to stop the loop.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = defaultCleanupInt
	}
	perMinute := max(cfg.PerMinute, 1)

	rl := &RateLimiter{
		clients:    make(map[string]*rate.Limiter),
		lastSeen:   make(map[string]time.Time),
		rate:       rate.Every(rateLimitWindow / time.Duration(perMinute)),
		burst:      perMinute,
		trustProxy: cfg.TrustProxy,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	go rl.cleanupLoop(cleanup)

	return rl
}

// Close stops the cleanup loop.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// getLimiter returns the rate limiter for a client, creating one if needed.
func (rl *RateLimiter) getLimiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lastSeen[client] = rl.now()

	limiter, exists := rl.clients[client]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.clients[client] = limiter
	}

	return limiter
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

func (rl *RateLimiter) evictStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-staleClientAfter)
	for client, seen := range rl.lastSeen {
		if seen.Before(threshold) {
			delete(rl.clients, client)
			delete(rl.lastSeen, client)
		}
	}
}

// Middleware rejects requests over the limit with 429 and the JSON envelope.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := rl.getLimiter(clientKey(r, rl.trustProxy))
		allowed := limiter.AllowN(rl.now(), 1)

		remaining := max(int(limiter.TokensAt(rl.now())), 0)
		w.Header().Set("RateLimit-Limit", strconv.Itoa(rl.burst))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			metrics.RateLimitedTotal.Inc()
			retry := time.Duration(float64(time.Second) / float64(rl.rate))
			w.Header().Set("Retry-After", strconv.Itoa(max(int(retry.Seconds()), 1)))
			writeError(w, http.StatusTooManyRequests, msgRateLimited, nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller. With trustProxy one proxy hop is trusted:
// the last X-Forwarded-For entry (appended by that proxy) or X-Real-IP wins
// over the socket address. Earlier entries are client-supplied and ignored.
func clientKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := lastForwarded(r.Header.Values("X-Forwarded-For")); ip != "" {
			return ip
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// lastForwarded returns the rightmost non-empty entry across all
// X-Forwarded-For header lines.
func lastForwarded(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		parts := strings.Split(values[i], ",")
		for j := len(parts) - 1; j >= 0; j-- {
			if ip := strings.TrimSpace(parts[j]); ip != "" {
				return ip
			}
		}
	}
	return ""
}
