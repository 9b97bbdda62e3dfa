package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/httpx"
	"github.com/mbolis/quick-feedback/metrics"
)

// Idle clients are forgotten after this long, which refills their bucket.
const limiterIdleTTL = 10 * time.Minute

// RateLimit applies a token bucket per client address.
// The table of clients is bounded; the least recently seen are evicted first.
func RateLimit(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.PerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	var (
		mu       sync.Mutex
		limiters = expirable.NewLRU[string, *rate.Limiter](max(cfg.Clients, 1), nil, limiterIdleTTL)
		every    = rate.Every(time.Minute / time.Duration(cfg.PerMinute))
		burst    = max(cfg.Burst, 1)
	)
	retryAfter := strconv.Itoa(int(time.Minute/time.Duration(cfg.PerMinute)/time.Second) + 1)

	limiter := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters.Get(key)
		if !ok {
			l = rate.NewLimiter(every, burst)
		}
		// re-adding renews the idle TTL
		limiters.Add(key, l)
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter(clientAddr(r)).Allow() {
				metrics.RateLimited.Inc()
				w.Header().Set("Retry-After", retryAfter)
				httpx.WriteError(w, r, "ratelimit.submit", httpx.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr is the remote host without its port. It relies on
// middleware.RealIP having already rewritten RemoteAddr.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
