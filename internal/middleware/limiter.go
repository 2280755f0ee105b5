package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/utils"

	"golang.org/x/time/rate"
)

type rateTier struct {
	name  string
	limit rate.Limit
	burst int
}

var (
	// Checkout locks stock rows.
	tierStrict   = rateTier{name: "strict", limit: rate.Limit(2), burst: 5}
	tierWrite    = rateTier{name: "write", limit: rate.Limit(5), burst: 10}
	tierFrontend = rateTier{name: "frontend", limit: rate.Limit(20), burst: 40}
	tierGeneral  = rateTier{name: "general", limit: rate.Limit(10), burst: 20}
)

const (
	visitorIdleTTL = 3 * time.Minute
	sweepInterval  = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per visitor and tier.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (l *RateLimiter) get(key string, tier rateTier) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(tier.limit, tier.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Sweep drops buckets idle for longer than idle and returns how many remain.
func (l *RateLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}
	return len(l.visitors)
}

// Run sweeps idle buckets until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(visitorIdleTTL)
		}
	}
}

// Middleware rejects requests over the visitor's quota with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tier := resolveRateTier(r)

		// quotas are per tier, e.g. "customer:1:strict"
		limiter := l.get(visitorKey(r)+":"+tier.name, tier)

		res := limiter.ReserveN(l.now(), 1)
		if delay := res.DelayFrom(l.now()); delay > 0 {
			res.CancelAt(l.now())
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// visitorKey prefers the authenticated identity, then a client device id,
// then the remote IP.
func visitorKey(r *http.Request) string {
	if id, ok := identity.FromContext(r.Context()); ok {
		return id.String()
	}
	if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
		return "device:" + deviceID
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

func resolveRateTier(r *http.Request) rateTier {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/checkout":
		return tierStrict
	case r.Method != http.MethodGet && r.Method != http.MethodHead:
		return tierWrite
	case r.Header.Get("X-Client-Type") == "frontend-heavy":
		return tierFrontend
	default:
		return tierGeneral
	}
}
