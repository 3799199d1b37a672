package web

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corey/trustcheck/internal/metrics"
)

const (
	// staleLimiterTTL is how long a per-client limiter can be idle before cleanup.
	staleLimiterTTL = 10 * time.Minute

	// cleanupInterval is how often the background goroutine sweeps stale entries.
	cleanupInterval = 1 * time.Minute
)

// Limits configures the API rate limiter.
type Limits struct {
	// RPS and Burst apply to every /api/ request per client.
	RPS   float64
	Burst int
	// ImportPerMinute caps bulk imports per client; they replace the store.
	ImportPerMinute float64
}

// DefaultLimits suit a single local user clicking around.
var DefaultLimits = Limits{RPS: 10, Burst: 20, ImportPerMinute: 6}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter applies per-client, per-class token buckets.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry // key: "class|clientIP"
	limits   Limits
	log      *slog.Logger
	nowFunc  func() time.Time
	stopOnce sync.Once
	stopCh   chan struct{}
}

func newRateLimiter(limits Limits, log *slog.Logger) *rateLimiter {
	if limits.RPS <= 0 {
		limits.RPS = DefaultLimits.RPS
	}
	if limits.Burst <= 0 {
		limits.Burst = DefaultLimits.Burst
	}
	if limits.ImportPerMinute <= 0 {
		limits.ImportPerMinute = DefaultLimits.ImportPerMinute
	}
	rl := &rateLimiter{
		limiters: make(map[string]*limiterEntry),
		limits:   limits,
		log:      log,
		nowFunc:  time.Now,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

func (rl *rateLimiter) evictStale() {
	now := rl.nowFunc()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > staleLimiterTTL {
			delete(rl.limiters, key)
		}
	}
}

func (rl *rateLimiter) count() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// wrap rate-limits requests under /api/; everything else passes through.
func (rl *rateLimiter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		class := "api"
		if r.Method == http.MethodPost && r.URL.Path == "/api/import" {
			class = "import"
		}
		clientIP := extractClientIP(r)

		if !rl.limiterFor(class, clientIP).Allow() {
			metrics.HTTPRateLimitedTotal.Inc()
			rl.log.Warn("api rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", clientIP,
			)
			w.Header().Set("Retry-After", "10")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiter) limiterFor(class, clientIP string) *rate.Limiter {
	now := rl.nowFunc()
	key := class + "|" + clientIP

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, ok := rl.limiters[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	var l *rate.Limiter
	if class == "import" {
		l = rate.NewLimiter(rate.Limit(rl.limits.ImportPerMinute/60), 1)
	} else {
		l = rate.NewLimiter(rate.Limit(rl.limits.RPS), rl.limits.Burst)
	}
	rl.limiters[key] = &limiterEntry{limiter: l, lastSeen: now}
	return l
}

// extractClientIP takes the first X-Forwarded-For hop, then X-Real-IP,
// then the connection's remote host.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
