package middleware

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter tracks request counts per client in fixed windows.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	stopCh   chan struct{}
}

// RateLimitConfig bundles a limit with its window.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// Per-endpoint limits. Session recording and catalog search are the
// chatty ones during a club night; auth endpoints stay tight to slow
// down credential stuffing.
var (
	LoginRateLimit         = RateLimitConfig{Limit: 10, Window: time.Minute}
	RegisterRateLimit      = RateLimitConfig{Limit: 5, Window: time.Minute}
	RefreshRateLimit       = RateLimitConfig{Limit: 30, Window: time.Minute}
	OAuthRateLimit         = RateLimitConfig{Limit: 10, Window: time.Minute}
	SessionRecordRateLimit = RateLimitConfig{Limit: 30, Window: time.Minute}
	CatalogSearchRateLimit = RateLimitConfig{Limit: 20, Window: time.Minute}
	WebSocketRateLimit     = RateLimitConfig{Limit: 20, Window: time.Minute}
)

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    config.Limit,
		window:   config.Window,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether the client may make another request, along with
// the remaining allowance and the time the window resets.
func (rl *RateLimiter) Allow(clientID string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	timestamps := rl.requests[clientID]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[clientID] = valid
		return false, 0, valid[0].Add(rl.window)
	}

	valid = append(valid, now)
	rl.requests[clientID] = valid
	return true, rl.limit - len(valid), now.Add(rl.window)
}

// cleanupLoop drops idle clients so the map does not grow forever.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for clientID, timestamps := range rl.requests {
		valid := timestamps[:0]
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				valid = append(valid, ts)
			}
		}
		if len(valid) == 0 {
			delete(rl.requests, clientID)
		} else {
			rl.requests[clientID] = valid
		}
	}
}

// Stop terminates the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GetClientIP extracts the client IP, honoring proxy headers.
func GetClientIP(r *http.Request) string {
	// X-Forwarded-For may contain a chain; the first entry is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware limits requests per client IP and sets the
// standard X-RateLimit response headers.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := GetClientIP(r)

			allowed, remaining, resetAt := rl.Allow(clientIP)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retryAfter := int(time.Until(resetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				log.Printf("[RateLimit] %s throttled on %s", clientIP, r.URL.Path)
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
