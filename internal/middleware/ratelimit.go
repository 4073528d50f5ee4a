package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ClientIP returns the address used to key rate limits. The default is the
// connection's remote address, which a client cannot choose. Only when the
// server is deployed behind a trusted reverse proxy should trustProxyHeaders
// be set; it switches to the first hop of X-Forwarded-For so requests do not
// all collapse onto the proxy's address. An untrusted X-Forwarded-For would
// let callers pick a fresh limiter key per request.
func ClientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if i := strings.IndexByte(xff, ','); i > 0 {
				return strings.TrimSpace(xff[:i])
			}
			return strings.TrimSpace(xff)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type limitWindow struct {
	count     int
	expiresAt time.Time
}

// RateLimiter counts requests per key in fixed windows, in memory. It guards
// the mutating appointment routes; a restart resets all windows, which is
// acceptable for an admin API.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*limitWindow
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]*limitWindow)}
}

// Allow records one request for key and reports whether it stays within
// limit for the current window.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.expiresAt) {
		rl.windows[key] = &limitWindow{count: 1, expiresAt: now.Add(window)}
		return true
	}
	w.count++
	return w.count <= limit
}

// Cleanup drops expired windows so idle keys do not accumulate.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, w := range rl.windows {
		if now.After(w.expiresAt) {
			delete(rl.windows, key)
		}
	}
}

// RateLimit wraps a handler, answering 429 once keyFunc's key exhausts the
// window.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r), limit, window) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
