package remote

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter gives each client a fixed number of requests per window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets   map[string]*bucket
	rate      int
	window    time.Duration
	lastSweep time.Time
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		rate:      rate,
		window:    window,
		lastSweep: time.Now(),
	}
}

// Allow reports whether client still has budget in the current window.
// Buckets whose window has expired are pruned on the way.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	if now.Sub(rl.lastSweep) > rl.window {
		for key, b := range rl.buckets {
			if now.Sub(b.lastReset) > rl.window {
				delete(rl.buckets, key)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[client]
	if ok && now.Sub(b.lastReset) > rl.window {
		ok = false
	}
	if !ok {
		b = &bucket{tokens: rl.rate, lastReset: now}
		rl.buckets[client] = b
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Len is the number of clients currently tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Middleware rejects clients over their budget. It keys on RemoteAddr, which
// chi's RealIP middleware has already rewritten from proxy headers.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientHost(r.RemoteAddr)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
