package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	seen   time.Time
}

// RateLimiter is a token bucket per key. Each key starts full with capacity
// tokens and regains refillRate tokens per second.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   float64
	refillRate float64
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewRateLimiter(capacity, refillRate int) *RateLimiter {
	rl := &RateLimiter{
		buckets:    make(map[string]*bucket),
		capacity:   float64(capacity),
		refillRate: float64(refillRate),
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go rl.sweep(5*time.Minute, 10*time.Minute)
	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.capacity, seen: now}
		rl.buckets[key] = b
	}
	b.tokens += now.Sub(b.seen).Seconds() * rl.refillRate
	if b.tokens > rl.capacity {
		b.tokens = rl.capacity
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// retryAfter is the number of whole seconds until key regains a token.
func (rl *RateLimiter) retryAfter(key string) int {
	if rl.refillRate <= 0 {
		return 60
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	missing := 1.0
	if b, ok := rl.buckets[key]; ok {
		missing -= b.tokens
	}
	secs := int(missing/rl.refillRate) + 1
	return secs
}

func (rl *RateLimiter) Stop() { rl.stopOnce.Do(func() { close(rl.stop) }) }

func (rl *RateLimiter) sweep(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evict(rl.now(), idle)
		}
	}
}

func (rl *RateLimiter) evict(now time.Time, idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.buckets {
		if now.Sub(b.seen) > idle {
			delete(rl.buckets, key)
		}
	}
}

// RateLimitMiddleware limits requests per client key + remote address.
// Health and metrics probes are never limited.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if openPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := GetClientFromContext(r.Context()) + "@" + clientIP(r)
			if !limiter.Allow(key) {
				w.Header().Set("Retry-After", strconv.Itoa(limiter.retryAfter(key)))
				http.Error(w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
