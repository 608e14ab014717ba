// Package ratelimit throttles API clients with one token bucket per client IP.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type Config struct {
	RequestsPerSecond float64
	Burst             int
	// CleanupInterval is how often idle buckets are swept.
	CleanupInterval time.Duration
	// IdleTimeout is how long a silent client keeps its bucket.
	IdleTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   5 * time.Minute,
		IdleTimeout:       10 * time.Minute,
	}
}

// Limiter hands out buckets keyed by client IP. Buckets live in a go-cache
// table whose janitor drops the ones idle longer than IdleTimeout.
type Limiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	create   sync.Mutex
	buckets  *gocache.Cache
	rejected atomic.Int64
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	return &Limiter{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		now:     time.Now,
		buckets: gocache.New(cfg.IdleTimeout, cfg.CleanupInterval),
	}
}

// bucket returns the client's bucket and restarts its idle timer.
func (rl *Limiter) bucket(clientIP string) *rate.Limiter {
	rl.create.Lock()
	defer rl.create.Unlock()

	b, ok := rl.buckets.Get(clientIP)
	if !ok {
		b = rate.NewLimiter(rl.rps, rl.burst)
	}
	rl.buckets.SetDefault(clientIP, b)
	return b.(*rate.Limiter)
}

// Allow takes one token from the client's bucket.
func (rl *Limiter) Allow(clientIP string) bool {
	if rl.bucket(clientIP).AllowN(rl.now(), 1) {
		return true
	}
	rl.rejected.Add(1)
	return false
}

// retryAfter is the whole number of seconds until one token is available.
func (rl *Limiter) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(1 / float64(rl.rps))))
}

// sweep drops idle buckets now rather than on the next janitor tick.
func (rl *Limiter) sweep() int {
	before := rl.buckets.ItemCount()
	rl.buckets.DeleteExpired()
	return before - rl.buckets.ItemCount()
}

// ActiveClients counts tracked buckets, including idle ones not yet swept.
func (rl *Limiter) ActiveClients() int {
	return rl.buckets.ItemCount()
}

// Stop forgets every bucket.
func (rl *Limiter) Stop() {
	rl.buckets.Flush()
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.rejected.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware rejects requests from clients with an empty bucket. onLimit, when
// set, writes the rejection; Retry-After is always set.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.Allow(extractIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", rl.retryAfter())
			if onLimit == nil {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
