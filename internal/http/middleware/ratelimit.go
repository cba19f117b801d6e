package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyByIP buckets clients by gin's idea of their address.
func KeyByIP() func(*gin.Context) string {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter gives every client key its own token bucket. It is process
// local. Buckets idle for longer than ttl are swept, at most once per ttl.
type RateLimiter struct {
	limit      rate.Limit
	burst      int
	key        func(*gin.Context) string
	exempt     map[string]bool
	retryAfter string

	mu        sync.Mutex
	buckets   map[string]*bucket
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter refills rps tokens per second into buckets of size burst
// (at least 1).
func NewRateLimiter(rps float64, burst int, key func(*gin.Context) string) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:      rate.Limit(rps),
		burst:      burst,
		key:        key,
		exempt:     map[string]bool{},
		retryAfter: retryAfterFor(rps),
		buckets:    map[string]*bucket{},
		ttl:        10 * time.Minute,
		now:        time.Now,
	}
}

// retryAfterFor is the whole seconds until one token is back.
func retryAfterFor(rps float64) string {
	if rps <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/rps))))
}

// Exempt lists URL paths that never spend tokens, such as health checks
// and scrapes. Call it before serving.
func (rl *RateLimiter) Exempt(paths ...string) *RateLimiter {
	for _, p := range paths {
		rl.exempt[p] = true
	}
	return rl
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.ttl {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// Handler answers 429 with the error envelope and a Retry-After header once
// a client's bucket is empty.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.exempt[c.Request.URL.Path] || rl.limiterFor(rl.key(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", rl.retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
