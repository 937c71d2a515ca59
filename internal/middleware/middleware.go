package middleware

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olyamironova/limitbook/internal/api/dto"
	"github.com/olyamironova/limitbook/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientIDHeader lets callers behind a shared address get their own bucket.
const ClientIDHeader = "X-Client-ID"

type bucket struct {
	limiter  *rate.Limiter
	lastSeen int64 // unix nano
}

// RateLimiter keeps one token bucket per client. Idle buckets are dropped by
// the janitor after ttl.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*bucket
	rate    rate.Limit
	burst   int
	ttl     time.Duration
}

func NewRateLimiter(rps float64, burst int, ttl time.Duration) *RateLimiter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		clients: make(map[string]*bucket, 256),
		rate:    rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
	}
}

// Allow reports whether key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	now := time.Now().UnixNano()

	r.mu.Lock()
	b, ok := r.clients[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.rate, r.burst), lastSeen: now}
		r.clients[key] = b
	} else {
		atomic.StoreInt64(&b.lastSeen, now)
	}
	r.mu.Unlock()

	return b.limiter.Allow()
}

// StartJanitor evicts idle buckets every interval until ctx is done.
func (r *RateLimiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.cleanup(time.Now())
			}
		}
	}()
}

func (r *RateLimiter) cleanup(now time.Time) {
	cut := now.Add(-r.ttl).UnixNano()
	r.mu.Lock()
	for k, b := range r.clients {
		if atomic.LoadInt64(&b.lastSeen) < cut {
			delete(r.clients, k)
		}
	}
	r.mu.Unlock()
}

func (r *RateLimiter) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Middleware rejects with 429 once a client's bucket is empty. Clients are
// identified by X-Client-ID, falling back to the remote address.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(ClientIDHeader)
		if key == "" {
			key = c.ClientIP()
		}
		if !r.Allow(key) {
			logger.Warn(c, "rate limited",
				zap.String("client", key),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
