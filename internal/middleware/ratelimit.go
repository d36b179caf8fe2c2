package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
	"github.com/noah-isme/academy-portal-api/pkg/response"
)

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
	lastGC   time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute requests per IP with the given burst. A non-positive
// perMinute disables limiting.
func NewIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
	}
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		limit:    limit,
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether a request from key may proceed.
func (l *IPRateLimiter) Allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > l.idleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			c.Header("Retry-After", "60")
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
