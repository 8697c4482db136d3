package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	resp "arzaquna-api/internal/transport/http/response"
)

func tooMany(c *gin.Context) {
	c.Header("Retry-After", "1")
	abort(c, resp.CodeTooManyRequests, "too many requests")
}

// RateLimit 进程级令牌桶
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if !lim.Allow() {
			tooMany(c)
			return
		}
		c.Next()
	}
}

const (
	maxIPBuckets = 10000
	ipBucketIdle = 3 * time.Minute
)

// ipLimiter 每个 IP 一个令牌桶，放在带 TTL 的 LRU 里：闲置超过 idle 或超出容量即淘汰
type ipLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets *expirable.LRU[string, *rate.Limiter]
}

func newIPLimiter(rps rate.Limit, burst, size int, idle time.Duration) *ipLimiter {
	return &ipLimiter{
		rps:     rps,
		burst:   burst,
		buckets: expirable.NewLRU[string, *rate.Limiter](size, nil, idle),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.buckets.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
	}
	// 重新 Add 刷新 TTL，按最后一次访问计闲置
	l.buckets.Add(ip, lim)
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimitPerIP 按 ClientIP 分桶；部署在代理后面要配好 gin 的 TrustedProxies
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	l := newIPLimiter(rps, burst, maxIPBuckets, ipBucketIdle)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			tooMany(c)
			return
		}
		c.Next()
	}
}
