package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "arzaquna-api/internal/transport/http/response"
)

// 拿不到槽位时最多排队这么久，超时 503
const concurrencyQueueWait = 2 * time.Second

// ConcurrencyLimit 同时在处理的请求不超过 max，保护 DB 连接池
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), concurrencyQueueWait)
			err := sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				c.Header("Retry-After", strconv.Itoa(int(concurrencyQueueWait/time.Second)))
				abort(c, resp.CodeUnavailable, "server busy")
				return
			}
		}
		defer sem.Release(1)
		c.Next()
	}
}
