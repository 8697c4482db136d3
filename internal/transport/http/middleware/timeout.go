package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	resp "arzaquna-api/internal/transport/http/response"
)

// Timeout 请求 ctx 带截止时间，gorm 查询随之取消
// handler 已经写出响应的不再覆盖
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if c.Writer.Written() {
			return
		}
		if ctx.Err() == context.DeadlineExceeded {
			abort(c, resp.CodeTimeout, "request timed out")
		}
	}
}
