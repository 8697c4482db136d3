package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "arzaquna-api/internal/transport/http/response"
)

// MaxBodyBytes 声明了 Content-Length 的直接拒；chunked 的读到上限时报错，
// 由 ez.Fail 识别 *http.MaxBytesError 转 413
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			abort(c, resp.CodeTooLarge, "request body too large")
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
