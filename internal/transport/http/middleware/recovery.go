package middleware

import (
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "arzaquna-api/internal/transport/http/response"
)

// Recovery panic 交给 ginzap 记录堆栈，对外只回统一 500
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, _ any) {
		if c.Writer.Written() {
			c.Abort()
			return
		}
		abort(c, resp.CodeServerError, "internal error")
	})
}
