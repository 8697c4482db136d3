package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"arzaquna-api/internal/transport/http/ez"
)

// query 里这些 key 的值写日志前替换成 ****
var sensitiveKeys = map[string]struct{}{
	"password": {}, "pwd": {}, "repeatpassword": {}, "token": {},
	"authorization": {}, "secret": {}, "client_secret": {}, "access_token": {},
}

// 探针请求太多，成功时降到 debug
var healthPaths = map[string]struct{}{"/health": {}, "/ready": {}, "/metrics": {}}

func mask(q url.Values) map[string][]string {
	out := make(map[string][]string, len(q))
	for k, v := range q {
		if _, hide := sensitiveKeys[strings.ToLower(k)]; hide {
			v = []string{"****"}
		}
		out[k] = v
	}
	return out
}

func accessLevel(status int, route string) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	}
	if _, ok := healthPaths[route]; ok {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// AccessLog 每个请求一条；5xx 时带上 handler 挂在 c.Errors 上的原始错误
func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		ce := l.Check(accessLevel(status, route), "HTTP")
		if ce == nil {
			return
		}

		fields := []zap.Field{
			zap.String("rid", RequestIDOf(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("ua", c.Request.UserAgent()),
			zap.Int("size", max(0, c.Writer.Size())),
		}
		if q := c.Request.URL.Query(); len(q) > 0 {
			fields = append(fields, zap.Any("query", mask(q)))
		}
		if uid := ez.UserID(c); uid != "" {
			fields = append(fields, zap.String("userId", uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		ce.Write(fields...)
	}
}
