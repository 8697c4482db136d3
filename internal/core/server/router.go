package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"arzaquna-api/internal/core/config"
	mdw "arzaquna-api/internal/transport/http/middleware"
	resp "arzaquna-api/internal/transport/http/response"
)

// Check 就绪检查项，如 DB/Redis ping
type Check func(ctx context.Context) error

type Options struct {
	Name         string
	Mode         string // gin.DebugMode | gin.ReleaseMode | gin.TestMode
	AllowOrigins []string
	Limits       config.Limits
	Checks       map[string]Check
}

// NewRouter 两个引擎共用的基础中间件 + /health /ready /metrics
func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	if o.Mode != "" {
		gin.SetMode(o.Mode)
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true

	lim := o.Limits
	chain := []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.Recovery(l),
		mdw.AccessLog(l),
		mdw.Metrics(),
		cors.New(corsConfig(o.AllowOrigins)),
	}
	if lim.RPS > 0 {
		chain = append(chain, mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst))
	}
	if lim.PerIPRPS > 0 {
		chain = append(chain, mdw.RateLimitPerIP(rate.Limit(lim.PerIPRPS), lim.PerIPBurst))
	}
	if lim.Concurrency > 0 {
		chain = append(chain, mdw.ConcurrencyLimit(lim.Concurrency))
	}
	if lim.BodyBytes > 0 {
		chain = append(chain, mdw.MaxBodyBytes(lim.BodyBytes))
	}
	if lim.TimeoutSec > 0 {
		chain = append(chain, mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second))
	}
	r.Use(chain...)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1, "name": o.Name}) })
	r.GET("/ready", readyHandler(o.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Error(resp.CodeNotFound, "route not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, resp.New(http.StatusMethodNotAllowed, "method not allowed", nil))
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", mdw.KeyRequestID},
		ExposeHeaders: []string{mdw.KeyRequestID},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func readyHandler(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := gin.H{}
		ok := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				ok = false
				status[name] = err.Error()
				continue
			}
			status[name] = "ok"
		}
		if !ok {
			c.JSON(http.StatusServiceUnavailable, resp.ErrorWith(resp.CodeUnavailable, "not ready", status))
			return
		}
		c.JSON(http.StatusOK, resp.OK(status))
	}
}

func StartHTTP(srv *http.Server, l *zap.Logger) error {
	l.Info("http starting", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       rt,
		ReadHeaderTimeout: rt,
		WriteTimeout:      wt,
		IdleTimeout:       it,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// Mode 按环境选择 gin 模式
func Mode(env string) string {
	switch env {
	case "prod", "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	}
	return gin.DebugMode
}
