package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"arzaquna-api/internal/core/auth"
	"arzaquna-api/internal/core/cache"
	"arzaquna-api/internal/core/config"
	"arzaquna-api/internal/core/database"
	"arzaquna-api/internal/core/logger"
	"arzaquna-api/internal/core/server"
	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/repo"
	"arzaquna-api/internal/service"
	"arzaquna-api/internal/transport/http/handler"
	"arzaquna-api/internal/transport/http/router"
)

const shutdownGrace = 10 * time.Second

// App 两个进程共用的依赖装配
type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache
	JWT   *auth.JWTer
	Users *repo.UserRepo
	Mods  *router.Registry

	closers []func()
}

// New 日志 -> DB（可选迁移）-> Redis -> 服务 -> 模块注册
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, sync := logger.New(cfg.Log)
	a := &App{Cfg: cfg, Log: log, closers: []func(){sync}}
	a.closers = append(a.closers, logger.RedirectStdLog(log, zapcore.InfoLevel))
	gin.DefaultWriter = logger.ToWriter(logger.Named(log, "gin"), zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(logger.Named(log, "gin"), zapcore.ErrorLevel)

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             log,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("db open: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db, domain.Models()...); err != nil {
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		log.Info("automigrate done")
	}

	a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if a.Cache != nil {
		if cfg.Redis.TTLSec > 0 {
			a.Cache.TTL = time.Duration(cfg.Redis.TTLSec) * time.Second
		}
		if err := a.Cache.Ping(ctx); err != nil {
			// 缓存不可用时读路径自动回源
			log.Warn("redis unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		a.closers = append(a.closers, func() { _ = a.Cache.Close() })
	}

	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}
	a.Users = repo.NewUserRepo(db)

	deps := handler.Deps{
		DB:    db,
		Users: a.Users,
		Auth:  service.NewAuthService(a.Users, a.JWT, logger.Named(log, "auth")),
		Apps:  service.NewVendorApplicationService(repo.NewStore(db), logger.Named(log, "vendor-applications")),
		Cache: a.Cache,
		Log:   log,
	}
	a.Mods = router.NewRegistry(handler.Modules(deps)...)
	return a, nil
}

// Options 引擎公共参数；/ready 检查 DB 与 Redis
func (a *App) Options(name string) server.Options {
	return server.Options{
		Name:         name,
		Mode:         server.Mode(a.Cfg.App.Env),
		AllowOrigins: a.Cfg.CORS.AllowOrigins,
		Limits:       a.Cfg.Limits,
		Checks: map[string]server.Check{
			"db": func(ctx context.Context) error {
				sqlDB, err := a.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": a.Cache.Ping,
		},
	}
}

// Listener 一个进程对外监听的地址与入口前缀（只用于启动日志）
type Listener struct {
	Name   string
	Host   string
	Port   int
	Prefix string
}

// humanURL 0.0.0.0 换成 127.0.0.1，方便本地点开
func (l Listener) humanURL() string {
	host := l.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, l.Port)
}

// Serve 监听并阻塞到 SIGINT/SIGTERM，然后在 shutdownGrace 内优雅关闭
func (a *App) Serve(l Listener, h http.Handler) error {
	hc := a.Cfg.App.HTTP
	srv := server.BuildServer(server.Addr(l.Host, l.Port), h,
		time.Duration(hc.ReadTimeoutSec)*time.Second,
		time.Duration(hc.WriteTimeoutSec)*time.Second,
		time.Duration(hc.IdleTimeoutSec)*time.Second,
	)
	log := a.Log.With(zap.String("server", l.Name))
	base := l.humanURL()
	log.Info("starting", zap.String("health", base+"/health"), zap.String("api", base+l.Prefix))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- server.StartHTTP(srv, log) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: %w", l.Name, err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("%s shutdown: %w", l.Name, err)
	}
	log.Info("stopped gracefully")
	return nil
}

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
