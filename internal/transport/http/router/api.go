package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"arzaquna-api/internal/core/auth"
	"arzaquna-api/internal/core/server"
	mdw "arzaquna-api/internal/transport/http/middleware"
)

// NewAPIEngine 用户端：/api/v1 上可选鉴权，由各 Action 自行声明 Auth/Roles
func NewAPIEngine(l *zap.Logger, o server.Options, jwter *auth.JWTer, users mdw.UserLoader, mods *Registry) *gin.Engine {
	r := server.NewRouter(l, o)

	api := r.Group("/api/v1", mdw.OptionalAuth(jwter, users))
	mods.MountAPI(api)

	return r
}
