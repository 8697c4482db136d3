package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"arzaquna-api/internal/core/auth"
	"arzaquna-api/internal/core/server"
	"arzaquna-api/internal/domain"
	mdw "arzaquna-api/internal/transport/http/middleware"
)

// NewAdminEngine 管理端 v1（统一要求 ADMIN 角色）
func NewAdminEngine(l *zap.Logger, o server.Options, jwter *auth.JWTer, users mdw.UserLoader, mods *Registry) *gin.Engine {
	r := server.NewRouter(l, o)

	admin := r.Group("/admin/v1", mdw.AuthJWT(jwter, users, domain.RoleAdmin))
	mods.MountAdmin(admin)

	return r
}
