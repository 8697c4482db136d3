package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"arzaquna-api/internal/core/auth"
	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
	resp "arzaquna-api/internal/transport/http/response"
)

// UserLoader 按 token 中的 uid 加载当前（启用的）用户
type UserLoader interface {
	LoadActiveUser(ctx context.Context, id string) (*domain.User, error)
}

// VendorLookup 查询已审核通过的商家
type VendorLookup interface {
	FindApprovedVendorByUserID(ctx context.Context, userID string) (*domain.Vendor, error)
}

// authenticate 返回 (user, code, msg)；code 为 0 表示成功
func authenticate(c *gin.Context, j *auth.JWTer, users UserLoader) (*domain.User, int, string) {
	tok, err := auth.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return nil, resp.CodeUnauthorized, "access token required"
	}
	claims, err := j.Parse(tok)
	if err != nil {
		return nil, resp.CodeUnauthorized, "invalid or expired token"
	}
	u, err := users.LoadActiveUser(c.Request.Context(), claims.UID)
	if err != nil {
		_ = c.Error(err)
		return nil, resp.CodeServerError, "authentication failed"
	}
	if u == nil {
		return nil, resp.CodeUnauthorized, "user not found or inactive"
	}
	return u, resp.CodeOK, ""
}

// 角色以数据库为准，不信任 token 里的 role
func setUser(c *gin.Context, u *domain.User) {
	c.Set(ez.CtxUser, u)
	c.Set(ez.CtxUserID, u.ID)
	c.Set(ez.CtxRole, string(u.Role))
}

// AuthJWT 必须登录；roles 非空时再限定角色
func AuthJWT(j *auth.JWTer, users UserLoader, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, code, msg := authenticate(c, j, users)
		if code != resp.CodeOK {
			abort(c, code, msg)
			return
		}
		setUser(c, u)
		if len(roles) > 0 && !hasRole(u.Role, roles) {
			abort(c, resp.CodeForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// OptionalAuth 带 token 则识别用户，没有就匿名放行；鉴权由 Action.Auth 决定
func OptionalAuth(j *auth.JWTer, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		u, code, msg := authenticate(c, j, users)
		switch code {
		case resp.CodeOK:
			setUser(c, u)
		case resp.CodeServerError:
			abort(c, code, msg)
			return
		default:
			c.Set(ez.CtxAuthError, msg)
		}
		c.Next()
	}
}

func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ez.UserID(c) == "" {
			abort(c, resp.CodeUnauthorized, ez.AuthErrorMsg(c))
			return
		}
		if !hasRole(ez.Role(c), roles) {
			abort(c, resp.CodeForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequireVendor 仅限已审核通过的商家，写入 vendorId
func RequireVendor(vendors VendorLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := ez.UserID(c)
		if uid == "" {
			abort(c, resp.CodeUnauthorized, ez.AuthErrorMsg(c))
			return
		}
		if ez.Role(c) != domain.RoleVendor {
			abort(c, resp.CodeForbidden, "vendor access required")
			return
		}
		v, err := vendors.FindApprovedVendorByUserID(c.Request.Context(), uid)
		if err != nil {
			_ = c.Error(err)
			abort(c, resp.CodeServerError, "vendor lookup failed")
			return
		}
		if v == nil {
			abort(c, resp.CodeForbidden, "vendor account not approved")
			return
		}
		c.Set(ez.CtxVendorID, v.ID)
		c.Next()
	}
}

func hasRole(role domain.Role, roles []domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
