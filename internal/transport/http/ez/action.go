package ez

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	resp "arzaquna-api/internal/transport/http/response"
)

// 中间件写入 gin.Context 的 key
const (
	CtxUserID   = "userId"
	CtxRole     = "role"
	CtxUser     = "user"
	CtxVendorID = "vendorId"
)

// token 存在但无效时记录原因
const CtxAuthError = "authError"

func UserID(c *gin.Context) string   { return c.GetString(CtxUserID) }
func VendorID(c *gin.Context) string { return c.GetString(CtxVendorID) }
func Role(c *gin.Context) domain.Role {
	return domain.Role(c.GetString(CtxRole))
}
func IsAdmin(c *gin.Context) bool { return Role(c) == domain.RoleAdmin }

func AuthErrorMsg(c *gin.Context) string {
	if msg := c.GetString(CtxAuthError); msg != "" {
		return msg
	}
	return "authentication required"
}

func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(CtxUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

func (e EZ) Group() *gin.RouterGroup { return e.g }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method string        // "GET" | "POST" | "PUT" | "DELETE"
	Path   string        // 例："/vendors/applications/:id/review"
	Binder Binder        // 绑定方式
	Auth   bool          // 是否要求登录（检查 userId）
	Roles  []domain.Role // 限定角色（可选）
	UseTx  bool          // 是否包事务（gorm.Transaction）
	Status int           // 成功时的 HTTP 状态码，默认 200
	Use    []gin.HandlerFunc
	// Handler 返回的 error 交给 Fail 统一映射
	Handler func(c *gin.Context, db *gorm.DB, in *I) (O, error)
}

func allowed(role domain.Role, roles []domain.Role) bool {
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// RegisterAction 在当前分组注册动作接口
func RegisterAction[I any, O any](e EZ, db *gorm.DB, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth || len(a.Roles) > 0 {
			if UserID(c) == "" {
				Fail(c, Unauthorized(AuthErrorMsg(c)))
				return
			}
			if len(a.Roles) > 0 && !allowed(Role(c), a.Roles) {
				Fail(c, Forbidden("insufficient permissions"))
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			Fail(c, bindErr)
			return
		}

		// 3) 执行（可选事务）
		run := func(tx *gorm.DB) (O, error) { return a.Handler(c, tx, &in) }
		var out O
		var err error
		if a.UseTx && db != nil {
			err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
				o, e := run(tx)
				out = o
				return e
			})
		} else {
			var conn *gorm.DB
			if db != nil {
				conn = db.WithContext(c.Request.Context())
			}
			out, err = run(conn)
		}

		// 4) 统一错误映射
		if err != nil {
			Fail(c, err)
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		c.JSON(status, resp.OK(out))
	}

	handlers := append(append([]gin.HandlerFunc{}, a.Use...), h)
	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodPatch:
		e.g.PATCH(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default: // 默认 POST
		e.g.POST(a.Path, handlers...)
	}
}
