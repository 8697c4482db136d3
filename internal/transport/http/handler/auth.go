package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/service"
	"arzaquna-api/internal/transport/http/ez"
)

// AuthModule 注册/登录/当前用户
type AuthModule struct{ d Deps }

func NewAuthModule(d Deps) *AuthModule { return &AuthModule{d: d} }

func (m *AuthModule) Priority() int { return 10 }

func (m *AuthModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	type registerIn struct {
		FullName string `json:"fullName" binding:"required,max=128"`
		Email    string `json:"email"    binding:"required,email"`
		Phone    string `json:"phone"    binding:"required,max=32"`
		Password string `json:"password" binding:"required,min=6"`
	}
	ez.RegisterAction(e, nil, ez.Action[registerIn, *service.Session]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *registerIn) (*service.Session, error) {
			return m.d.Auth.Register(c.Request.Context(), service.NewUserInput{
				FullName: in.FullName, Email: in.Email, Phone: in.Phone, Password: in.Password,
			})
		},
	})

	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	ez.RegisterAction(e, nil, ez.Action[loginIn, *service.Session]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *loginIn) (*service.Session, error) {
			return m.d.Auth.Login(c.Request.Context(), in.Email, in.Password)
		},
	})

	// 鉴权中间件已加载用户
	ez.RegisterAction(e, nil, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/auth/me",
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*domain.User, error) {
			return ez.CurrentUser(c), nil
		},
	})

	type changePasswordIn struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword"     binding:"required,min=6"`
	}
	ez.RegisterAction(e, nil, ez.Action[changePasswordIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/auth/change-password",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *changePasswordIn) (gin.H, error) {
			if err := m.d.Auth.ChangePassword(c.Request.Context(), ez.UserID(c), in.CurrentPassword, in.NewPassword); err != nil {
				return nil, err
			}
			return gin.H{"message": "password changed successfully"}, nil
		},
	})
}
