package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/service"
	"arzaquna-api/internal/transport/http/ez"
	"arzaquna-api/pkg/utils"
)

var (
	errVendorAccount = domain.Conflict("vendor accounts cannot be deleted, deactivate them instead")
	errAccountInUse  = domain.Conflict("account has vendor applications or orders and can only be deactivated")
)

// deleteAccount 硬删除普通账号及其个人数据
// 供应商、留有入驻申请或订单的账号只允许停用，申请的审核记录要保留
func deleteAccount(tx *gorm.DB, userID string) error {
	u, err := first[domain.User](tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID), domain.ErrUserNotFound)
	if err != nil {
		return err
	}
	if u.Role == domain.RoleVendor {
		return errVendorAccount
	}
	for _, model := range []any{&domain.VendorApplication{}, &domain.Order{}} {
		var n int64
		if err := tx.Model(model).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errAccountInUse
		}
	}
	for _, model := range []any{&domain.Favorite{}, &domain.Notification{}, &domain.NotificationSettings{}} {
		if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("sender_id = ? OR receiver_id = ?", userID, userID).Delete(&domain.Message{}).Error; err != nil {
		return err
	}
	err = tx.Where("id = ?", userID).Delete(&domain.User{}).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return errAccountInUse
	}
	return err
}

// UsersModule 个人资料 + 管理端用户管理
type UsersModule struct{ d Deps }

func NewUsersModule(d Deps) *UsersModule { return &UsersModule{d: d} }

func (m *UsersModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, nil, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/profile",
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*domain.User, error) {
			return ez.CurrentUser(c), nil
		},
	})

	type profileIn struct {
		FullName *string `json:"fullName" binding:"omitempty,max=128"`
		Phone    *string `json:"phone"    binding:"omitempty,max=32"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[profileIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/profile",
		Binder: ez.BindJSON,
		Auth:   true,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *profileIn) (*domain.User, error) {
			uid := ez.UserID(c)
			updates, err := trimmedUpdates(map[string]*string{"full_name": in.FullName, "phone": in.Phone}, "full_name", "phone")
			if err != nil {
				return nil, err
			}
			if phone, ok := updates["phone"].(string); ok {
				var n int64
				if err := tx.Model(&domain.User{}).Where("phone = ? AND id <> ?", phone, uid).Count(&n).Error; err != nil {
					return nil, err
				}
				if n > 0 {
					return nil, domain.Conflict("phone number already in use")
				}
			}
			if len(updates) > 0 {
				if err := tx.Model(&domain.User{}).Where("id = ?", uid).Updates(updates).Error; err != nil {
					return nil, err
				}
			}
			return first[domain.User](tx.Where("id = ?", uid), domain.ErrUserNotFound)
		},
	})

	type deleteIn struct {
		Password string `json:"password" binding:"required"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[deleteIn, gin.H]{
		Method: http.MethodDelete,
		Path:   "/mobile/user/account",
		Binder: ez.BindJSON,
		Auth:   true,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *deleteIn) (gin.H, error) {
			uid := ez.UserID(c)
			u, err := first[domain.User](tx.Where("id = ?", uid), domain.ErrUserNotFound)
			if err != nil {
				return nil, err
			}
			if !utils.CheckPassword(in.Password, u.PasswordHash) {
				return nil, domain.Unauthorized("incorrect password, account deletion requires password confirmation")
			}
			if err := deleteAccount(tx, uid); err != nil {
				return nil, err
			}
			return gin.H{"id": uid, "deleted": true}, nil
		},
	})

	m.admin(e)
}

func (m *UsersModule) MountAdmin(g *gin.RouterGroup) { m.admin(ez.New(g)) }

func (m *UsersModule) admin(e ez.EZ) {
	type listQ struct {
		ez.Page
		Role     domain.Role `form:"role"`
		Search   string      `form:"search"`
		IsActive *bool       `form:"isActive"`
	}
	ez.RegisterAction(e, nil, ez.Action[listQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (gin.H, error) {
			if in.Role != "" && !in.Role.IsValid() {
				return nil, domain.Validation("invalid role")
			}
			pg := in.Page.Norm(10)
			users, total, err := m.d.Users.List(c.Request.Context(), domain.UserFilter{
				Role: in.Role, Search: in.Search, IsActive: in.IsActive,
				Offset: pg.Offset(), Limit: pg.Limit,
			})
			if err != nil {
				return nil, err
			}
			return ez.Paged("users", users, pg.Of(total)), nil
		},
	})

	ez.RegisterAction(e, nil, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*domain.User, error) {
			u, err := m.d.Users.FindByID(c.Request.Context(), c.Param("id"))
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, domain.ErrUserNotFound
			}
			return u, nil
		},
	})

	type statusIn struct {
		IsActive *bool `json:"isActive" binding:"required"`
	}
	ez.RegisterAction(e, nil, ez.Action[statusIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/users/:id/status",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *gorm.DB, in *statusIn) (gin.H, error) {
			id := c.Param("id")
			if id == ez.UserID(c) && !*in.IsActive {
				return nil, domain.Conflict("cannot deactivate your own account")
			}
			if err := m.d.Users.SetActive(c.Request.Context(), id, *in.IsActive); err != nil {
				return nil, err
			}
			return gin.H{"id": id, "isActive": *in.IsActive}, nil
		},
	})

	type createIn struct {
		FullName string      `json:"fullName" binding:"required,max=128"`
		Email    string      `json:"email"    binding:"required,email"`
		Phone    string      `json:"phone"    binding:"required,max=32"`
		Password string      `json:"password" binding:"required,min=6"`
		Role     domain.Role `json:"role"     binding:"omitempty,oneof=ADMIN USER"`
	}
	ez.RegisterAction(e, nil, ez.Action[createIn, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *createIn) (*domain.User, error) {
			return m.d.Auth.CreateUser(c.Request.Context(), service.NewUserInput{
				FullName: in.FullName, Email: in.Email, Phone: in.Phone,
				Password: in.Password, Role: in.Role,
			})
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Roles:  adminOnly,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if id == ez.UserID(c) {
				return nil, domain.Conflict("cannot delete your own account")
			}
			if err := deleteAccount(tx, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id, "deleted": true}, nil
		},
	})

	type roleIn struct {
		Role domain.Role `json:"role" binding:"required,oneof=ADMIN USER"`
	}
	ez.RegisterAction(e, nil, ez.Action[roleIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id/role",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *gorm.DB, in *roleIn) (*domain.User, error) {
			return m.d.Auth.ChangeRole(c.Request.Context(), ez.UserID(c), c.Param("id"), in.Role)
		},
	})
}
