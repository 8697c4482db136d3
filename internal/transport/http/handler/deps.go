package handler

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"arzaquna-api/internal/core/cache"
	"arzaquna-api/internal/repo"
	"arzaquna-api/internal/service"
)

// Deps 各模块共享的依赖
type Deps struct {
	DB    *gorm.DB
	Users *repo.UserRepo
	Auth  *service.AuthService
	Apps  *service.VendorApplicationService
	Cache *cache.Cache
	Log   *zap.Logger
}

// Modules 交给 router.NewRegistry 的模块列表
func Modules(d Deps) []any {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return []any{
		NewAuthModule(d),
		NewUsersModule(d),
		NewCategoriesModule(d),
		NewVendorsModule(d),
		NewProductsModule(d),
		NewOrdersModule(d),
		NewFavoritesModule(d),
		NewMessagesModule(d),
		NewNotificationsModule(d),
		NewContentModule(d),
		NewStatusesModule(d),
		NewAdminModule(d),
	}
}
