package service

import (
	"context"

	"arzaquna-api/internal/domain"
)

// Store 工作流需要的持久化能力；Tx 内拿到的 Store 绑定同一事务
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error

	// 身份
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	LockUser(ctx context.Context, id string) (*domain.User, error)
	FindUsersByEmailOrPhone(ctx context.Context, email, phone string) ([]domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateUserProfile(ctx context.Context, u *domain.User) error
	UpdateUserRole(ctx context.Context, id string, role domain.Role) error

	// 类目
	FindCategoriesByIDs(ctx context.Context, ids []string) ([]domain.Category, error)

	// 申请
	HasOpenApplication(ctx context.Context, userID string) (bool, error)
	CreateApplication(ctx context.Context, app *domain.VendorApplication) error
	FindApplication(ctx context.Context, id string) (*domain.VendorApplication, error)
	ListApplications(ctx context.Context, f domain.ApplicationFilter) ([]domain.VendorApplication, int64, error)
	// TransitionApplication 条件更新 status=PENDING 且 version 匹配，未命中返回 ErrAlreadyReviewed
	TransitionApplication(ctx context.Context, app *domain.VendorApplication, d domain.Decision) error
	AppendEvent(ctx context.Context, ev *domain.ApplicationEvent) error

	// 供应商
	FindVendorByUserID(ctx context.Context, userID string) (*domain.Vendor, error)
	CreateVendor(ctx context.Context, v *domain.Vendor, categoryIDs []string) error
}
