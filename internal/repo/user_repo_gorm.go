package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/pkg/utils"
)

type UserRepo struct{ db *gorm.DB }

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) WithTx(tx *gorm.DB) *UserRepo { return &UserRepo{db: tx} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	return userWriteErr(r.db.WithContext(ctx).Create(u).Error)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return firstOrNil[domain.User](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return firstOrNil[domain.User](r.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)))
}

func (r *UserRepo) FindByEmailOrPhone(ctx context.Context, email, phone string) ([]domain.User, error) {
	return (&Store{db: r.db}).FindUsersByEmailOrPhone(ctx, email, phone)
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.User{})
	if f.Role != "" {
		tx = tx.Where("role = ?", string(f.Role))
	}
	if f.IsActive != nil {
		tx = tx.Where("is_active = ?", *f.IsActive)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("full_name LIKE ? OR email LIKE ? OR phone LIKE ?", like, like, like)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	var users []domain.User
	if err := tx.Offset(f.Offset).Limit(limit).Order("created_at desc").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update 只改资料字段，不动角色与状态
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	return (&Store{db: r.db}).UpdateUserProfile(ctx, u)
}

func (r *UserRepo) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return (&Store{db: r.db}).UpdateUserRole(ctx, id, role)
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("is_active", active)
	return userTouched(ctx, r.db, res, id)
}

// LoadActiveUser 鉴权中间件使用
func (r *UserRepo) LoadActiveUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil || u == nil || !u.IsActive {
		return nil, err
	}
	return u, nil
}

// FindApprovedVendorByUserID RequireVendor 中间件使用
func (r *UserRepo) FindApprovedVendorByUserID(ctx context.Context, userID string) (*domain.Vendor, error) {
	v, err := firstOrNil[domain.Vendor](r.db.WithContext(ctx).Where("user_id = ?", userID))
	if err != nil || v == nil || !v.IsApproved {
		return nil, err
	}
	return v, nil
}
