package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/service"
	"arzaquna-api/pkg/utils"
)

// Store gorm 实现的 service.Store
type Store struct{ db *gorm.DB }

var _ service.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Tx(ctx context.Context, fn func(service.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	return firstOrNil[domain.User](s.db.WithContext(ctx).Where("id = ?", id))
}

// LockUser 行锁，串行化同一用户的申请提交
func (s *Store) LockUser(ctx context.Context, id string) (*domain.User, error) {
	q := s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return firstOrNil[domain.User](q.Where("id = ?", id))
}

func (s *Store) FindUsersByEmailOrPhone(ctx context.Context, email, phone string) ([]domain.User, error) {
	email, phone = strings.TrimSpace(email), strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, nil
	}
	q := s.db.WithContext(ctx).Model(&domain.User{})
	switch {
	case email != "" && phone != "":
		q = q.Where("email = ? OR phone = ?", email, phone)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		q = q.Where("phone = ?", phone)
	}
	var out []domain.User
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	return userWriteErr(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) UpdateUserProfile(ctx context.Context, u *domain.User) error {
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"full_name":     u.FullName,
			"email":         u.Email,
			"phone":         u.Phone,
			"password_hash": u.PasswordHash,
		}).Error
	return userWriteErr(err)
}

// userWriteErr 并发写入撞上 email/phone 唯一索引时按业务冲突返回
func userWriteErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrEmailOrPhoneTaken
	}
	return err
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role domain.Role) error {
	res := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("role", string(role))
	return userTouched(ctx, s.db, res, id)
}

// userTouched MySQL 值未变化时 RowsAffected 也为 0，需要再确认行是否存在
func userTouched(ctx context.Context, db *gorm.DB, res *gorm.DB, id string) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) FindCategoriesByIDs(ctx context.Context, ids []string) ([]domain.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Category
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (s *Store) HasOpenApplication(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.VendorApplication{}).
		Where("user_id = ? AND status IN ?", userID, statusStrings(domain.OpenStatuses)).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) CreateApplication(ctx context.Context, app *domain.VendorApplication) error {
	if app.ID == "" {
		app.ID = utils.NewID()
	}
	if app.Status == "" {
		app.Status = domain.ApplicationPending
	}
	if app.Version == 0 {
		app.Version = 1
	}
	db := s.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(app).Error; err != nil {
		return err
	}
	rows := make([]domain.ApplicationCategory, 0, len(app.Specialization))
	for _, cid := range app.Specialization {
		rows = append(rows, domain.ApplicationCategory{ID: utils.NewID(), ApplicationID: app.ID, CategoryID: cid})
	}
	if len(rows) > 0 {
		if err := db.Create(&rows).Error; err != nil {
			return err
		}
	}
	app.Categories = rows
	return nil
}

func (s *Store) FindApplication(ctx context.Context, id string) (*domain.VendorApplication, error) {
	app, err := firstOrNil[domain.VendorApplication](
		s.db.WithContext(ctx).Preload("Categories").Preload("User").Where("id = ?", id),
	)
	if app != nil {
		app.FillSpecialization()
	}
	return app, err
}

func (s *Store) ListApplications(ctx context.Context, f domain.ApplicationFilter) ([]domain.VendorApplication, int64, error) {
	q := s.db.WithContext(ctx).Model(&domain.VendorApplication{})
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.VendorApplication
	q = q.Preload("Categories").Preload("User").Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].FillSpecialization()
	}
	return out, total, nil
}

func (s *Store) TransitionApplication(ctx context.Context, app *domain.VendorApplication, d domain.Decision) error {
	res := s.db.WithContext(ctx).Model(&domain.VendorApplication{}).
		Where("id = ? AND status = ? AND version = ?", app.ID, string(domain.ApplicationPending), app.Version).
		Updates(map[string]any{
			"status":           string(d.To),
			"reviewed_by":      d.ReviewedBy,
			"reviewed_at":      d.ReviewedAt,
			"rejection_reason": d.RejectionReason,
			"version":          gorm.Expr("version + ?", 1),
			"updated_at":       d.ReviewedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlreadyReviewed
	}
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, ev *domain.ApplicationEvent) error {
	if ev.ID == "" {
		ev.ID = utils.NewID()
	}
	return s.db.WithContext(ctx).Create(ev).Error
}

func (s *Store) FindVendorByUserID(ctx context.Context, userID string) (*domain.Vendor, error) {
	return firstOrNil[domain.Vendor](s.db.WithContext(ctx).Preload("Categories").Where("user_id = ?", userID))
}

func (s *Store) CreateVendor(ctx context.Context, v *domain.Vendor, categoryIDs []string) error {
	if v.ID == "" {
		v.ID = utils.NewID()
	}
	db := s.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(v).Error; err != nil {
		return err
	}
	ids := utils.UniqueTrimmed(categoryIDs)
	rows := make([]domain.VendorCategory, 0, len(ids))
	for _, cid := range ids {
		rows = append(rows, domain.VendorCategory{ID: utils.NewID(), VendorID: v.ID, CategoryID: cid})
	}
	if len(rows) > 0 {
		if err := db.Create(&rows).Error; err != nil {
			return err
		}
	}
	v.Categories = rows
	return nil
}

// firstOrNil 查不到返回 (nil, nil)
func firstOrNil[T any](q *gorm.DB) (*T, error) {
	var m T
	err := q.First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func statusStrings(in []domain.ApplicationStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
