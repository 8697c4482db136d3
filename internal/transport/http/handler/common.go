package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
	mdw "arzaquna-api/internal/transport/http/middleware"
)

var adminOnly = []domain.Role{domain.RoleAdmin}

// like 生成大小写不敏感的模糊匹配参数，配合 LOWER(col) LIKE ?
func like(s string) string {
	s = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(strings.ToLower(strings.TrimSpace(s)))
	return "%" + s + "%"
}

// first 查不到时返回 notFound
func first[T any](q *gorm.DB, notFound error) (*T, error) {
	var m T
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return &m, nil
}

func vendorGate(d Deps) gin.HandlerFunc { return mdw.RequireVendor(d.Users) }

// vendorOf 当前用户的供应商资料（任意审核状态），不是供应商返回 nil
func vendorOf(c *gin.Context, tx *gorm.DB) (*domain.Vendor, error) {
	uid := ez.UserID(c)
	if uid == "" {
		return nil, nil
	}
	if vid := ez.VendorID(c); vid != "" {
		return first[domain.Vendor](tx.Where("id = ?", vid), domain.ErrVendorNotFound)
	}
	var vs []domain.Vendor
	if err := tx.Where("user_id = ?", uid).Limit(1).Find(&vs).Error; err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, nil
	}
	return &vs[0], nil
}

// notify 按接收人的通知设置决定是否写入；返回是否已发送
func notify(ctx context.Context, tx *gorm.DB, n *domain.Notification) (bool, error) {
	var settings []domain.NotificationSettings
	if err := tx.WithContext(ctx).Where("user_id = ?", n.UserID).Limit(1).Find(&settings).Error; err != nil {
		return false, err
	}
	var s *domain.NotificationSettings
	if len(settings) > 0 {
		s = &settings[0]
	}
	if !s.Allows(n.Type) {
		return false, nil
	}
	return true, tx.WithContext(ctx).Create(n).Error
}

// notifyQuietly 通知失败不影响主流程，只记日志；在事务内时走 savepoint
func notifyQuietly(ctx context.Context, tx *gorm.DB, log *zap.Logger, n *domain.Notification) {
	err := tx.Transaction(func(sp *gorm.DB) error {
		_, err := notify(ctx, sp, n)
		return err
	})
	if err != nil {
		log.Warn("notification failed",
			zap.String("user_id", n.UserID), zap.String("type", string(n.Type)), zap.Error(err))
	}
}

// DateRange 报表/列表的时间过滤，格式 2006-01-02 或 RFC3339
type DateRange struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, domain.Validation("invalid date: " + s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// Scope 返回按 created_at 过滤的 scope
func (r DateRange) Scope() (func(*gorm.DB) *gorm.DB, error) {
	var from, to time.Time
	var err error
	if r.StartDate != "" {
		if from, err = parseDate(r.StartDate, false); err != nil {
			return nil, err
		}
	}
	if r.EndDate != "" {
		if to, err = parseDate(r.EndDate, true); err != nil {
			return nil, err
		}
	}
	return func(q *gorm.DB) *gorm.DB {
		if !from.IsZero() {
			q = q.Where("created_at >= ?", from)
		}
		if !to.IsZero() {
			q = q.Where("created_at <= ?", to)
		}
		return q
	}, nil
}

// trimmedUpdates 只收集非 nil 字段；required 的字段不允许更新成空串
func trimmedUpdates(fields map[string]*string, required ...string) (map[string]any, error) {
	req := make(map[string]bool, len(required))
	for _, r := range required {
		req[r] = true
	}
	out := map[string]any{}
	for col, v := range fields {
		if v == nil {
			continue
		}
		s := strings.TrimSpace(*v)
		if s == "" && req[col] {
			return nil, domain.Validation(col + " cannot be empty")
		}
		out[col] = s
	}
	return out, nil
}
