package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
)

var errStatusNotFound = domain.NotFound("status not found")

// latestOffersLimit 首页最新优惠条数
const latestOffersLimit = 20

// StatusesModule 供应商发布的限时优惠动态
type StatusesModule struct{ d Deps }

func NewStatusesModule(d Deps) *StatusesModule { return &StatusesModule{d: d} }

func liveStatuses(q *gorm.DB, now time.Time) *gorm.DB {
	return q.Where("statuses.is_active = ?", true).
		Where("statuses.expires_at IS NULL OR statuses.expires_at > ?", now)
}

type statusIn struct {
	VendorID      string     `json:"vendorId"`
	TitleAr       *string    `json:"titleAr"       binding:"omitempty,max=191"`
	TitleEn       *string    `json:"titleEn"       binding:"omitempty,max=191"`
	DescriptionAr *string    `json:"descriptionAr" binding:"omitempty,max=1000"`
	DescriptionEn *string    `json:"descriptionEn" binding:"omitempty,max=1000"`
	Image         *string    `json:"image"         binding:"omitempty,max=500"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	IsActive      *bool      `json:"isActive"`
}

func (in *statusIn) updates() (map[string]any, error) {
	u, err := trimmedUpdates(map[string]*string{
		"title_ar": in.TitleAr, "title_en": in.TitleEn,
		"description_ar": in.DescriptionAr, "description_en": in.DescriptionEn,
		"image": in.Image,
	})
	if err != nil {
		return nil, err
	}
	if in.ExpiresAt != nil {
		u["expires_at"] = *in.ExpiresAt
	}
	if in.IsActive != nil {
		u["is_active"] = *in.IsActive
	}
	return u, nil
}

// statusOwner 管理员可代任意供应商操作，否则必须是所属供应商
func statusOwner(c *gin.Context, tx *gorm.DB, s *domain.Status) error {
	if ez.IsAdmin(c) {
		return nil
	}
	v, err := vendorOf(c, tx)
	if err != nil {
		return err
	}
	if v == nil || v.ID != s.VendorID {
		return domain.Forbidden("you can only manage your own statuses")
	}
	return nil
}

func (m *StatusesModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	type listQ struct {
		ez.Page
		VendorID string `form:"vendorId"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[listQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/statuses",
		Binder: ez.BindQuery,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *listQ) (gin.H, error) {
			q := liveStatuses(tx.Model(&domain.Status{}), time.Now())
			if in.VendorID != "" {
				q = q.Where("statuses.vendor_id = ?", in.VendorID)
			}
			pg := in.Page.Norm(20)
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			var ss []domain.Status
			if err := q.Preload("Vendor").Order("statuses.created_at DESC").
				Offset(pg.Offset()).Limit(pg.Limit).Find(&ss).Error; err != nil {
				return nil, err
			}
			return ez.Paged("statuses", ss, pg.Of(total)), nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/mobile/home/latest-offers",
		Handler: func(_ *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			ss := []domain.Status{}
			if err := liveStatuses(tx.Model(&domain.Status{}), time.Now()).
				Joins("JOIN vendors ON vendors.id = statuses.vendor_id AND vendors.is_approved = ?", true).
				Preload("Vendor.User").Order("statuses.created_at DESC").
				Limit(latestOffersLimit).Find(&ss).Error; err != nil {
				return nil, err
			}
			return gin.H{"offers": ss}, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *domain.Status]{
		Method: http.MethodGet,
		Path:   "/statuses/:id",
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Status, error) {
			return first[domain.Status](liveStatuses(tx.Preload("Vendor"), time.Now()).Where("statuses.id = ?", c.Param("id")), errStatusNotFound)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[statusIn, *domain.Status]{
		Method: http.MethodPost,
		Path:   "/statuses",
		Binder: ez.BindJSON,
		Roles:  []domain.Role{domain.RoleAdmin, domain.RoleVendor},
		UseTx:  true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *statusIn) (*domain.Status, error) {
			vendorID := in.VendorID
			if !ez.IsAdmin(c) {
				v, err := vendorOf(c, tx)
				if err != nil {
					return nil, err
				}
				if v == nil || !v.IsApproved {
					return nil, domain.ErrVendorNotApproved
				}
				vendorID = v.ID
			} else if vendorID == "" {
				return nil, domain.Validation("vendorId is required")
			} else if _, err := first[domain.Vendor](tx.Where("id = ?", vendorID), domain.ErrVendorNotFound); err != nil {
				return nil, err
			}
			if in.TitleAr == nil || in.TitleEn == nil {
				return nil, domain.Validation("titleAr and titleEn are required")
			}
			if in.ExpiresAt != nil && !in.ExpiresAt.After(time.Now()) {
				return nil, domain.Validation("expiresAt must be in the future")
			}
			u, err := in.updates()
			if err != nil {
				return nil, err
			}
			s := &domain.Status{VendorID: vendorID, IsActive: true}
			if err := tx.Create(s).Error; err != nil {
				return nil, err
			}
			if err := tx.Model(s).Updates(u).Error; err != nil {
				return nil, err
			}
			return first[domain.Status](tx.Preload("Vendor").Where("id = ?", s.ID), errStatusNotFound)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[statusIn, *domain.Status]{
		Method: http.MethodPut,
		Path:   "/statuses/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *statusIn) (*domain.Status, error) {
			s, err := first[domain.Status](tx.Where("id = ?", c.Param("id")), errStatusNotFound)
			if err != nil {
				return nil, err
			}
			if err := statusOwner(c, tx, s); err != nil {
				return nil, err
			}
			u, err := in.updates()
			if err != nil {
				return nil, err
			}
			if len(u) > 0 {
				if err := tx.Model(s).Updates(u).Error; err != nil {
					return nil, err
				}
			}
			return first[domain.Status](tx.Preload("Vendor").Where("id = ?", s.ID), errStatusNotFound)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/statuses/:id",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			s, err := first[domain.Status](tx.Where("id = ?", c.Param("id")), errStatusNotFound)
			if err != nil {
				return nil, err
			}
			if err := statusOwner(c, tx, s); err != nil {
				return nil, err
			}
			if err := tx.Model(s).Update("is_active", false).Error; err != nil {
				return nil, err
			}
			return gin.H{"id": s.ID}, nil
		},
	})
}
