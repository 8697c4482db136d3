package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/core/cache"
	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
)

var (
	errSliderNotFound  = domain.NotFound("slider not found")
	errContentNotFound = domain.NotFound("content not found")
)

// ContentModule 首页轮播图与静态文案（关于/隐私/条款）
type ContentModule struct{ d Deps }

func NewContentModule(d Deps) *ContentModule { return &ContentModule{d: d} }

func contentType(c *gin.Context) (domain.ContentType, error) {
	t := domain.ContentType(c.Param("type"))
	if !t.IsValid() {
		return "", domain.Validation("type must be ABOUT, PRIVACY_POLICY or TERMS_CONDITIONS")
	}
	return t, nil
}

func (m *ContentModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/sliders",
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			ss, err := cache.GetOrLoadJSON(m.d.Cache, c.Request.Context(), cache.KeySliders, 0, func(ctx context.Context) (*[]domain.Slider, error) {
				var rows []domain.Slider
				err := m.d.DB.WithContext(ctx).Where("is_active = ?", true).
					Order("sort_order ASC").Order("created_at DESC").Find(&rows).Error
				return &rows, err
			})
			if err != nil {
				return nil, err
			}
			return gin.H{"sliders": *ss}, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *domain.Slider]{
		Method: http.MethodGet,
		Path:   "/sliders/:id",
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Slider, error) {
			s, err := first[domain.Slider](tx.Where("id = ?", c.Param("id")), errSliderNotFound)
			if err != nil {
				return nil, err
			}
			if !s.IsActive && !ez.IsAdmin(c) {
				return nil, errSliderNotFound
			}
			return s, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *domain.AppContent]{
		Method: http.MethodGet,
		Path:   "/app-content/:type",
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*domain.AppContent, error) {
			t, err := contentType(c)
			if err != nil {
				return nil, err
			}
			ac, err := cache.GetOrLoadJSON(m.d.Cache, c.Request.Context(), cache.KeyAppContent(string(t)), 0, func(ctx context.Context) (*domain.AppContent, error) {
				var rows []domain.AppContent
				if err := m.d.DB.WithContext(ctx).Where("type = ?", t).Limit(1).Find(&rows).Error; err != nil {
					return nil, err
				}
				if len(rows) == 0 {
					return nil, nil
				}
				return &rows[0], nil
			})
			if err != nil {
				return nil, err
			}
			if ac == nil {
				return nil, errContentNotFound
			}
			return ac, nil
		},
	})

	m.admin(e)
}

func (m *ContentModule) MountAdmin(g *gin.RouterGroup) { m.admin(ez.New(g)) }

type sliderIn struct {
	TitleAr   *string `json:"titleAr"   binding:"omitempty,max=191"`
	TitleEn   *string `json:"titleEn"   binding:"omitempty,max=191"`
	Image     *string `json:"image"     binding:"omitempty,max=500"`
	Link      *string `json:"link"      binding:"omitempty,max=500"`
	SortOrder *int    `json:"sortOrder"`
	IsActive  *bool   `json:"isActive"`
}

func (in *sliderIn) updates() (map[string]any, error) {
	u, err := trimmedUpdates(map[string]*string{
		"title_ar": in.TitleAr, "title_en": in.TitleEn, "image": in.Image, "link": in.Link,
	}, "image")
	if err != nil {
		return nil, err
	}
	if in.SortOrder != nil {
		u["sort_order"] = *in.SortOrder
	}
	if in.IsActive != nil {
		u["is_active"] = *in.IsActive
	}
	return u, nil
}

func (m *ContentModule) invalidate(c *gin.Context, key string) {
	if err := m.d.Cache.Invalidate(c.Request.Context(), key); err != nil {
		_ = c.Error(err)
	}
}

func (m *ContentModule) admin(e ez.EZ) {
	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/sliders/all",
		Roles:  adminOnly,
		Handler: func(_ *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			var ss []domain.Slider
			if err := tx.Order("sort_order ASC").Order("created_at DESC").Find(&ss).Error; err != nil {
				return nil, err
			}
			return gin.H{"sliders": ss}, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[sliderIn, *domain.Slider]{
		Method: http.MethodPost,
		Path:   "/sliders",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		UseTx:  true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *sliderIn) (*domain.Slider, error) {
			if in.Image == nil {
				return nil, domain.Validation("image is required")
			}
			u, err := in.updates()
			if err != nil {
				return nil, err
			}
			s := &domain.Slider{Image: u["image"].(string), IsActive: true}
			if err := tx.Create(s).Error; err != nil {
				return nil, err
			}
			if err := tx.Model(s).Updates(u).Error; err != nil {
				return nil, err
			}
			m.invalidate(c, cache.KeySliders)
			return first[domain.Slider](tx.Where("id = ?", s.ID), errSliderNotFound)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[sliderIn, *domain.Slider]{
		Method: http.MethodPut,
		Path:   "/sliders/:id",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *sliderIn) (*domain.Slider, error) {
			s, err := first[domain.Slider](tx.Where("id = ?", c.Param("id")), errSliderNotFound)
			if err != nil {
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
			m.invalidate(c, cache.KeySliders)
			return first[domain.Slider](tx.Where("id = ?", s.ID), errSliderNotFound)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/sliders/:id",
		Roles:  adminOnly,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			res := tx.Where("id = ?", c.Param("id")).Delete(&domain.Slider{})
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				return nil, errSliderNotFound
			}
			m.invalidate(c, cache.KeySliders)
			return gin.H{"id": c.Param("id")}, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/app-content",
		Roles:  adminOnly,
		Handler: func(_ *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			var rows []domain.AppContent
			if err := tx.Order("type ASC").Find(&rows).Error; err != nil {
				return nil, err
			}
			return gin.H{"contents": rows}, nil
		},
	})

	type contentIn struct {
		ContentAr string `json:"contentAr" binding:"required"`
		ContentEn string `json:"contentEn" binding:"required"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[contentIn, *domain.AppContent]{
		Method: http.MethodPut,
		Path:   "/app-content/:type",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *contentIn) (*domain.AppContent, error) {
			t, err := contentType(c)
			if err != nil {
				return nil, err
			}
			ac, err := first[domain.AppContent](tx.Where("type = ?", t), errContentNotFound)
			switch {
			case errors.Is(err, errContentNotFound):
				ac = &domain.AppContent{Type: t, ContentAr: in.ContentAr, ContentEn: in.ContentEn, UpdatedBy: ez.UserID(c)}
				if err := tx.Create(ac).Error; err != nil {
					return nil, err
				}
			case err != nil:
				return nil, err
			default:
				if err := tx.Model(ac).Updates(map[string]any{
					"content_ar": in.ContentAr, "content_en": in.ContentEn, "updated_by": ez.UserID(c),
				}).Error; err != nil {
					return nil, err
				}
			}
			m.invalidate(c, cache.KeyAppContent(string(t)))
			return first[domain.AppContent](tx.Where("id = ?", ac.ID), errContentNotFound)
		},
	})
}
