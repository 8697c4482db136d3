package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/core/cache"
	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
)

var errCategoryNotFound = domain.NotFound("category not found")

type CategoriesModule struct{ d Deps }

func NewCategoriesModule(d Deps) *CategoriesModule { return &CategoriesModule{d: d} }

// activeCategories 公共列表走缓存
func (m *CategoriesModule) activeCategories(ctx context.Context) ([]domain.Category, error) {
	list, err := cache.GetOrLoadJSON(m.d.Cache, ctx, cache.KeyCategories, 0, func(ctx context.Context) (*[]domain.Category, error) {
		var cs []domain.Category
		err := m.d.DB.WithContext(ctx).Where("is_active = ?", true).
			Order("sort_order ASC").Order("created_at ASC").Find(&cs).Error
		return &cs, err
	})
	if err != nil {
		return nil, err
	}
	return *list, nil
}

func (m *CategoriesModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	type listQ struct {
		IncludeInactive bool `form:"includeInactive"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[listQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/categories",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, tx *gorm.DB, in *listQ) (gin.H, error) {
			if in.IncludeInactive && ez.IsAdmin(c) {
				var cs []domain.Category
				if err := tx.Order("sort_order ASC").Order("created_at ASC").Find(&cs).Error; err != nil {
					return nil, err
				}
				return gin.H{"categories": cs}, nil
			}
			cs, err := m.activeCategories(c.Request.Context())
			if err != nil {
				return nil, err
			}
			return gin.H{"categories": cs}, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *domain.Category]{
		Method: http.MethodGet,
		Path:   "/categories/:id",
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Category, error) {
			cat, err := first[domain.Category](tx.Where("id = ?", c.Param("id")), errCategoryNotFound)
			if err != nil {
				return nil, err
			}
			if !cat.IsActive && !ez.IsAdmin(c) {
				return nil, errCategoryNotFound
			}
			return cat, nil
		},
	})

	m.admin(e)
}

func (m *CategoriesModule) MountAdmin(g *gin.RouterGroup) { m.admin(ez.New(g)) }

type categoryIn struct {
	NameAr        *string `json:"nameAr"        binding:"omitempty,max=191"`
	NameEn        *string `json:"nameEn"        binding:"omitempty,max=191"`
	DescriptionAr *string `json:"descriptionAr" binding:"omitempty,max=1000"`
	DescriptionEn *string `json:"descriptionEn" binding:"omitempty,max=1000"`
	Icon          *string `json:"icon"          binding:"omitempty,max=500"`
	Image         *string `json:"image"         binding:"omitempty,max=500"`
	SortOrder     *int    `json:"sortOrder"`
	IsActive      *bool   `json:"isActive"`
}

func (in *categoryIn) updates() (map[string]any, error) {
	u, err := trimmedUpdates(map[string]*string{
		"name_ar": in.NameAr, "name_en": in.NameEn,
		"description_ar": in.DescriptionAr, "description_en": in.DescriptionEn,
		"icon": in.Icon, "image": in.Image,
	}, "name_ar", "name_en")
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

func (m *CategoriesModule) invalidate(c *gin.Context) {
	if err := m.d.Cache.Invalidate(c.Request.Context(), cache.KeyCategories); err != nil {
		_ = c.Error(err)
	}
}

func (m *CategoriesModule) admin(e ez.EZ) {
	ez.RegisterAction(e, m.d.DB, ez.Action[categoryIn, *domain.Category]{
		Method: http.MethodPost,
		Path:   "/categories",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		Status: http.StatusCreated,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *categoryIn) (*domain.Category, error) {
			if in.NameAr == nil || in.NameEn == nil {
				return nil, domain.Validation("nameAr and nameEn are required")
			}
			u, err := in.updates()
			if err != nil {
				return nil, err
			}
			cat := &domain.Category{NameAr: u["name_ar"].(string), NameEn: u["name_en"].(string), IsActive: true}
			if err := tx.Create(cat).Error; err != nil {
				return nil, err
			}
			// default:true 的列零值会被忽略，其余字段统一走 Updates
			if err := tx.Model(cat).Updates(u).Error; err != nil {
				return nil, err
			}
			m.invalidate(c)
			return first[domain.Category](tx.Where("id = ?", cat.ID), errCategoryNotFound)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[categoryIn, *domain.Category]{
		Method: http.MethodPut,
		Path:   "/categories/:id",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *categoryIn) (*domain.Category, error) {
			cat, err := first[domain.Category](tx.Where("id = ?", c.Param("id")), errCategoryNotFound)
			if err != nil {
				return nil, err
			}
			u, err := in.updates()
			if err != nil {
				return nil, err
			}
			if len(u) > 0 {
				if err := tx.Model(cat).Updates(u).Error; err != nil {
					return nil, err
				}
			}
			m.invalidate(c)
			return first[domain.Category](tx.Where("id = ?", cat.ID), errCategoryNotFound)
		},
	})

	// 软删：下架，历史商品/入驻记录仍可引用
	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/categories/:id",
		Roles:  adminOnly,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if _, err := first[domain.Category](tx.Where("id = ?", id), errCategoryNotFound); err != nil {
				return nil, err
			}
			if err := tx.Model(&domain.Category{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
				return nil, err
			}
			m.invalidate(c)
			return gin.H{"id": id}, nil
		},
	})
}
