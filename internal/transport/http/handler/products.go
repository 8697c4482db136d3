package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
)

var errProductNotFound = domain.NotFound("product not found")

// ProductsModule 商品浏览、供应商上架、管理员审核
type ProductsModule struct{ d Deps }

func NewProductsModule(d Deps) *ProductsModule { return &ProductsModule{d: d} }

func withProductRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Category").Preload("Vendor").Preload("Specifications")
}

type specIn struct {
	KeyAr   string `json:"keyAr"   binding:"max=191"`
	KeyEn   string `json:"keyEn"   binding:"max=191"`
	ValueAr string `json:"valueAr" binding:"max=500"`
	ValueEn string `json:"valueEn" binding:"max=500"`
}

func specRows(productID string, in []specIn) []domain.ProductSpecification {
	out := make([]domain.ProductSpecification, 0, len(in))
	for _, s := range in {
		out = append(out, domain.ProductSpecification{
			ProductID: productID, KeyAr: s.KeyAr, KeyEn: s.KeyEn, ValueAr: s.ValueAr, ValueEn: s.ValueEn,
		})
	}
	return out
}

// ownsCategory 供应商只能在自己的经营类目下上架
func ownsCategory(tx *gorm.DB, vendorID, categoryID string) error {
	var n int64
	if err := tx.Model(&domain.VendorCategory{}).
		Where("vendor_id = ? AND category_id = ?", vendorID, categoryID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.Forbidden("you are not authorized to add products in this category")
	}
	return nil
}

type productIn struct {
	CategoryID    string   `json:"categoryId"     binding:"required"`
	NameAr        string   `json:"nameAr"         binding:"required,max=191"`
	NameEn        string   `json:"nameEn"         binding:"required,max=191"`
	DescriptionAr string   `json:"descriptionAr"  binding:"max=2000"`
	DescriptionEn string   `json:"descriptionEn"  binding:"max=2000"`
	Price         float64  `json:"price"          binding:"gt=0"`
	Images        []string `json:"images"         binding:"max=10"`
	Specs         []specIn `json:"specifications" binding:"dive"`
}

type productPatch struct {
	CategoryID    *string   `json:"categoryId"`
	NameAr        *string   `json:"nameAr"         binding:"omitempty,max=191"`
	NameEn        *string   `json:"nameEn"         binding:"omitempty,max=191"`
	DescriptionAr *string   `json:"descriptionAr"  binding:"omitempty,max=2000"`
	DescriptionEn *string   `json:"descriptionEn"  binding:"omitempty,max=2000"`
	Price         *float64  `json:"price"          binding:"omitempty,gt=0"`
	Images        []string  `json:"images"         binding:"omitempty,max=10"`
	IsActive      *bool     `json:"isActive"`
	Specs         *[]specIn `json:"specifications"`
}

// createProduct 写入商品与规格；approved 为 true 时直接上线（管理员代建）
func createProduct(tx *gorm.DB, vendorID string, in *productIn, approved bool) (*domain.Product, error) {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	p := &domain.Product{
		VendorID:      vendorID,
		CategoryID:    in.CategoryID,
		NameAr:        in.NameAr,
		NameEn:        in.NameEn,
		DescriptionAr: in.DescriptionAr,
		DescriptionEn: in.DescriptionEn,
		Price:         in.Price,
		Images:        images,
		IsActive:      true,
		IsApproved:    approved,
	}
	if approved {
		now := time.Now()
		p.ApprovedAt = &now
	}
	if err := tx.Create(p).Error; err != nil {
		return nil, err
	}
	if specs := specRows(p.ID, in.Specs); len(specs) > 0 {
		if err := tx.Create(&specs).Error; err != nil {
			return nil, err
		}
	}
	return first[domain.Product](withProductRelations(tx).Where("id = ?", p.ID), errProductNotFound)
}

// patchProduct 换类目前先过 checkCategory；供应商改动会重新进入待审，管理员改动保持上线
func patchProduct(tx *gorm.DB, p *domain.Product, in *productPatch, checkCategory func(string) error, approved bool) (*domain.Product, error) {
	u, err := trimmedUpdates(map[string]*string{
		"name_ar": in.NameAr, "name_en": in.NameEn,
		"description_ar": in.DescriptionAr, "description_en": in.DescriptionEn,
	}, "name_ar", "name_en")
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil && *in.CategoryID != p.CategoryID {
		if err := checkCategory(*in.CategoryID); err != nil {
			return nil, err
		}
		u["category_id"] = *in.CategoryID
	}
	if in.Price != nil {
		u["price"] = *in.Price
	}
	if in.IsActive != nil {
		u["is_active"] = *in.IsActive
	}
	u["is_approved"] = approved
	u["approved_at"] = nil
	if approved {
		u["approved_at"] = time.Now()
	}
	if err := tx.Model(p).Updates(u).Error; err != nil {
		return nil, err
	}
	if in.Images != nil {
		p.Images = in.Images
		if err := tx.Model(p).Select("images").Updates(p).Error; err != nil {
			return nil, err
		}
	}
	if in.Specs != nil {
		if err := tx.Where("product_id = ?", p.ID).Delete(&domain.ProductSpecification{}).Error; err != nil {
			return nil, err
		}
		if specs := specRows(p.ID, *in.Specs); len(specs) > 0 {
			if err := tx.Create(&specs).Error; err != nil {
				return nil, err
			}
		}
	}
	return first[domain.Product](withProductRelations(tx).Where("id = ?", p.ID), errProductNotFound)
}

// visibleProduct 未审核/已下架的只对管理员和所属供应商可见
func visibleProduct(c *gin.Context, tx *gorm.DB, id string) (*domain.Product, error) {
	p, err := first[domain.Product](withProductRelations(tx).Where("id = ?", id), errProductNotFound)
	if err != nil {
		return nil, err
	}
	if p.Orderable() || ez.IsAdmin(c) {
		return p, nil
	}
	v, err := vendorOf(c, tx)
	if err != nil {
		return nil, err
	}
	if v != nil && v.ID == p.VendorID {
		return p, nil
	}
	return nil, errProductNotFound
}

func (m *ProductsModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	type listQ struct {
		ez.Page
		VendorID   string `form:"vendorId"`
		CategoryID string `form:"categoryId"`
		Search     string `form:"search"`
		IsApproved *bool  `form:"isApproved"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[listQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/products",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, tx *gorm.DB, in *listQ) (gin.H, error) {
			q := tx.Model(&domain.Product{})
			switch {
			case ez.IsAdmin(c):
				if in.IsApproved != nil {
					q = q.Where("is_approved = ?", *in.IsApproved)
				}
			default:
				q = q.Where("is_active = ? AND is_approved = ?", true, true)
			}
			if in.VendorID != "" {
				q = q.Where("vendor_id = ?", in.VendorID)
			}
			if in.CategoryID != "" {
				q = q.Where("category_id = ?", in.CategoryID)
			}
			if in.Search != "" {
				s := like(in.Search)
				q = q.Where("LOWER(name_ar) LIKE ? OR LOWER(name_en) LIKE ? OR LOWER(description_en) LIKE ?", s, s, s)
			}
			pg := in.Page.Norm(10)
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			var ps []domain.Product
			if err := withProductRelations(q).Order("created_at DESC").
				Offset(pg.Offset()).Limit(pg.Limit).Find(&ps).Error; err != nil {
				return nil, err
			}
			return ez.Paged("products", ps, pg.Of(total)), nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *domain.Product]{
		Method: http.MethodGet,
		Path:   "/products/:id",
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Product, error) {
			return visibleProduct(c, tx, c.Param("id"))
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[productIn, *domain.Product]{
		Method: http.MethodPost,
		Path:   "/products",
		Binder: ez.BindJSON,
		Use:    []gin.HandlerFunc{vendorGate(m.d)},
		UseTx:  true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *productIn) (*domain.Product, error) {
			vid := ez.VendorID(c)
			if err := ownsCategory(tx, vid, in.CategoryID); err != nil {
				return nil, err
			}
			return createProduct(tx, vid, in, false)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[productPatch, *domain.Product]{
		Method: http.MethodPut,
		Path:   "/products/:id",
		Binder: ez.BindJSON,
		Use:    []gin.HandlerFunc{vendorGate(m.d)},
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *productPatch) (*domain.Product, error) {
			vid := ez.VendorID(c)
			p, err := first[domain.Product](tx.Where("id = ? AND vendor_id = ?", c.Param("id"), vid), errProductNotFound)
			if err != nil {
				return nil, err
			}
			return patchProduct(tx, p, in, func(cid string) error { return ownsCategory(tx, vid, cid) }, false)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/products/:id",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			p, err := first[domain.Product](tx.Where("id = ?", c.Param("id")), errProductNotFound)
			if err != nil {
				return nil, err
			}
			if !ez.IsAdmin(c) {
				v, err := vendorOf(c, tx)
				if err != nil {
					return nil, err
				}
				if v == nil || v.ID != p.VendorID {
					return nil, domain.Forbidden("you can only delete your own products")
				}
			}
			if err := tx.Model(p).Update("is_active", false).Error; err != nil {
				return nil, err
			}
			return gin.H{"id": p.ID}, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/mobile/products/:productId/specifications",
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			p, err := visibleProduct(c, tx, c.Param("productId"))
			if err != nil {
				return nil, err
			}
			specs := p.Specifications
			if specs == nil {
				specs = []domain.ProductSpecification{}
			}
			return gin.H{"productId": p.ID, "category": p.Category, "specifications": specs}, nil
		},
	})

	m.approve(e)
}

func (m *ProductsModule) MountAdmin(g *gin.RouterGroup) { m.approve(ez.New(g)) }

func (m *ProductsModule) approve(e ez.EZ) {
	type approveIn struct {
		IsApproved *bool `json:"isApproved" binding:"required"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[approveIn, *domain.Product]{
		Method: http.MethodPut,
		Path:   "/products/:id/approve",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *approveIn) (*domain.Product, error) {
			p, err := first[domain.Product](tx.Where("id = ?", c.Param("id")), errProductNotFound)
			if err != nil {
				return nil, err
			}
			var at *time.Time
			if *in.IsApproved {
				now := time.Now()
				at = &now
			}
			if err := tx.Model(p).Updates(map[string]any{"is_approved": *in.IsApproved, "approved_at": at}).Error; err != nil {
				return nil, err
			}
			return first[domain.Product](withProductRelations(tx).Where("id = ?", p.ID), errProductNotFound)
		},
	})
}
