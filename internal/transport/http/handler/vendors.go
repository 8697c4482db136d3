package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/service"
	"arzaquna-api/internal/transport/http/ez"
)

// VendorsModule 入驻申请 + 供应商公开资料 + 移动端注册
type VendorsModule struct{ d Deps }

func NewVendorsModule(d Deps) *VendorsModule { return &VendorsModule{d: d} }

func (m *VendorsModule) Priority() int { return 20 }

func withVendorRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("User").Preload("Categories.Category")
}

// approvedVendor 只返回已审核的供应商
func approvedVendor(tx *gorm.DB, id string) (*domain.Vendor, error) {
	return first[domain.Vendor](withVendorRelations(tx).Where("id = ? AND is_approved = ?", id, true), domain.ErrVendorNotFound)
}

type vendorSearchQ struct {
	ez.Page
	CategoryID string `form:"categoryId"`
	City       string `form:"city"`
	Search     string `form:"search"`
}

func (m *VendorsModule) searchVendors(tx *gorm.DB, in *vendorSearchQ) (gin.H, error) {
	q := tx.Model(&domain.Vendor{}).Where("is_approved = ?", true)
	if in.CategoryID != "" {
		q = q.Where("EXISTS (SELECT 1 FROM vendor_categories vc WHERE vc.vendor_id = vendors.id AND vc.category_id = ?)", in.CategoryID)
	}
	if in.City != "" {
		q = q.Where("LOWER(city) LIKE ?", like(in.City))
	}
	if in.Search != "" {
		s := like(in.Search)
		q = q.Where("LOWER(store_name) LIKE ? OR LOWER(description) LIKE ?", s, s)
	}
	pg := in.Page.Norm(10)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	var vs []domain.Vendor
	if err := withVendorRelations(q).Order("created_at DESC").
		Offset(pg.Offset()).Limit(pg.Limit).Find(&vs).Error; err != nil {
		return nil, err
	}
	return ez.Paged("vendors", vs, pg.Of(total)), nil
}

// featuredVendorsLimit 首页推荐供应商条数
const featuredVendorsLimit = 10

type featuredVendor struct {
	ID            string `json:"id"`
	StoreName     string `json:"storeName"`
	OwnerName     string `json:"ownerName"`
	City          string `json:"city"`
	Region        string `json:"region"`
	Phone         string `json:"phone"`
	ProductsCount int64  `json:"productsCount"`
	OffersCount   int64  `json:"offersCount"`
}

// featuredVendors 最新审核通过的供应商，附在售商品数与生效动态数
func featuredVendors(tx *gorm.DB, now time.Time) ([]featuredVendor, error) {
	out := []featuredVendor{}
	err := tx.Model(&domain.Vendor{}).
		Select(`vendors.id, vendors.store_name, vendors.city, vendors.region,
			users.full_name AS owner_name, users.phone,
			(SELECT COUNT(*) FROM products p WHERE p.vendor_id = vendors.id AND p.is_active = ? AND p.is_approved = ?) AS products_count,
			(SELECT COUNT(*) FROM statuses s WHERE s.vendor_id = vendors.id AND s.is_active = ? AND (s.expires_at IS NULL OR s.expires_at > ?)) AS offers_count`,
			true, true, true, now).
		Joins("JOIN users ON users.id = vendors.user_id").
		Where("vendors.is_approved = ?", true).
		Order("vendors.created_at DESC").
		Limit(featuredVendorsLimit).
		Scan(&out).Error
	return out, err
}

func (m *VendorsModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)
	m.workflow(e)
	m.profile(e)
	m.mobile(e)
}

func (m *VendorsModule) MountAdmin(g *gin.RouterGroup) { m.review(ez.New(g)) }

func (m *VendorsModule) workflow(e ez.EZ) {
	type applyIn struct {
		FullName          string   `json:"fullName"          binding:"required,max=128"`
		Phone             string   `json:"phone"             binding:"required,max=32"`
		Email             string   `json:"email"             binding:"required,email"`
		StoreName         string   `json:"storeName"         binding:"required,max=191"`
		Specialization    []string `json:"specialization"    binding:"required,min=1"`
		City              string   `json:"city"              binding:"required,max=128"`
		Region            string   `json:"region"            binding:"required,max=128"`
		YearsOfExperience int      `json:"yearsOfExperience" binding:"gte=0"`
		WhatsappNumber    string   `json:"whatsappNumber"    binding:"required,max=32"`
		CallNumber        string   `json:"callNumber"        binding:"required,max=32"`
	}
	ez.RegisterAction(e, nil, ez.Action[applyIn, *domain.VendorApplication]{
		Method: http.MethodPost,
		Path:   "/vendors/apply",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *applyIn) (*domain.VendorApplication, error) {
			return m.d.Apps.Submit(c.Request.Context(), ez.UserID(c), service.SubmitInput{
				FullName:          in.FullName,
				Phone:             in.Phone,
				Email:             in.Email,
				StoreName:         in.StoreName,
				Specialization:    in.Specialization,
				City:              in.City,
				Region:            in.Region,
				YearsOfExperience: in.YearsOfExperience,
				WhatsappNumber:    in.WhatsappNumber,
				CallNumber:        in.CallNumber,
			})
		},
	})

	ez.RegisterAction(e, nil, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/vendors/applications/me",
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			apps, err := m.d.Apps.MyApplications(c.Request.Context(), ez.UserID(c))
			if err != nil {
				return nil, err
			}
			return gin.H{"applications": apps}, nil
		},
	})

	m.review(e)
}

// review 管理端：申请列表与审核
func (m *VendorsModule) review(e ez.EZ) {
	type listQ struct {
		ez.Page
		Status domain.ApplicationStatus `form:"status"`
	}
	ez.RegisterAction(e, nil, ez.Action[listQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/vendors/applications",
		Binder: ez.BindQuery,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (gin.H, error) {
			pg := in.Page.Norm(10)
			apps, total, err := m.d.Apps.List(c.Request.Context(), service.ApplicationQuery{
				Status: in.Status, Offset: pg.Offset(), Limit: pg.Limit,
			})
			if err != nil {
				return nil, err
			}
			return ez.Paged("applications", apps, pg.Of(total)), nil
		},
	})

	ez.RegisterAction(e, nil, ez.Action[struct{}, *domain.VendorApplication]{
		Method: http.MethodGet,
		Path:   "/vendors/applications/:id",
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*domain.VendorApplication, error) {
			return m.d.Apps.Get(c.Request.Context(), c.Param("id"))
		},
	})

	type reviewIn struct {
		Status          domain.ApplicationStatus `json:"status"          binding:"required"`
		RejectionReason string                   `json:"rejectionReason" binding:"max=500"`
	}
	ez.RegisterAction(e, nil, ez.Action[reviewIn, *domain.VendorApplication]{
		Method: http.MethodPut,
		Path:   "/vendors/applications/:id/review",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *gorm.DB, in *reviewIn) (*domain.VendorApplication, error) {
			return m.d.Apps.Review(c.Request.Context(), c.Param("id"), ez.UserID(c), service.ReviewInput{
				Status: in.Status, RejectionReason: in.RejectionReason,
			})
		},
	})
}

func (m *VendorsModule) profile(e ez.EZ) {
	ez.RegisterAction(e, m.d.DB, ez.Action[vendorSearchQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/vendors",
		Binder: ez.BindQuery,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *vendorSearchQ) (gin.H, error) {
			return m.searchVendors(tx, in)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *domain.Vendor]{
		Method: http.MethodGet,
		Path:   "/vendors/:id",
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Vendor, error) {
			return approvedVendor(tx, c.Param("id"))
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *domain.Vendor]{
		Method: http.MethodGet,
		Path:   "/vendors/profile/me",
		Use:    []gin.HandlerFunc{vendorGate(m.d)},
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Vendor, error) {
			return first[domain.Vendor](withVendorRelations(tx).Where("id = ?", ez.VendorID(c)), domain.ErrVendorNotFound)
		},
	})

	type updateIn struct {
		StoreName         *string `json:"storeName"         binding:"omitempty,max=191"`
		Description       *string `json:"description"       binding:"omitempty,max=1000"`
		Logo              *string `json:"logo"              binding:"omitempty,max=500"`
		City              *string `json:"city"              binding:"omitempty,max=128"`
		Region            *string `json:"region"            binding:"omitempty,max=128"`
		YearsOfExperience *int    `json:"yearsOfExperience" binding:"omitempty,gte=0"`
		WhatsappNumber    *string `json:"whatsappNumber"    binding:"omitempty,max=32"`
		CallNumber        *string `json:"callNumber"        binding:"omitempty,max=32"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[updateIn, *domain.Vendor]{
		Method: http.MethodPut,
		Path:   "/vendors/profile/me",
		Binder: ez.BindJSON,
		Use:    []gin.HandlerFunc{vendorGate(m.d)},
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *updateIn) (*domain.Vendor, error) {
			u, err := trimmedUpdates(map[string]*string{
				"store_name": in.StoreName, "description": in.Description, "logo": in.Logo,
				"city": in.City, "region": in.Region,
				"whatsapp_number": in.WhatsappNumber, "call_number": in.CallNumber,
			}, "store_name")
			if err != nil {
				return nil, err
			}
			if in.YearsOfExperience != nil {
				u["years_of_experience"] = *in.YearsOfExperience
			}
			vid := ez.VendorID(c)
			if len(u) > 0 {
				if err := tx.Model(&domain.Vendor{}).Where("id = ?", vid).Updates(u).Error; err != nil {
					return nil, err
				}
			}
			return first[domain.Vendor](withVendorRelations(tx).Where("id = ?", vid), domain.ErrVendorNotFound)
		},
	})
}

func (m *VendorsModule) mobile(e ez.EZ) {
	type registerIn struct {
		FullName        string   `json:"fullName"          binding:"required,max=128"`
		Phone           string   `json:"phone"             binding:"required,max=32"`
		Email           string   `json:"email"             binding:"required,email"`
		Password        string   `json:"password"          binding:"required,min=6"`
		RepeatPassword  string   `json:"repeatPassword"    binding:"required"`
		StoreName       string   `json:"shop_or_farm_name" binding:"required,max=191"`
		Categories      []string `json:"categories"        binding:"required,min=1"`
		LocationText    string   `json:"locationText"      binding:"required,max=128"`
		ExperienceYears int      `json:"experienceYears"   binding:"gte=0"`
	}
	ez.RegisterAction(e, nil, ez.Action[registerIn, *domain.VendorApplication]{
		Method: http.MethodPost,
		Path:   "/mobile/vendors/register",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *registerIn) (*domain.VendorApplication, error) {
			return m.d.Apps.RegisterVendor(c.Request.Context(), ez.UserID(c), service.RegisterInput{
				FullName:        in.FullName,
				Phone:           in.Phone,
				Email:           in.Email,
				Password:        in.Password,
				RepeatPassword:  in.RepeatPassword,
				StoreName:       in.StoreName,
				Categories:      in.Categories,
				LocationText:    in.LocationText,
				ExperienceYears: in.ExperienceYears,
			})
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[vendorSearchQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/mobile/vendors/search",
		Binder: ez.BindQuery,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *vendorSearchQ) (gin.H, error) {
			return m.searchVendors(tx, in)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/mobile/home/featured-vendors",
		Handler: func(_ *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			vs, err := featuredVendors(tx, time.Now())
			if err != nil {
				return nil, err
			}
			return gin.H{"vendors": vs}, nil
		},
	})

	// 只返回该供应商经营类目下的商品
	ez.RegisterAction(e, m.d.DB, ez.Action[ez.Page, gin.H]{
		Method: http.MethodGet,
		Path:   "/mobile/vendors/:vendorId/category/:categoryId/products",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, tx *gorm.DB, in *ez.Page) (gin.H, error) {
			v, err := approvedVendor(tx, c.Param("vendorId"))
			if err != nil {
				return nil, err
			}
			cid := c.Param("categoryId")
			var n int64
			if err := tx.Model(&domain.VendorCategory{}).
				Where("vendor_id = ? AND category_id = ?", v.ID, cid).Count(&n).Error; err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, domain.NotFound("vendor does not have products in this category")
			}
			q := tx.Model(&domain.Product{}).
				Where("vendor_id = ? AND category_id = ? AND is_active = ? AND is_approved = ?", v.ID, cid, true, true)
			pg := in.Norm(20)
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			var ps []domain.Product
			if err := q.Preload("Specifications").Order("created_at DESC").
				Offset(pg.Offset()).Limit(pg.Limit).Find(&ps).Error; err != nil {
				return nil, err
			}
			out := ez.Paged("products", ps, pg.Of(total))
			out["vendor"] = gin.H{"id": v.ID, "storeName": v.StoreName}
			out["categoryId"] = cid
			return out, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/mobile/vendors/:vendorId/contact-info",
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			v, err := approvedVendor(tx, c.Param("vendorId"))
			if err != nil {
				return nil, err
			}
			contact := gin.H{"whatsapp": v.WhatsappNumber, "call": v.CallNumber}
			var owner string
			if v.User != nil {
				owner = v.User.FullName
				contact["email"], contact["phone"] = v.User.Email, v.User.Phone
			}
			return gin.H{"vendorId": v.ID, "storeName": v.StoreName, "ownerName": owner, "contact": contact}, nil
		},
	})

	// 店铺页：资料 + 在售商品 + 未过期动态
	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/mobile/vendors/:vendorId/profile",
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			v, err := approvedVendor(tx, c.Param("vendorId"))
			if err != nil {
				return nil, err
			}
			var products []domain.Product
			if err := tx.Preload("Category").
				Where("vendor_id = ? AND is_active = ? AND is_approved = ?", v.ID, true, true).
				Order("created_at DESC").Find(&products).Error; err != nil {
				return nil, err
			}
			var statuses []domain.Status
			if err := tx.Where("vendor_id = ? AND is_active = ?", v.ID, true).
				Where("expires_at IS NULL OR expires_at > ?", time.Now()).
				Order("created_at DESC").Find(&statuses).Error; err != nil {
				return nil, err
			}
			return gin.H{"vendor": v, "products": products, "statuses": statuses}, nil
		},
	})
}
