package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
)

// reportRowLimit 报表明细最多返回的行数，聚合不受限制
const reportRowLimit = 1000

// AdminModule 后台看板与报表；API 端挂在 /admin 下，管理端直接挂根
type AdminModule struct{ d Deps }

func NewAdminModule(d Deps) *AdminModule { return &AdminModule{d: d} }

func (m *AdminModule) Priority() int { return 200 }

func (m *AdminModule) MountAPI(g *gin.RouterGroup)   { m.mount(ez.New(g.Group("/admin"))) }
func (m *AdminModule) MountAdmin(g *gin.RouterGroup) { m.mount(ez.New(g)) }

type DashboardStats struct {
	TotalUsers          int64   `json:"totalUsers"`
	TotalVendors        int64   `json:"totalVendors"`
	TotalProducts       int64   `json:"totalProducts"`
	PendingApplications int64   `json:"pendingApplications"`
	PendingProducts     int64   `json:"pendingProducts"`
	TotalOrders         int64   `json:"totalOrders"`
	TotalCategories     int64   `json:"totalCategories"`
	TotalRevenue        float64 `json:"totalRevenue"`
}

// count 并发执行的计数查询
type count struct {
	dst   *int64
	model any
	where []any
}

func runCounts(ctx context.Context, db *gorm.DB, counts []count) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			q := db.WithContext(ctx).Model(c.model)
			if len(c.where) > 0 {
				q = q.Where(c.where[0], c.where[1:]...)
			}
			return q.Count(c.dst).Error
		})
	}
	return g.Wait()
}

func revenue(db *gorm.DB, scope func(*gorm.DB) *gorm.DB) (float64, error) {
	var sum float64
	err := db.Model(&domain.Order{}).Scopes(scope).
		Where("status <> ?", domain.OrderCancelled).
		Select("COALESCE(SUM(total_price), 0)").Scan(&sum).Error
	return sum, err
}

func noScope(q *gorm.DB) *gorm.DB { return q }

func (m *AdminModule) stats(ctx context.Context, db *gorm.DB) (*DashboardStats, error) {
	var s DashboardStats
	err := runCounts(ctx, db, []count{
		{&s.TotalUsers, &domain.User{}, []any{"role = ?", domain.RoleUser}},
		{&s.TotalVendors, &domain.Vendor{}, []any{"is_approved = ?", true}},
		{&s.TotalProducts, &domain.Product{}, []any{"is_active = ?", true}},
		{&s.PendingApplications, &domain.VendorApplication{}, []any{"status = ?", domain.ApplicationPending}},
		{&s.PendingProducts, &domain.Product{}, []any{"is_approved = ? AND is_active = ?", false, true}},
		{&s.TotalOrders, &domain.Order{}, nil},
		{&s.TotalCategories, &domain.Category{}, []any{"is_active = ?", true}},
	})
	if err != nil {
		return nil, err
	}
	if s.TotalRevenue, err = revenue(db.WithContext(ctx), noScope); err != nil {
		return nil, err
	}
	return &s, nil
}

type roleCount struct {
	Role  domain.Role `json:"role"`
	Count int64       `json:"count"`
}

type categoryCount struct {
	CategoryID string `json:"categoryId"`
	Count      int64  `json:"count"`
}

type statusTotal struct {
	Status     domain.OrderStatus `json:"status"`
	Count      int64              `json:"count"`
	TotalPrice float64            `json:"totalPrice"`
}

type reportQ struct {
	DateRange
	Type string `form:"type" binding:"omitempty,oneof=users vendors products orders"`
}

func (m *AdminModule) report(ctx context.Context, db *gorm.DB, in *reportQ) (gin.H, error) {
	scope, err := in.DateRange.Scope()
	if err != nil {
		return nil, err
	}
	db = db.WithContext(ctx)
	want := func(t string) bool { return in.Type == "" || in.Type == t }
	out := gin.H{}

	if want("users") {
		var users []domain.User
		if err := db.Scopes(scope).Order("created_at DESC").Limit(reportRowLimit).Find(&users).Error; err != nil {
			return nil, err
		}
		var byRole []roleCount
		if err := db.Model(&domain.User{}).Scopes(scope).
			Select("role, COUNT(*) AS count").Group("role").Scan(&byRole).Error; err != nil {
			return nil, err
		}
		out["users"], out["usersByRole"] = users, byRole
	}
	if want("vendors") {
		var vendors []domain.Vendor
		if err := db.Scopes(scope).Preload("User").Order("created_at DESC").Limit(reportRowLimit).Find(&vendors).Error; err != nil {
			return nil, err
		}
		out["vendors"] = vendors
	}
	if want("products") {
		var products []domain.Product
		if err := db.Scopes(scope).Preload("Category").Preload("Vendor").
			Order("created_at DESC").Limit(reportRowLimit).Find(&products).Error; err != nil {
			return nil, err
		}
		var byCategory []categoryCount
		if err := db.Model(&domain.Product{}).Scopes(scope).
			Select("category_id, COUNT(*) AS count").Group("category_id").Scan(&byCategory).Error; err != nil {
			return nil, err
		}
		out["products"], out["productsByCategory"] = products, byCategory
	}
	if want("orders") {
		var orders []domain.Order
		if err := withOrderRelations(db.Scopes(scope)).Order("created_at DESC").Limit(reportRowLimit).Find(&orders).Error; err != nil {
			return nil, err
		}
		var byStatus []statusTotal
		if err := db.Model(&domain.Order{}).Scopes(scope).
			Select("status, COUNT(*) AS count, COALESCE(SUM(total_price), 0) AS total_price").
			Group("status").Scan(&byStatus).Error; err != nil {
			return nil, err
		}
		out["orders"], out["ordersByStatus"] = orders, byStatus
	}
	if in.Type == "" {
		s, err := m.stats(ctx, db)
		if err != nil {
			return nil, err
		}
		out["summary"] = gin.H{
			"totalUsers":    s.TotalUsers,
			"totalVendors":  s.TotalVendors,
			"totalProducts": s.TotalProducts,
			"totalOrders":   s.TotalOrders,
			"totalRevenue":  s.TotalRevenue,
		}
	}
	return out, nil
}

func (m *AdminModule) mount(e ez.EZ) {
	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *DashboardStats]{
		Method: http.MethodGet,
		Path:   "/dashboard/stats",
		Roles:  adminOnly,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*DashboardStats, error) {
			return m.stats(c.Request.Context(), tx)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[ez.Page, gin.H]{
		Method: http.MethodGet,
		Path:   "/products/pending",
		Binder: ez.BindQuery,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, tx *gorm.DB, in *ez.Page) (gin.H, error) {
			q := tx.Model(&domain.Product{}).Where("is_approved = ? AND is_active = ?", false, true)
			pg := in.Norm(10)
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			var ps []domain.Product
			if err := q.Preload("Vendor.User").Preload("Category").Preload("Specifications").
				Order("created_at DESC").Offset(pg.Offset()).Limit(pg.Limit).Find(&ps).Error; err != nil {
				return nil, err
			}
			return ez.Paged("products", ps, pg.Of(total)), nil
		},
	})

	type messagesQ struct {
		ez.Page
		Type domain.MessageType `form:"type" binding:"omitempty,oneof=SUPPORT COMPLAINT INQUIRY GENERAL"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[messagesQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/messages",
		Binder: ez.BindQuery,
		Roles:  adminOnly,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *messagesQ) (gin.H, error) {
			q := tx.Model(&domain.Message{})
			if in.Type != "" {
				q = q.Where("type = ?", in.Type)
			}
			pg := in.Page.Norm(20)
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			ms := []domain.Message{}
			if err := withParties(q).Order("created_at DESC").
				Offset(pg.Offset()).Limit(pg.Limit).Find(&ms).Error; err != nil {
				return nil, err
			}
			return ez.Paged("messages", ms, pg.Of(total)), nil
		},
	})

	type notificationsQ struct {
		ez.Page
		Type   domain.NotificationType `form:"type"   binding:"omitempty,oneof=ORDER OFFER MESSAGE"`
		UserID string                  `form:"userId"`
		IsRead *bool                   `form:"isRead"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[notificationsQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/notifications",
		Binder: ez.BindQuery,
		Roles:  adminOnly,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *notificationsQ) (gin.H, error) {
			q := tx.Model(&domain.Notification{})
			if in.Type != "" {
				q = q.Where("type = ?", in.Type)
			}
			if in.UserID != "" {
				q = q.Where("user_id = ?", in.UserID)
			}
			if in.IsRead != nil {
				q = q.Where("is_read = ?", *in.IsRead)
			}
			pg := in.Page.Norm(20)
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			ns := []domain.Notification{}
			if err := q.Preload("User").Order("created_at DESC").
				Offset(pg.Offset()).Limit(pg.Limit).Find(&ns).Error; err != nil {
				return nil, err
			}
			return ez.Paged("notifications", ns, pg.Of(total)), nil
		},
	})

	// 管理员代建/代改的商品直接上线
	type adminProductIn struct {
		productIn
		VendorID string `json:"vendorId" binding:"required"`
	}
	categoryExists := func(tx *gorm.DB) func(string) error {
		return func(id string) error {
			_, err := first[domain.Category](tx.Where("id = ?", id), errCategoryNotFound)
			return err
		}
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[adminProductIn, *domain.Product]{
		Method: http.MethodPost,
		Path:   "/products",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		UseTx:  true,
		Status: http.StatusCreated,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *adminProductIn) (*domain.Product, error) {
			if _, err := first[domain.Vendor](tx.Where("id = ?", in.VendorID), domain.ErrVendorNotFound); err != nil {
				return nil, err
			}
			if err := categoryExists(tx)(in.CategoryID); err != nil {
				return nil, err
			}
			return createProduct(tx, in.VendorID, &in.productIn, true)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[productPatch, *domain.Product]{
		Method: http.MethodPut,
		Path:   "/products/:id",
		Binder: ez.BindJSON,
		Roles:  adminOnly,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *productPatch) (*domain.Product, error) {
			p, err := first[domain.Product](tx.Where("id = ?", c.Param("id")), errProductNotFound)
			if err != nil {
				return nil, err
			}
			return patchProduct(tx, p, in, categoryExists(tx), true)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[reportQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/reports",
		Binder: ez.BindQuery,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, tx *gorm.DB, in *reportQ) (gin.H, error) {
			return m.report(c.Request.Context(), tx, in)
		},
	})
}
