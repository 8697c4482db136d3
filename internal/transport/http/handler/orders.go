package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
	"arzaquna-api/pkg/utils"
)

var errOrderNotFound = domain.NotFound("order not found")

type OrdersModule struct{ d Deps }

func NewOrdersModule(d Deps) *OrdersModule { return &OrdersModule{d: d} }

func withOrderRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Items.Product").Preload("Vendor").Preload("User")
}

// orderScope 买家看自己的，供应商看自己店铺的，管理员全部
func orderScope(c *gin.Context, tx *gorm.DB, q *gorm.DB) (*gorm.DB, error) {
	switch ez.Role(c) {
	case domain.RoleAdmin:
		return q, nil
	case domain.RoleVendor:
		v, err := vendorOf(c, tx)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return q.Where("orders.vendor_id = ? OR orders.user_id = ?", v.ID, ez.UserID(c)), nil
		}
	}
	return q.Where("orders.user_id = ?", ez.UserID(c)), nil
}

func (m *OrdersModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	type listQ struct {
		ez.Page
		Status domain.OrderStatus `form:"status"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[listQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/orders",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *listQ) (gin.H, error) {
			if in.Status != "" && !in.Status.IsValid() {
				return nil, domain.Validation("invalid order status")
			}
			q, err := orderScope(c, tx, tx.Model(&domain.Order{}))
			if err != nil {
				return nil, err
			}
			if in.Status != "" {
				q = q.Where("orders.status = ?", in.Status)
			}
			pg := in.Page.Norm(10)
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			var orders []domain.Order
			if err := withOrderRelations(q).Order("orders.created_at DESC").
				Offset(pg.Offset()).Limit(pg.Limit).Find(&orders).Error; err != nil {
				return nil, err
			}
			return ez.Paged("orders", orders, pg.Of(total)), nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *domain.Order]{
		Method: http.MethodGet,
		Path:   "/orders/:id",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.Order, error) {
			o, err := first[domain.Order](withOrderRelations(tx).Where("id = ?", c.Param("id")), errOrderNotFound)
			if err != nil {
				return nil, err
			}
			if ez.IsAdmin(c) || o.UserID == ez.UserID(c) {
				return o, nil
			}
			if o.Vendor != nil && o.Vendor.UserID == ez.UserID(c) {
				return o, nil
			}
			return nil, domain.Forbidden("you do not have access to this order")
		},
	})

	type lineIn struct {
		ProductID string `json:"productId" binding:"required"`
		Quantity  int    `json:"quantity"  binding:"required,min=1"`
	}
	type createIn struct {
		VendorID string   `json:"vendorId" binding:"required"`
		Items    []lineIn `json:"items"    binding:"required,min=1,dive"`
		Notes    string   `json:"notes"    binding:"max=1000"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[createIn, *domain.Order]{
		Method: http.MethodPost,
		Path:   "/orders",
		Binder: ez.BindJSON,
		Auth:   true,
		UseTx:  true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *createIn) (*domain.Order, error) {
			v, err := first[domain.Vendor](tx.Where("id = ? AND is_approved = ?", in.VendorID, true), domain.ErrVendorNotFound)
			if err != nil {
				return nil, err
			}
			lines := make([]domain.OrderLine, 0, len(in.Items))
			ids := make([]string, 0, len(in.Items))
			for _, it := range in.Items {
				lines = append(lines, domain.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
				ids = append(ids, it.ProductID)
			}
			var ps []domain.Product
			if err := tx.Where("id IN ?", utils.UniqueTrimmed(ids)).Find(&ps).Error; err != nil {
				return nil, err
			}
			byID := make(map[string]*domain.Product, len(ps))
			for i := range ps {
				byID[ps[i].ID] = &ps[i]
			}
			items, total, err := domain.PriceOrder(v.ID, lines, byID)
			if err != nil {
				return nil, err
			}
			o := &domain.Order{
				UserID:     ez.UserID(c),
				VendorID:   v.ID,
				Status:     domain.OrderPending,
				TotalPrice: total,
				Notes:      in.Notes,
				Items:      items,
			}
			if err := tx.Create(o).Error; err != nil {
				return nil, err
			}
			notifyQuietly(c.Request.Context(), tx, m.d.Log, &domain.Notification{
				UserID:    v.UserID,
				Type:      domain.NotificationOrder,
				TitleAr:   "طلب جديد",
				TitleEn:   "New order",
				MessageAr: "لديك طلب جديد",
				MessageEn: "You have received a new order",
				Data:      map[string]any{"orderId": o.ID},
			})
			return first[domain.Order](withOrderRelations(tx).Where("id = ?", o.ID), errOrderNotFound)
		},
	})

	type statusIn struct {
		Status domain.OrderStatus `json:"status" binding:"required,oneof=PENDING CONFIRMED IN_PROGRESS COMPLETED CANCELLED"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[statusIn, *domain.Order]{
		Method: http.MethodPut,
		Path:   "/orders/:id/status",
		Binder: ez.BindJSON,
		Auth:   true,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *statusIn) (*domain.Order, error) {
			o, err := first[domain.Order](tx.Preload("Vendor").Where("id = ?", c.Param("id")), errOrderNotFound)
			if err != nil {
				return nil, err
			}
			actor := domain.OrderActor{UserID: ez.UserID(c), Role: ez.Role(c)}
			if o.Vendor != nil {
				actor.VendorUserID = o.Vendor.UserID
			}
			if !domain.CanTransitionOrder(actor, o, in.Status) {
				return nil, domain.Forbidden("you are not allowed to change this order status")
			}
			if err := tx.Model(o).Update("status", in.Status).Error; err != nil {
				return nil, err
			}
			if o.UserID != actor.UserID {
				notifyQuietly(c.Request.Context(), tx, m.d.Log, &domain.Notification{
					UserID:    o.UserID,
					Type:      domain.NotificationOrder,
					TitleAr:   "تحديث الطلب",
					TitleEn:   "Order updated",
					MessageAr: "تم تحديث حالة طلبك إلى " + string(in.Status),
					MessageEn: "Your order status changed to " + string(in.Status),
					Data:      map[string]any{"orderId": o.ID, "status": in.Status},
				})
			}
			return first[domain.Order](withOrderRelations(tx).Where("id = ?", o.ID), errOrderNotFound)
		},
	})
}
