package domain

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	Base
	UserID     string      `gorm:"size:36;index;not null" json:"userId"`
	VendorID   string      `gorm:"size:36;index;not null" json:"vendorId"`
	Status     OrderStatus `gorm:"size:16;index;not null;default:PENDING" json:"status"`
	TotalPrice float64     `gorm:"not null;default:0" json:"totalPrice"`
	Notes      string      `gorm:"size:1000" json:"notes,omitempty"`

	Items  []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Vendor *Vendor     `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	User   *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// OrderItem 价格为下单时快照
type OrderItem struct {
	Base
	OrderID   string   `gorm:"size:36;index;not null" json:"orderId"`
	ProductID string   `gorm:"size:36;index;not null" json:"productId"`
	Quantity  int      `gorm:"not null" json:"quantity"`
	Price     float64  `gorm:"not null" json:"price"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// OrderActor 发起状态变更的一方
type OrderActor struct {
	UserID string
	Role   Role
	// VendorUserID 订单所属供应商的 userId
	VendorUserID string
}

// CanTransitionOrder 管理员任意；所属供应商任意；买家只能取消
func CanTransitionOrder(actor OrderActor, o *Order, next OrderStatus) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleVendor:
		if actor.VendorUserID == actor.UserID {
			return true
		}
	}
	return o.UserID == actor.UserID && next == OrderCancelled
}

type OrderLine struct {
	ProductID string
	Quantity  int
}

// PriceOrder 校验商品归属/可售并按当前价格生成明细快照
func PriceOrder(vendorID string, lines []OrderLine, products map[string]*Product) ([]OrderItem, float64, error) {
	if len(lines) == 0 {
		return nil, 0, Validation("order items are required")
	}
	items := make([]OrderItem, 0, len(lines))
	var total float64
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, 0, Validation("quantity must be at least 1")
		}
		p := products[l.ProductID]
		if p == nil || !p.Orderable() {
			return nil, 0, Validation("product " + l.ProductID + " not found or not available")
		}
		if p.VendorID != vendorID {
			return nil, 0, Validation("product " + l.ProductID + " does not belong to this vendor")
		}
		items = append(items, OrderItem{ProductID: p.ID, Quantity: l.Quantity, Price: p.Price})
		total += p.Price * float64(l.Quantity)
	}
	return items, total, nil
}
