package domain

type Favorite struct {
	Base
	UserID    string   `gorm:"size:36;not null;uniqueIndex:idx_fav_user_product" json:"userId"`
	ProductID string   `gorm:"size:36;not null;uniqueIndex:idx_fav_user_product" json:"productId"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

type MessageType string

const (
	MessageSupport   MessageType = "SUPPORT"
	MessageComplaint MessageType = "COMPLAINT"
	MessageInquiry   MessageType = "INQUIRY"
	MessageGeneral   MessageType = "GENERAL"
)

type Message struct {
	Base
	SenderID   string      `gorm:"size:36;index;not null" json:"senderId"`
	ReceiverID string      `gorm:"size:36;index;not null" json:"receiverId"`
	Type       MessageType `gorm:"size:16;not null;default:GENERAL" json:"type"`
	Subject    string      `gorm:"size:191" json:"subject,omitempty"`
	Content    string      `gorm:"type:text;not null" json:"content"`
	IsRead     bool        `gorm:"not null;default:false;index" json:"isRead"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

// MessageAllowed 用户只能找供应商/管理员，供应商只能找用户/管理员，管理员不限
func MessageAllowed(from, to Role) bool {
	switch from {
	case RoleAdmin:
		return true
	case RoleUser:
		return to == RoleVendor || to == RoleAdmin
	case RoleVendor:
		return to == RoleUser || to == RoleAdmin
	}
	return false
}

type NotificationType string

const (
	NotificationOrder   NotificationType = "ORDER"
	NotificationOffer   NotificationType = "OFFER"
	NotificationMessage NotificationType = "MESSAGE"
)

func (t NotificationType) IsValid() bool {
	return t == NotificationOrder || t == NotificationOffer || t == NotificationMessage
}

type Notification struct {
	Base
	UserID    string           `gorm:"size:36;index;not null" json:"userId"`
	Type      NotificationType `gorm:"size:16;index;not null" json:"type"`
	TitleAr   string           `gorm:"size:191" json:"titleAr"`
	TitleEn   string           `gorm:"size:191" json:"titleEn"`
	MessageAr string           `gorm:"size:1000" json:"messageAr"`
	MessageEn string           `gorm:"size:1000" json:"messageEn"`
	Data      map[string]any   `gorm:"serializer:json" json:"data,omitempty"`
	IsRead    bool             `gorm:"not null;default:false;index" json:"isRead"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type NotificationSettings struct {
	Base
	UserID         string `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	OrderEnabled   bool   `gorm:"not null;default:true" json:"orderEnabled"`
	OfferEnabled   bool   `gorm:"not null;default:true" json:"offerEnabled"`
	MessageEnabled bool   `gorm:"not null;default:true" json:"messageEnabled"`
}

// DefaultNotificationSettings 首次访问时按全开创建
func DefaultNotificationSettings(userID string) *NotificationSettings {
	return &NotificationSettings{UserID: userID, OrderEnabled: true, OfferEnabled: true, MessageEnabled: true}
}

// Allows 设置为 nil 视为全开
func (s *NotificationSettings) Allows(t NotificationType) bool {
	if s == nil {
		return true
	}
	switch t {
	case NotificationOrder:
		return s.OrderEnabled
	case NotificationOffer:
		return s.OfferEnabled
	case NotificationMessage:
		return s.MessageEnabled
	}
	return false
}
