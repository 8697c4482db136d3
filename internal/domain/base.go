package domain

import (
	"time"

	"gorm.io/gorm"

	"arzaquna-api/pkg/utils"
)

// Base 公共主键与时间戳；ID 为空时创建前自动生成
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = utils.NewID()
	}
	return nil
}

// Models 参与 AutoMigrate 的全部表（顺序即依赖顺序）
func Models() []any {
	return []any{
		&User{},
		&Category{},
		&VendorApplication{},
		&ApplicationCategory{},
		&ApplicationEvent{},
		&Vendor{},
		&VendorCategory{},
		&Product{},
		&ProductSpecification{},
		&Order{},
		&OrderItem{},
		&Favorite{},
		&Message{},
		&Notification{},
		&NotificationSettings{},
		&Slider{},
		&AppContent{},
		&Status{},
	}
}
