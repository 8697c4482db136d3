package domain

import "time"

type Vendor struct {
	Base
	UserID            string     `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	StoreName         string     `gorm:"size:191;not null" json:"storeName"`
	Description       string     `gorm:"size:1000" json:"description,omitempty"`
	Logo              string     `gorm:"size:500" json:"logo,omitempty"`
	City              string     `gorm:"size:128;index" json:"city"`
	Region            string     `gorm:"size:128" json:"region"`
	YearsOfExperience int        `gorm:"not null;default:0" json:"yearsOfExperience"`
	WhatsappNumber    string     `gorm:"size:32" json:"whatsappNumber"`
	CallNumber        string     `gorm:"size:32" json:"callNumber"`
	IsApproved        bool       `gorm:"not null;default:false" json:"isApproved"`
	ApprovedAt        *time.Time `json:"approvedAt,omitempty"`

	Categories []VendorCategory `gorm:"foreignKey:VendorID" json:"categories,omitempty"`
	User       *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// VendorCategory 供应商经营类目，审核通过时按申请专长一次性生成
type VendorCategory struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	VendorID   string    `gorm:"size:36;not null;uniqueIndex:idx_vendor_category" json:"vendorId"`
	CategoryID string    `gorm:"size:36;not null;uniqueIndex:idx_vendor_category;index" json:"categoryId"`
	CreatedAt  time.Time `json:"createdAt"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (v *Vendor) CategoryIDs() []string {
	ids := make([]string, 0, len(v.Categories))
	for _, c := range v.Categories {
		ids = append(ids, c.CategoryID)
	}
	return ids
}

func (v *Vendor) HasCategory(id string) bool {
	for _, c := range v.Categories {
		if c.CategoryID == id {
			return true
		}
	}
	return false
}
