package domain

import "time"

type Slider struct {
	Base
	TitleAr   string `gorm:"size:191" json:"titleAr"`
	TitleEn   string `gorm:"size:191" json:"titleEn"`
	Image     string `gorm:"size:500;not null" json:"image"`
	Link      string `gorm:"size:500" json:"link,omitempty"`
	SortOrder int    `gorm:"not null;default:0" json:"sortOrder"`
	IsActive  bool   `gorm:"not null;default:true;index" json:"isActive"`
}

type ContentType string

const (
	ContentAbout           ContentType = "ABOUT"
	ContentPrivacyPolicy   ContentType = "PRIVACY_POLICY"
	ContentTermsConditions ContentType = "TERMS_CONDITIONS"
)

func (t ContentType) IsValid() bool {
	return t == ContentAbout || t == ContentPrivacyPolicy || t == ContentTermsConditions
}

type AppContent struct {
	Base
	Type      ContentType `gorm:"size:32;uniqueIndex;not null" json:"type"`
	ContentAr string      `gorm:"type:text" json:"contentAr"`
	ContentEn string      `gorm:"type:text" json:"contentEn"`
	UpdatedBy string      `gorm:"size:36" json:"updatedBy,omitempty"`
}

// Status 供应商发布的优惠动态（与申请状态无关）
type Status struct {
	Base
	VendorID      string     `gorm:"size:36;index;not null" json:"vendorId"`
	TitleAr       string     `gorm:"size:191" json:"titleAr"`
	TitleEn       string     `gorm:"size:191" json:"titleEn"`
	DescriptionAr string     `gorm:"size:1000" json:"descriptionAr,omitempty"`
	DescriptionEn string     `gorm:"size:1000" json:"descriptionEn,omitempty"`
	Image         string     `gorm:"size:500" json:"image,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	IsActive      bool       `gorm:"not null;default:true;index" json:"isActive"`
	Vendor        *Vendor    `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
}

func (s *Status) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}
