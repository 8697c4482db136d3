package domain

import "time"

type Category struct {
	Base
	NameAr        string `gorm:"size:191;not null" json:"nameAr"`
	NameEn        string `gorm:"size:191;not null" json:"nameEn"`
	DescriptionAr string `gorm:"size:1000" json:"descriptionAr,omitempty"`
	DescriptionEn string `gorm:"size:1000" json:"descriptionEn,omitempty"`
	Icon          string `gorm:"size:500" json:"icon,omitempty"`
	Image         string `gorm:"size:500" json:"image,omitempty"`
	SortOrder     int    `gorm:"not null;default:0" json:"sortOrder"`
	IsActive      bool   `gorm:"not null;default:true;index" json:"isActive"`
}

type Product struct {
	Base
	VendorID      string     `gorm:"size:36;index;not null" json:"vendorId"`
	CategoryID    string     `gorm:"size:36;index;not null" json:"categoryId"`
	NameAr        string     `gorm:"size:191;not null" json:"nameAr"`
	NameEn        string     `gorm:"size:191;not null" json:"nameEn"`
	DescriptionAr string     `gorm:"size:2000" json:"descriptionAr,omitempty"`
	DescriptionEn string     `gorm:"size:2000" json:"descriptionEn,omitempty"`
	Price         float64    `gorm:"not null" json:"price"`
	Images        []string   `gorm:"serializer:json" json:"images"`
	IsActive      bool       `gorm:"not null;default:true;index" json:"isActive"`
	IsApproved    bool       `gorm:"not null;default:false;index" json:"isApproved"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`

	Specifications []ProductSpecification `gorm:"foreignKey:ProductID" json:"specifications,omitempty"`
	Category       *Category              `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Vendor         *Vendor                `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
}

// Orderable 可下单：上架且已审核
func (p *Product) Orderable() bool { return p.IsActive && p.IsApproved }

type ProductSpecification struct {
	Base
	ProductID string `gorm:"size:36;index;not null" json:"productId"`
	KeyAr     string `gorm:"size:191" json:"keyAr"`
	KeyEn     string `gorm:"size:191" json:"keyEn"`
	ValueAr   string `gorm:"size:500" json:"valueAr"`
	ValueEn   string `gorm:"size:500" json:"valueEn"`
}
