package domain

import "context"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleUser   Role = "USER"
	RoleVendor Role = "VENDOR"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleVendor:
		return true
	}
	return false
}

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Phone        string `gorm:"uniqueIndex;size:32;not null" json:"phone"`
	FullName     string `gorm:"size:128;not null" json:"fullName"`
	PasswordHash string `gorm:"size:191" json:"-"`
	Role         Role   `gorm:"size:16;index;not null;default:USER" json:"role"`
	IsActive     bool   `gorm:"not null;default:true" json:"isActive"`
}

type UserFilter struct {
	Role     Role
	Search   string
	IsActive *bool
	Offset   int
	Limit    int
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailOrPhone(ctx context.Context, email, phone string) ([]User, error)
	List(ctx context.Context, f UserFilter) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
	UpdateRole(ctx context.Context, id string, role Role) error
	SetActive(ctx context.Context, id string, active bool) error
}
