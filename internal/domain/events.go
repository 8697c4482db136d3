package domain

import "time"

// Event 工作流领域事件
type Event interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

const (
	EventApplicationSubmitted = "vendor_application.submitted"
	EventVendorApproved       = "vendor.approved"
	EventApplicationRejected  = "vendor_application.rejected"
)

// VendorApproved 审核通过：创建 Vendor、写类目、提升角色，必须与状态写入同事务
type VendorApproved struct {
	ApplicationID string
	UserID        string
	ReviewerID    string
	Vendor        Vendor
	CategoryIDs   []string
	At            time.Time
}

func (e VendorApproved) EventType() string     { return EventVendorApproved }
func (e VendorApproved) AggregateID() string   { return e.ApplicationID }
func (e VendorApproved) OccurredAt() time.Time { return e.At }

type ApplicationRejected struct {
	ApplicationID string
	UserID        string
	ReviewerID    string
	Reason        string
	At            time.Time
}

func (e ApplicationRejected) EventType() string     { return EventApplicationRejected }
func (e ApplicationRejected) AggregateID() string   { return e.ApplicationID }
func (e ApplicationRejected) OccurredAt() time.Time { return e.At }

// ApplicationEvent 审核流水（只追加）
type ApplicationEvent struct {
	ID            string            `gorm:"primaryKey;size:36" json:"id"`
	ApplicationID string            `gorm:"size:36;index;not null" json:"applicationId"`
	Type          string            `gorm:"size:64;not null" json:"type"`
	ActorID       string            `gorm:"size:36" json:"actorId"`
	FromStatus    ApplicationStatus `gorm:"size:16" json:"fromStatus,omitempty"`
	ToStatus      ApplicationStatus `gorm:"size:16;not null" json:"toStatus"`
	Payload       map[string]any    `gorm:"serializer:json" json:"payload,omitempty"`
	OccurredAt    time.Time         `gorm:"not null" json:"occurredAt"`
}
