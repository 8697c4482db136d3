package domain

import (
	"strings"
	"time"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

var terminalStatuses = map[ApplicationStatus]bool{
	ApplicationApproved: true,
	ApplicationRejected: true,
}

func (s ApplicationStatus) IsTerminal() bool { return terminalStatuses[s] }

func (s ApplicationStatus) IsValid() bool {
	return s == ApplicationPending || terminalStatuses[s]
}

// OpenStatuses 占用“一人一份申请”名额的状态
var OpenStatuses = []ApplicationStatus{ApplicationPending, ApplicationApproved}

type VendorApplication struct {
	Base
	UserID            string            `gorm:"size:36;index;not null" json:"userId"`
	FullName          string            `gorm:"size:128;not null" json:"fullName"`
	Phone             string            `gorm:"size:32;not null" json:"phone"`
	Email             string            `gorm:"size:191;not null" json:"email"`
	StoreName         string            `gorm:"size:191;not null" json:"storeName"`
	City              string            `gorm:"size:128" json:"city"`
	Region            string            `gorm:"size:128" json:"region"`
	YearsOfExperience int               `gorm:"not null;default:0" json:"yearsOfExperience"`
	WhatsappNumber    string            `gorm:"size:32" json:"whatsappNumber"`
	CallNumber        string            `gorm:"size:32" json:"callNumber"`
	Status            ApplicationStatus `gorm:"size:16;index;not null;default:PENDING" json:"status"`
	ReviewedBy        string            `gorm:"size:36" json:"reviewedBy,omitempty"`
	ReviewedAt        *time.Time        `json:"reviewedAt,omitempty"`
	RejectionReason   string            `gorm:"size:500" json:"rejectionReason,omitempty"`
	Version           int               `gorm:"not null;default:1" json:"version"`

	Categories     []ApplicationCategory `gorm:"foreignKey:ApplicationID" json:"-"`
	Specialization []string              `gorm:"-" json:"specialization"`
	User           *User                 `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// ApplicationCategory 申请的专长类目（连接表）
type ApplicationCategory struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	ApplicationID string `gorm:"size:36;not null;uniqueIndex:idx_app_category" json:"applicationId"`
	CategoryID    string `gorm:"size:36;not null;uniqueIndex:idx_app_category;index" json:"categoryId"`
}

func (ApplicationCategory) TableName() string { return "vendor_application_categories" }

// FillSpecialization 由连接表回填 Specialization
func (a *VendorApplication) FillSpecialization() {
	if len(a.Categories) == 0 {
		if a.Specialization == nil {
			a.Specialization = []string{}
		}
		return
	}
	ids := make([]string, 0, len(a.Categories))
	for _, c := range a.Categories {
		ids = append(ids, c.CategoryID)
	}
	a.Specialization = ids
}

type ApplicationFilter struct {
	Status ApplicationStatus
	UserID string
	Offset int
	Limit  int
}

// ReviewAction 审核动作，封闭集合：Approve | Reject
type ReviewAction interface {
	Reviewer() string
	target() ApplicationStatus
}

type Approve struct{ ReviewerID string }

type Reject struct {
	ReviewerID string
	Reason     string
}

func (a Approve) Reviewer() string        { return a.ReviewerID }
func (Approve) target() ApplicationStatus { return ApplicationApproved }
func (r Reject) Reviewer() string         { return r.ReviewerID }
func (Reject) target() ApplicationStatus  { return ApplicationRejected }

// ParseReviewAction 把 {status, rejectionReason} 映射为动作
func ParseReviewAction(status ApplicationStatus, reviewerID, reason string) (ReviewAction, error) {
	switch status {
	case ApplicationApproved:
		return Approve{ReviewerID: reviewerID}, nil
	case ApplicationRejected:
		return Reject{ReviewerID: reviewerID, Reason: reason}, nil
	}
	return nil, ErrUnknownReviewAction
}

// Decision Transition 的结果：待写入的字段 + 需要在同一事务里应用的事件
type Decision struct {
	From            ApplicationStatus
	To              ApplicationStatus
	ReviewedBy      string
	ReviewedAt      time.Time
	RejectionReason string
	Event           Event
}

// Transition 唯一列举合法状态迁移的地方，纯函数不落库
func Transition(app *VendorApplication, action ReviewAction, now time.Time) (Decision, error) {
	if app == nil {
		return Decision{}, ErrApplicationNotFound
	}
	if action == nil {
		return Decision{}, ErrUnknownReviewAction
	}
	if app.Status != ApplicationPending {
		return Decision{}, ErrAlreadyReviewed
	}
	d := Decision{
		From:       app.Status,
		To:         action.target(),
		ReviewedBy: action.Reviewer(),
		ReviewedAt: now,
	}
	switch a := action.(type) {
	case Approve:
		d.Event = VendorApproved{
			ApplicationID: app.ID,
			UserID:        app.UserID,
			ReviewerID:    a.ReviewerID,
			CategoryIDs:   append([]string(nil), app.Specialization...),
			Vendor: Vendor{
				UserID:            app.UserID,
				StoreName:         app.StoreName,
				City:              app.City,
				Region:            app.Region,
				YearsOfExperience: app.YearsOfExperience,
				WhatsappNumber:    app.WhatsappNumber,
				CallNumber:        app.CallNumber,
				IsApproved:        true,
				ApprovedAt:        &now,
			},
			At: now,
		}
	case Reject:
		reason := strings.TrimSpace(a.Reason)
		if reason == "" {
			return Decision{}, ErrRejectionReasonRequired
		}
		d.RejectionReason = reason
		d.Event = ApplicationRejected{
			ApplicationID: app.ID,
			UserID:        app.UserID,
			ReviewerID:    a.ReviewerID,
			Reason:        reason,
			At:            now,
		}
	default:
		return Decision{}, ErrUnknownReviewAction
	}
	return d, nil
}

// Apply 把决策写回内存对象（落库成功后调用）
func (d Decision) Apply(app *VendorApplication) {
	at := d.ReviewedAt
	app.Status = d.To
	app.ReviewedBy = d.ReviewedBy
	app.ReviewedAt = &at
	app.RejectionReason = d.RejectionReason
	app.Version++
}
