package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"arzaquna-api/internal/domain"
	"arzaquna-api/pkg/utils"
)

// VendorApplicationService 供应商入驻：提交、审核、查询
type VendorApplicationService struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewVendorApplicationService(store Store, log *zap.Logger) *VendorApplicationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &VendorApplicationService{store: store, log: log, now: time.Now}
}

type SubmitInput struct {
	FullName          string
	Phone             string
	Email             string
	StoreName         string
	Specialization    []string
	City              string
	Region            string
	YearsOfExperience int
	WhatsappNumber    string
	CallNumber        string
}

type RegisterInput struct {
	FullName        string
	Phone           string
	Email           string
	Password        string
	RepeatPassword  string
	StoreName       string
	Categories      []string
	LocationText    string
	ExperienceYears int
}

type ReviewInput struct {
	Status          domain.ApplicationStatus
	RejectionReason string
}

type ApplicationQuery struct {
	Status domain.ApplicationStatus
	Offset int
	Limit  int
}

// Submit 普通入驻申请
func (s *VendorApplicationService) Submit(ctx context.Context, userID string, in SubmitInput) (*domain.VendorApplication, error) {
	ids, err := s.validCategories(ctx, in.Specialization)
	if err != nil {
		return nil, err
	}
	app := &domain.VendorApplication{
		UserID:            userID,
		FullName:          strings.TrimSpace(in.FullName),
		Phone:             strings.TrimSpace(in.Phone),
		Email:             utils.NormalizeEmail(in.Email),
		StoreName:         strings.TrimSpace(in.StoreName),
		City:              strings.TrimSpace(in.City),
		Region:            strings.TrimSpace(in.Region),
		YearsOfExperience: in.YearsOfExperience,
		WhatsappNumber:    strings.TrimSpace(in.WhatsappNumber),
		CallNumber:        strings.TrimSpace(in.CallNumber),
		Specialization:    ids,
	}
	err = s.store.Tx(ctx, func(tx Store) error {
		if err := s.ensureCanApply(ctx, tx, userID); err != nil {
			return err
		}
		return s.create(ctx, tx, app)
	})
	if err != nil {
		return nil, asDomain("failed to submit application", err)
	}
	applicationsSubmitted.WithLabelValues("web").Inc()
	s.log.Info("vendor application submitted", zap.String("application_id", app.ID), zap.String("user_id", userID))
	return app, nil
}

// RegisterVendor 移动端：一次提交资料 + 密码 + 申请
func (s *VendorApplicationService) RegisterVendor(ctx context.Context, userID string, in RegisterInput) (*domain.VendorApplication, error) {
	if in.Password != in.RepeatPassword {
		return nil, domain.ErrPasswordMismatch
	}
	if len(in.Password) < utils.MinPasswordLen {
		return nil, domain.Validation("password must be at least 6 characters")
	}
	ids, err := s.validCategories(ctx, in.Categories)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, domain.Internal("failed to hash password", err)
	}
	email, phone := utils.NormalizeEmail(in.Email), strings.TrimSpace(in.Phone)
	app := &domain.VendorApplication{
		UserID:            userID,
		FullName:          strings.TrimSpace(in.FullName),
		Phone:             phone,
		Email:             email,
		StoreName:         strings.TrimSpace(in.StoreName),
		City:              strings.TrimSpace(in.LocationText),
		YearsOfExperience: in.ExperienceYears,
		WhatsappNumber:    phone,
		CallNumber:        phone,
		Specialization:    ids,
	}
	err = s.store.Tx(ctx, func(tx Store) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.ErrUserNotFound
		}
		others, err := tx.FindUsersByEmailOrPhone(ctx, email, phone)
		if err != nil {
			return err
		}
		for _, o := range others {
			if o.ID != userID {
				return domain.ErrEmailOrPhoneTaken
			}
		}
		if err := s.ensureCanApply(ctx, tx, userID); err != nil {
			return err
		}
		u.FullName, u.Email, u.Phone, u.PasswordHash = app.FullName, email, phone, hash
		if err := tx.UpdateUserProfile(ctx, u); err != nil {
			return err
		}
		return s.create(ctx, tx, app)
	})
	if err != nil {
		return nil, asDomain("failed to register vendor", err)
	}
	applicationsSubmitted.WithLabelValues("mobile").Inc()
	s.log.Info("vendor registered via mobile", zap.String("application_id", app.ID), zap.String("user_id", userID))
	return app, nil
}

// Review 审核：状态写入与 VendorApproved 的副作用在同一事务
func (s *VendorApplicationService) Review(ctx context.Context, applicationID, reviewerID string, in ReviewInput) (*domain.VendorApplication, error) {
	action, err := domain.ParseReviewAction(in.Status, reviewerID, in.RejectionReason)
	if err != nil {
		return nil, err
	}
	var out *domain.VendorApplication
	err = s.store.Tx(ctx, func(tx Store) error {
		app, err := tx.FindApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		d, err := domain.Transition(app, action, s.now())
		if err != nil {
			return err
		}
		if err := tx.TransitionApplication(ctx, app, d); err != nil {
			return err
		}
		if err := s.applyEvent(ctx, tx, d.Event); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, auditRow(app.ID, d)); err != nil {
			return err
		}
		d.Apply(app)
		out = app
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyReviewed) {
			applicationReviewConflicts.Inc()
			s.log.Warn("review conflict", zap.String("application_id", applicationID), zap.String("reviewer", reviewerID))
		}
		return nil, asDomain("failed to review application", err)
	}
	applicationReviews.WithLabelValues(strings.ToLower(string(out.Status))).Inc()
	s.log.Info("vendor application reviewed",
		zap.String("application_id", out.ID),
		zap.String("status", string(out.Status)),
		zap.String("reviewer", reviewerID),
	)
	return out, nil
}

func (s *VendorApplicationService) List(ctx context.Context, q ApplicationQuery) ([]domain.VendorApplication, int64, error) {
	if q.Status != "" && !q.Status.IsValid() {
		return nil, 0, domain.Validation("status must be PENDING, APPROVED or REJECTED")
	}
	items, total, err := s.store.ListApplications(ctx, domain.ApplicationFilter{Status: q.Status, Offset: q.Offset, Limit: q.Limit})
	if err != nil {
		return nil, 0, domain.Internal("failed to fetch applications", err)
	}
	return items, total, nil
}

func (s *VendorApplicationService) Get(ctx context.Context, id string) (*domain.VendorApplication, error) {
	app, err := s.store.FindApplication(ctx, id)
	if err != nil {
		return nil, domain.Internal("failed to fetch application", err)
	}
	if app == nil {
		return nil, domain.ErrApplicationNotFound
	}
	return app, nil
}

func (s *VendorApplicationService) MyApplications(ctx context.Context, userID string) ([]domain.VendorApplication, error) {
	items, _, err := s.store.ListApplications(ctx, domain.ApplicationFilter{UserID: userID})
	if err != nil {
		return nil, domain.Internal("failed to fetch applications", err)
	}
	return items, nil
}

// validCategories 去重后要求全部存在且启用
func (s *VendorApplicationService) validCategories(ctx context.Context, raw []string) ([]string, error) {
	ids := utils.UniqueTrimmed(raw)
	if len(ids) == 0 {
		return nil, domain.ErrSpecializationRequired
	}
	cats, err := s.store.FindCategoriesByIDs(ctx, ids)
	if err != nil {
		return nil, domain.Internal("failed to load categories", err)
	}
	active := make(map[string]bool, len(cats))
	for _, c := range cats {
		if c.IsActive {
			active[c.ID] = true
		}
	}
	for _, id := range ids {
		if !active[id] {
			return nil, domain.ErrCategoryNotFound
		}
	}
	return ids, nil
}

func (s *VendorApplicationService) ensureCanApply(ctx context.Context, tx Store, userID string) error {
	u, err := tx.LockUser(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrUserNotFound
	}
	open, err := tx.HasOpenApplication(ctx, userID)
	if err != nil {
		return err
	}
	if open {
		return domain.ErrAlreadyApplied
	}
	v, err := tx.FindVendorByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if v != nil {
		return domain.ErrAlreadyVendor
	}
	return nil
}

func (s *VendorApplicationService) create(ctx context.Context, tx Store, app *domain.VendorApplication) error {
	app.ID = utils.NewID()
	app.Status = domain.ApplicationPending
	app.Version = 1
	if err := tx.CreateApplication(ctx, app); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, &domain.ApplicationEvent{
		ID:            utils.NewID(),
		ApplicationID: app.ID,
		Type:          domain.EventApplicationSubmitted,
		ActorID:       app.UserID,
		ToStatus:      domain.ApplicationPending,
		Payload:       map[string]any{"specialization": app.Specialization},
		OccurredAt:    s.now(),
	})
}

func (s *VendorApplicationService) applyEvent(ctx context.Context, tx Store, ev domain.Event) error {
	approved, ok := ev.(domain.VendorApproved)
	if !ok {
		return nil
	}
	existing, err := tx.FindVendorByUserID(ctx, approved.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrAlreadyVendor
	}
	v := approved.Vendor
	v.ID = utils.NewID()
	if err := tx.CreateVendor(ctx, &v, approved.CategoryIDs); err != nil {
		return err
	}
	return tx.UpdateUserRole(ctx, approved.UserID, domain.RoleVendor)
}

func auditRow(appID string, d domain.Decision) *domain.ApplicationEvent {
	payload := map[string]any{}
	switch ev := d.Event.(type) {
	case domain.VendorApproved:
		payload["categoryIds"] = ev.CategoryIDs
		payload["storeName"] = ev.Vendor.StoreName
	case domain.ApplicationRejected:
		payload["reason"] = ev.Reason
	}
	return &domain.ApplicationEvent{
		ID:            utils.NewID(),
		ApplicationID: appID,
		Type:          d.Event.EventType(),
		ActorID:       d.ReviewedBy,
		FromStatus:    d.From,
		ToStatus:      d.To,
		Payload:       payload,
		OccurredAt:    d.ReviewedAt,
	}
}

// asDomain 业务错误原样返回，其余统一为 internal
func asDomain(msg string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindInternal {
		return err
	}
	return domain.Internal(msg, err)
}
