package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
)

var errNotificationNotFound = domain.NotFound("notification not found")

type NotificationsModule struct{ d Deps }

func NewNotificationsModule(d Deps) *NotificationsModule { return &NotificationsModule{d: d} }

// settingsOf 首次访问时创建默认设置
func settingsOf(tx *gorm.DB, userID string) (*domain.NotificationSettings, error) {
	var ss []domain.NotificationSettings
	if err := tx.Where("user_id = ?", userID).Limit(1).Find(&ss).Error; err != nil {
		return nil, err
	}
	if len(ss) > 0 {
		return &ss[0], nil
	}
	s := domain.DefaultNotificationSettings(userID)
	if err := tx.Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (m *NotificationsModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	type listQ struct {
		ez.Page
		Type   domain.NotificationType `form:"type"`
		IsRead *bool                   `form:"isRead"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[listQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/notifications",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *listQ) (gin.H, error) {
			uid := ez.UserID(c)
			pg := in.Page.Norm(20)
			q := tx.Model(&domain.Notification{}).Where("user_id = ?", uid)
			if in.Type != "" {
				if !in.Type.IsValid() {
					return nil, domain.Validation("type must be ORDER, OFFER or MESSAGE")
				}
				s, err := settingsOf(tx, uid)
				if err != nil {
					return nil, err
				}
				// 该类型已关闭时按空列表返回
				if !s.Allows(in.Type) {
					return ez.Paged("notifications", []domain.Notification{}, pg.Of(0)), nil
				}
				q = q.Where("type = ?", in.Type)
			}
			if in.IsRead != nil {
				q = q.Where("is_read = ?", *in.IsRead)
			}
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			var ns []domain.Notification
			if err := q.Order("created_at DESC").Offset(pg.Offset()).Limit(pg.Limit).Find(&ns).Error; err != nil {
				return nil, err
			}
			var unread int64
			if err := tx.Model(&domain.Notification{}).
				Where("user_id = ? AND is_read = ?", uid, false).Count(&unread).Error; err != nil {
				return nil, err
			}
			out := ez.Paged("notifications", ns, pg.Of(total))
			out["unreadCount"] = unread
			return out, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodPut,
		Path:   "/notifications/read-all",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			res := tx.Model(&domain.Notification{}).
				Where("user_id = ? AND is_read = ?", ez.UserID(c), false).Update("is_read", true)
			if res.Error != nil {
				return nil, res.Error
			}
			return gin.H{"updated": res.RowsAffected}, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodPut,
		Path:   "/notifications/:id/read",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			n, err := first[domain.Notification](tx.Where("id = ? AND user_id = ?", c.Param("id"), ez.UserID(c)), errNotificationNotFound)
			if err != nil {
				return nil, err
			}
			if err := tx.Model(n).Update("is_read", true).Error; err != nil {
				return nil, err
			}
			return gin.H{"id": n.ID, "isRead": true}, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, *domain.NotificationSettings]{
		Method: http.MethodGet,
		Path:   "/notifications/settings",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.NotificationSettings, error) {
			return settingsOf(tx, ez.UserID(c))
		},
	})

	type settingsIn struct {
		OrderEnabled   *bool `json:"orderEnabled"`
		OfferEnabled   *bool `json:"offerEnabled"`
		MessageEnabled *bool `json:"messageEnabled"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[settingsIn, *domain.NotificationSettings]{
		Method: http.MethodPut,
		Path:   "/notifications/settings",
		Binder: ez.BindJSON,
		Auth:   true,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *settingsIn) (*domain.NotificationSettings, error) {
			s, err := settingsOf(tx, ez.UserID(c))
			if err != nil {
				return nil, err
			}
			u := map[string]any{}
			if in.OrderEnabled != nil {
				u["order_enabled"] = *in.OrderEnabled
			}
			if in.OfferEnabled != nil {
				u["offer_enabled"] = *in.OfferEnabled
			}
			if in.MessageEnabled != nil {
				u["message_enabled"] = *in.MessageEnabled
			}
			if len(u) > 0 {
				if err := tx.Model(s).Updates(u).Error; err != nil {
					return nil, err
				}
			}
			return first[domain.NotificationSettings](tx.Where("id = ?", s.ID), errNotificationNotFound)
		},
	})

	type sendIn struct {
		UserID    string                  `json:"userId"    binding:"required"`
		Type      domain.NotificationType `json:"type"      binding:"required,oneof=ORDER OFFER MESSAGE"`
		TitleAr   string                  `json:"titleAr"   binding:"required,max=191"`
		TitleEn   string                  `json:"titleEn"   binding:"required,max=191"`
		MessageAr string                  `json:"messageAr" binding:"required,max=1000"`
		MessageEn string                  `json:"messageEn" binding:"required,max=1000"`
		Data      map[string]any          `json:"data"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[sendIn, *domain.Notification]{
		Method: http.MethodPost,
		Path:   "/notifications",
		Binder: ez.BindJSON,
		Roles:  []domain.Role{domain.RoleAdmin, domain.RoleVendor},
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *sendIn) (*domain.Notification, error) {
			if _, err := first[domain.User](tx.Where("id = ?", in.UserID), domain.ErrUserNotFound); err != nil {
				return nil, err
			}
			n := &domain.Notification{
				UserID: in.UserID, Type: in.Type,
				TitleAr: in.TitleAr, TitleEn: in.TitleEn,
				MessageAr: in.MessageAr, MessageEn: in.MessageEn,
				Data: in.Data,
			}
			sent, err := notify(c.Request.Context(), tx, n)
			if err != nil {
				return nil, err
			}
			if !sent {
				return nil, domain.Validation("user has disabled " + string(in.Type) + " notifications")
			}
			return n, nil
		},
	})
}
