package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
)

var (
	errMessageNotFound = domain.NotFound("message not found")
	errNoSupportAgent  = domain.Internal("no support agent available", nil)
)

// partnerExpr 以当前用户为一方时的对方
const partnerExpr = "CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END"

type chatRow struct {
	PartnerID string
	LastAt    time.Time
	Unread    int64
}

type chat struct {
	Partner     *domain.User    `json:"partner"`
	LastMessage *domain.Message `json:"lastMessage"`
	UnreadCount int64           `json:"unreadCount"`
}

// chats 按对方聚合会话，最近活跃在前
func chats(tx *gorm.DB, uid string, pg ez.Page) ([]chat, int64, error) {
	var total int64
	if err := tx.Raw("SELECT COUNT(DISTINCT "+partnerExpr+") FROM messages WHERE sender_id = ? OR receiver_id = ?",
		uid, uid, uid).Scan(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []chatRow
	if err := tx.Model(&domain.Message{}).
		Select(partnerExpr+" AS partner_id, MAX(created_at) AS last_at, "+
			"SUM(CASE WHEN receiver_id = ? AND is_read = ? THEN 1 ELSE 0 END) AS unread", uid, uid, false).
		Where("sender_id = ? OR receiver_id = ?", uid, uid).
		Group("partner_id").Order("last_at DESC").
		Offset(pg.Offset()).Limit(pg.Limit).Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.PartnerID
	}
	var users []domain.User
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, 0, err
		}
	}
	byID := make(map[string]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	out := make([]chat, 0, len(rows))
	for _, r := range rows {
		var last domain.Message
		if err := tx.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			uid, r.PartnerID, r.PartnerID, uid).
			Order("created_at DESC").Limit(1).Find(&last).Error; err != nil {
			return nil, 0, err
		}
		out = append(out, chat{Partner: byID[r.PartnerID], LastMessage: &last, UnreadCount: r.Unread})
	}
	return out, total, nil
}

type MessagesModule struct{ d Deps }

func NewMessagesModule(d Deps) *MessagesModule { return &MessagesModule{d: d} }

func withParties(q *gorm.DB) *gorm.DB { return q.Preload("Sender").Preload("Receiver") }

func (m *MessagesModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	type listQ struct {
		ez.Page
		Type domain.MessageType `form:"type"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[listQ, gin.H]{
		Method: http.MethodGet,
		Path:   "/messages",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *listQ) (gin.H, error) {
			uid := ez.UserID(c)
			q := tx.Model(&domain.Message{}).Where("sender_id = ? OR receiver_id = ?", uid, uid)
			if in.Type != "" {
				q = q.Where("type = ?", in.Type)
			}
			pg := in.Page.Norm(20)
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			var ms []domain.Message
			if err := withParties(q).Order("created_at DESC").
				Offset(pg.Offset()).Limit(pg.Limit).Find(&ms).Error; err != nil {
				return nil, err
			}
			return ez.Paged("messages", ms, pg.Of(total)), nil
		},
	})

	// 会话按时间正序，同时把对方发来的标记为已读
	ez.RegisterAction(e, m.d.DB, ez.Action[ez.Page, gin.H]{
		Method: http.MethodGet,
		Path:   "/messages/conversation/:userId",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *ez.Page) (gin.H, error) {
			me, other := ez.UserID(c), c.Param("userId")
			q := tx.Model(&domain.Message{}).
				Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", me, other, other, me)
			pg := in.Norm(50)
			var total int64
			if err := q.Count(&total).Error; err != nil {
				return nil, err
			}
			var ms []domain.Message
			if err := withParties(q).Order("created_at ASC").
				Offset(pg.Offset()).Limit(pg.Limit).Find(&ms).Error; err != nil {
				return nil, err
			}
			if err := tx.Model(&domain.Message{}).
				Where("sender_id = ? AND receiver_id = ? AND is_read = ?", other, me, false).
				Update("is_read", true).Error; err != nil {
				return nil, err
			}
			return ez.Paged("messages", ms, pg.Of(total)), nil
		},
	})

	type sendIn struct {
		ReceiverID string             `json:"receiverId" binding:"required"`
		Type       domain.MessageType `json:"type"       binding:"omitempty,oneof=SUPPORT COMPLAINT INQUIRY GENERAL"`
		Subject    string             `json:"subject"    binding:"max=191"`
		Content    string             `json:"content"    binding:"required,max=5000"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[sendIn, *domain.Message]{
		Method: http.MethodPost,
		Path:   "/messages",
		Binder: ez.BindJSON,
		Auth:   true,
		UseTx:  true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *sendIn) (*domain.Message, error) {
			uid := ez.UserID(c)
			if in.ReceiverID == uid {
				return nil, domain.Validation("cannot send a message to yourself")
			}
			to, err := first[domain.User](tx.Where("id = ? AND is_active = ?", in.ReceiverID, true), domain.NotFound("receiver not found"))
			if err != nil {
				return nil, err
			}
			if !domain.MessageAllowed(ez.Role(c), to.Role) {
				return nil, domain.Forbidden("you are not allowed to message this user")
			}
			typ := in.Type
			if typ == "" {
				typ = domain.MessageGeneral
			}
			msg := &domain.Message{
				SenderID: uid, ReceiverID: to.ID, Type: typ,
				Subject: in.Subject, Content: in.Content,
			}
			if err := tx.Create(msg).Error; err != nil {
				return nil, err
			}
			var senderName string
			if u := ez.CurrentUser(c); u != nil {
				senderName = u.FullName
			}
			notifyQuietly(c.Request.Context(), tx, m.d.Log, &domain.Notification{
				UserID:    to.ID,
				Type:      domain.NotificationMessage,
				TitleAr:   "رسالة جديدة",
				TitleEn:   "New message",
				MessageAr: "لديك رسالة جديدة",
				MessageEn: "You have a new message",
				Data:      map[string]any{"messageId": msg.ID, "senderId": uid, "senderName": senderName},
			})
			return first[domain.Message](withParties(tx).Where("id = ?", msg.ID), errMessageNotFound)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[ez.Page, gin.H]{
		Method: http.MethodGet,
		Path:   "/mobile/messages/chats",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *ez.Page) (gin.H, error) {
			pg := in.Norm(20)
			cs, total, err := chats(tx, ez.UserID(c), pg)
			if err != nil {
				return nil, err
			}
			return ez.Paged("chats", cs, pg.Of(total)), nil
		},
	})

	// 工单发给最早的在岗管理员
	type ticketIn struct {
		Subject string             `json:"subject" binding:"required,max=191"`
		Content string             `json:"content" binding:"required,max=5000"`
		Type    domain.MessageType `json:"type"    binding:"omitempty,oneof=SUPPORT COMPLAINT INQUIRY"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[ticketIn, *domain.Message]{
		Method: http.MethodPost,
		Path:   "/mobile/messages/support/ticket",
		Binder: ez.BindJSON,
		Auth:   true,
		UseTx:  true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *ticketIn) (*domain.Message, error) {
			uid := ez.UserID(c)
			admin, err := first[domain.User](tx.Where("role = ? AND is_active = ? AND id <> ?", domain.RoleAdmin, true, uid).
				Order("created_at ASC"), errNoSupportAgent)
			if err != nil {
				return nil, err
			}
			typ := in.Type
			if typ == "" {
				typ = domain.MessageSupport
			}
			msg := &domain.Message{
				SenderID: uid, ReceiverID: admin.ID, Type: typ,
				Subject: in.Subject, Content: in.Content,
			}
			if err := tx.Create(msg).Error; err != nil {
				return nil, err
			}
			notifyQuietly(c.Request.Context(), tx, m.d.Log, &domain.Notification{
				UserID:    admin.ID,
				Type:      domain.NotificationMessage,
				TitleAr:   "تذكرة دعم جديدة",
				TitleEn:   "New support ticket",
				MessageAr: in.Subject,
				MessageEn: in.Subject,
				Data:      map[string]any{"messageId": msg.ID, "senderId": uid, "ticketType": string(typ)},
			})
			return first[domain.Message](withParties(tx).Where("id = ?", msg.ID), errMessageNotFound)
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodPut,
		Path:   "/messages/:id/read",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			msg, err := first[domain.Message](tx.Where("id = ?", id), errMessageNotFound)
			if err != nil {
				return nil, err
			}
			if msg.ReceiverID != ez.UserID(c) {
				return nil, domain.Forbidden("only the receiver can mark a message as read")
			}
			if err := tx.Model(msg).Update("is_read", true).Error; err != nil {
				return nil, err
			}
			return gin.H{"id": id, "isRead": true}, nil
		},
	})

	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/messages/unread/count",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			var n int64
			if err := tx.Model(&domain.Message{}).
				Where("receiver_id = ? AND is_read = ?", ez.UserID(c), false).Count(&n).Error; err != nil {
				return nil, err
			}
			return gin.H{"unreadCount": n}, nil
		},
	})
}
