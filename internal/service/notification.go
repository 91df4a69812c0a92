package service

import (
	"time"

	"github.com/tyhnhzi/webchat/internal/models"
	"github.com/tyhnhzi/webchat/internal/store"
)

// NotificationService 处理站内通知：主库落地、备份、广播。
// 广播发给全部连接，由客户端按收件人自行过滤。
type NotificationService struct {
	primary *store.Primary
	mirror  *store.Mirror
	hub     Broadcaster
}

func NewNotificationService(primary *store.Primary, mirror *store.Mirror, hub Broadcaster) *NotificationService {
	return &NotificationService{primary: primary, mirror: mirror, hub: hub}
}

// Send 持久化一条通知并广播 notification-received。
func (s *NotificationService) Send(username, message, typ string) (*models.Notification, error) {
	if username == "" || message == "" {
		return nil, ErrEmptyContent
	}
	if typ == "" {
		typ = "info"
	}
	n := models.Notification{
		Username:  username,
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now(),
	}
	if err := s.primary.CreateNotification(&n); err != nil {
		return nil, err
	}
	s.mirror.SaveNotification(n)
	s.hub.BroadcastEvent("notification-received", n)
	return &n, nil
}

// MarkRead 把通知置为已读。重复调用幂等，不广播。
func (s *NotificationService) MarkRead(id uint) error {
	if err := s.primary.MarkNotificationRead(id); err != nil {
		return err
	}
	s.mirror.MarkNotificationRead(id)
	return nil
}

// List 返回某用户最近 50 条通知。
func (s *NotificationService) List(username string) ([]models.Notification, error) {
	return s.primary.ListNotifications(username)
}
