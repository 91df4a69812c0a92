package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tyhnhzi/webchat/internal/metrics"
	"github.com/tyhnhzi/webchat/internal/models"
	"github.com/tyhnhzi/webchat/internal/relay"
	"github.com/tyhnhzi/webchat/internal/store"
)

// Broadcaster 是服务层对实时推送的全部依赖，由 ws.Hub 实现。
type Broadcaster interface {
	BroadcastEvent(event string, data interface{})
}

// MessageService 实现消息接入管线：校验、打戳、落主库、异步备份、广播、通知。
type MessageService struct {
	primary *store.Primary
	mirror  *store.Mirror
	hub     Broadcaster
	relay   relay.Notifier
}

func NewMessageService(primary *store.Primary, mirror *store.Mirror, hub Broadcaster, notifier relay.Notifier) *MessageService {
	return &MessageService{primary: primary, mirror: mirror, hub: hub, relay: notifier}
}

// IngestInput 是一条入站消息，四种媒体类型共用同一管线。
type IngestInput struct {
	Username string
	Content  string
	Type     string
	IP       string
	Duration int
	FileSize int64
}

// Ingest 处理一条入站消息。主库写入成功是后续一切可见性的唯一闸门：
// 失败则整条消息丢弃，只留服务端日志；成功后备份、广播、通知都不再回头。
func (s *MessageService) Ingest(in IngestInput) (*models.Message, error) {
	if in.Username == "" {
		return nil, ErrNoIdentity
	}
	if in.Content == "" {
		return nil, ErrEmptyContent
	}
	if in.Type == "" {
		in.Type = models.TypeText
	}

	now := time.Now()
	msg := models.Message{
		Username:  in.Username,
		Content:   in.Content,
		Type:      in.Type,
		IP:        in.IP,
		Timestamp: now,
		Month:     MonthBucket(now),
		Duration:  in.Duration,
		FileSize:  in.FileSize,
	}
	if err := s.primary.CreateMessage(&msg); err != nil {
		log.Error().Err(err).Str("username", in.Username).Str("type", in.Type).Msg("primary write failed, message dropped")
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(msg.Type).Inc()

	s.mirror.SaveMessage(msg)
	s.hub.BroadcastEvent("new-message", msg)
	// 通知事件里文本类型叫 "message"，前端按这个名字分流。
	notifType := msg.Type
	if notifType == models.TypeText {
		notifType = "message"
	}
	s.hub.BroadcastEvent("message-notification", map[string]interface{}{
		"from":      msg.Username,
		"message":   notificationLine(msg),
		"type":      notifType,
		"timestamp": msg.Timestamp,
	})
	if msg.Type == models.TypeText {
		s.relay.NotifyActivity("message", relay.Activity{Username: msg.Username, IP: msg.IP})
	}
	return &msg, nil
}

// notificationLine 生成媒体类型对应的短通知文案，文本消息截取前 50 个字符。
func notificationLine(msg models.Message) string {
	switch msg.Type {
	case models.TypeImage:
		return fmt.Sprintf("🖼️ %s đã gửi ảnh", msg.Username)
	case models.TypeVideo:
		return fmt.Sprintf("🎥 %s đã gửi video", msg.Username)
	case models.TypeVoice:
		return fmt.Sprintf("🎤 %s đã gửi tin nhắn thoại", msg.Username)
	default:
		return fmt.Sprintf("💬 %s: %s", msg.Username, excerpt(msg.Content, 50))
	}
}

func excerpt(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

// Revoke 用单条条件更新完成鉴权和软删除；0 行受影响即拒绝，两种接入方式
// （HTTP 与 WS）拿到同一个错误，不再有静默 no-op 的分支。
func (s *MessageService) Revoke(id uint, username string) error {
	if username == "" {
		return ErrRevokeDenied
	}
	now := time.Now()
	rows, err := s.primary.RevokeMessage(id, username, now)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRevokeDenied
	}
	metrics.MessagesRevoked.Inc()
	s.mirror.RevokeMessage(id, username, now)
	s.hub.BroadcastEvent("message-deleted", map[string]interface{}{"messageId": id})
	return nil
}

// List 返回未撤回的消息，可按月份分组过滤。
func (s *MessageService) List(month string) ([]models.Message, error) {
	return s.primary.ListMessages(month)
}

// Months 返回出现过的全部月份分组。
func (s *MessageService) Months() ([]string, error) {
	return s.primary.ListMonths()
}
