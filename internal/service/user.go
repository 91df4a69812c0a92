package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tyhnhzi/webchat/internal/models"
	"github.com/tyhnhzi/webchat/internal/relay"
	"github.com/tyhnhzi/webchat/internal/store"
)

// UserService 封装用户加入与资料相关的业务逻辑。
type UserService struct {
	primary *store.Primary
	mirror  *store.Mirror
	hub     Broadcaster
	relay   relay.Notifier
}

func NewUserService(primary *store.Primary, mirror *store.Mirror, hub Broadcaster, notifier relay.Notifier) *UserService {
	return &UserService{primary: primary, mirror: mirror, hub: hub, relay: notifier}
}

// Join 按用户名幂等登记用户，重复加入只刷新 ip 和时间。
func (s *UserService) Join(username, ip string) error {
	if username == "" {
		return ErrNoIdentity
	}
	now := time.Now()
	if err := s.primary.UpsertUser(username, ip, now); err != nil {
		return err
	}
	s.mirror.SaveUser(models.User{Username: username, IP: ip, JoinedAt: now})
	s.relay.NotifyActivity("user", relay.Activity{Username: username, IP: ip})
	return nil
}

// ProfileDTO 是对外输出的用户资料，附带该用户的留言数。
type ProfileDTO struct {
	Username     string    `json:"username"`
	IP           string    `json:"ip"`
	JoinedAt     time.Time `json:"joinedAt"`
	Avatar       string    `json:"avatar,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Status       string    `json:"status"`
	MessageCount int64     `json:"messageCount"`
}

// Profile 读取用户资料和留言计数。
func (s *UserService) Profile(username string) (*ProfileDTO, error) {
	user, err := s.primary.GetUser(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	count, err := s.primary.CountMessagesBy(username)
	if err != nil {
		return nil, err
	}
	return &ProfileDTO{
		Username:     user.Username,
		IP:           user.IP,
		JoinedAt:     user.JoinedAt,
		Avatar:       user.Avatar,
		Bio:          user.Bio,
		Status:       user.Status,
		MessageCount: count,
	}, nil
}

// UpdateProfile 更新资料并向所有连接广播 profile-updated。
func (s *UserService) UpdateProfile(username, avatar, bio, status string) error {
	if _, err := s.primary.UpdateProfile(username, avatar, bio, status); err != nil {
		return err
	}
	s.hub.BroadcastEvent("profile-updated", map[string]interface{}{
		"username": username,
		"avatar":   avatar,
		"bio":      bio,
		"status":   status,
	})
	return nil
}

// ListUsers 返回全部注册过的用户。
func (s *UserService) ListUsers() ([]models.User, error) {
	return s.primary.ListUsers()
}
