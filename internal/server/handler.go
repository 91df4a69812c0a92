package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tyhnhzi/webchat/internal/config"
	"github.com/tyhnhzi/webchat/internal/service"
	"github.com/tyhnhzi/webchat/internal/tempfile"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	msgSvc    *service.MessageService
	userSvc   *service.UserService
	notifSvc  *service.NotificationService
	tmpStore  *tempfile.Store
	hub       service.Broadcaster
	publicDir string
}

func NewHandler(msgSvc *service.MessageService, userSvc *service.UserService, notifSvc *service.NotificationService, tmpStore *tempfile.Store, hub service.Broadcaster, publicDir string) *Handler {
	return &Handler{msgSvc: msgSvc, userSvc: userSvc, notifSvc: notifSvc, tmpStore: tmpStore, hub: hub, publicDir: publicDir}
}

// ListMessages 处理 GET /api/messages，可选 month 过滤。
func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.msgSvc.List(c.Query("month"))
	if err != nil {
		log.Error().Err(err).Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// ListMonths 处理 GET /api/months。
func (h *Handler) ListMonths(c *gin.Context) {
	months, err := h.msgSvc.Months()
	if err != nil {
		log.Error().Err(err).Msg("list months")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list months"})
		return
	}
	c.JSON(http.StatusOK, months)
}

// RegisterUser 处理 POST /api/user，按用户名幂等登记。
func (h *Handler) RegisterUser(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.userSvc.Join(req.Username, c.ClientIP()); err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("register user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RevokeMessage 处理 POST /api/message/:id/revoke，拒绝时返回 403。
func (h *Handler) RevokeMessage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.msgSvc.Revoke(uint(id), req.Username); err != nil {
		if errors.Is(err, service.ErrRevokeDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Can only revoke your own message"})
			return
		}
		log.Error().Err(err).Int("message_id", id).Msg("revoke message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// 各上传路由的大小上限。
const (
	maxImageSize = 50 << 20  // 50MB
	maxVideoSize = 200 << 20 // 200MB
	maxVoiceSize = 50 << 20  // 50MB
)

// UploadImage 处理 POST /api/upload/temp，仅接受 image/*，上限 50MB。
func (h *Handler) UploadImage(c *gin.Context) {
	h.upload(c, "image/", maxImageSize, "Only image files are allowed")
}

// UploadVideo 处理 POST /api/upload/video，仅接受 video/*，上限 200MB。
func (h *Handler) UploadVideo(c *gin.Context) {
	h.upload(c, "video/", maxVideoSize, "File must be a video")
}

// UploadVoice 处理 POST /api/upload/voice，仅接受 audio/*，上限 50MB。
func (h *Handler) UploadVoice(c *gin.Context) {
	h.upload(c, "audio/", maxVoiceSize, "File must be an audio file")
}

// upload 完成校验、落盘、登记三步。校验失败发生在任何持久化之前。
func (h *Handler) upload(c *gin.Context, mimePrefix string, maxSize int64, mimeErr string) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Size > maxSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}
	mime := file.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, mimePrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": mimeErr})
		return
	}

	now := time.Now()
	filename := fmt.Sprintf("%d-%s", now.UnixMilli(), filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, filepath.Join(h.tmpStore.Dir(), filename)); err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("save upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	tf, err := h.tmpStore.Register(filename, file.Filename, mime, file.Size, c.PostForm("username"), now)
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("register temp file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register file"})
		return
	}

	resp := gin.H{
		"filename":   tf.Filename,
		"url":        "/temp/" + tf.Filename,
		"expiresAt":  tf.ExpiresAt,
		"expiryDays": config.TempFileDays,
		"size":       tf.Size,
	}
	if d, err := strconv.Atoi(c.PostForm("duration")); err == nil && d > 0 {
		resp["duration"] = d
	}
	c.JSON(http.StatusOK, resp)
}

// ListNotifications 处理 GET /api/notifications/:username。
func (h *Handler) ListNotifications(c *gin.Context) {
	ns, err := h.notifSvc.List(c.Param("username"))
	if err != nil {
		log.Error().Err(err).Msg("list notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, ns)
}

// MarkNotificationRead 处理 POST /api/notification/:id/read。
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	if err := h.notifSvc.MarkRead(uint(id)); err != nil {
		log.Error().Err(err).Int("notification_id", id).Msg("mark notification read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendNotification 处理 POST /api/notification/send。
func (h *Handler) SendNotification(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Message  string `json:"message"`
		Type     string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and message required"})
		return
	}
	n, err := h.notifSvc.Send(req.Username, req.Message, req.Type)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("send notification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send notification"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notificationId": n.ID})
}

// GetProfile 处理 GET /api/profile/:username。
func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.userSvc.Profile(c.Param("username"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Error().Err(err).Msg("get profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProfile 处理 PUT /api/profile/:username 并广播 profile-updated。
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req struct {
		Avatar string `json:"avatar"`
		Bio    string `json:"bio"`
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.userSvc.UpdateProfile(c.Param("username"), req.Avatar, req.Bio, req.Status); err != nil {
		log.Error().Err(err).Msg("update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListUsers 处理 GET /api/users。
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.userSvc.ListUsers()
	if err != nil {
		log.Error().Err(err).Msg("list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) backgroundPath() string {
	return filepath.Join(h.publicDir, "background.txt")
}

// UploadBackground 处理 POST /api/background/upload，保存并广播 background-updated。
func (h *Handler) UploadBackground(c *gin.Context) {
	var req struct {
		ImageData string `json:"imageData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ImageData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image data provided"})
		return
	}
	if err := os.WriteFile(h.backgroundPath(), []byte(req.ImageData), 0o644); err != nil {
		log.Error().Err(err).Msg("save background")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save background"})
		return
	}
	h.hub.BroadcastEvent("background-updated", gin.H{"imageData": req.ImageData})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveBackground 处理 DELETE /api/background/remove，删除并广播 background-removed。
func (h *Handler) RemoveBackground(c *gin.Context) {
	if err := os.Remove(h.backgroundPath()); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Msg("remove background")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete background"})
		return
	}
	h.hub.BroadcastEvent("background-removed", nil)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetBackground 处理 GET /api/background，未设置时返回 null。
func (h *Handler) GetBackground(c *gin.Context) {
	data, err := os.ReadFile(h.backgroundPath())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"imageData": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageData": string(data)})
}
