package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/tyhnhzi/webchat/internal/config"
	"github.com/tyhnhzi/webchat/internal/metrics"
	"github.com/tyhnhzi/webchat/internal/mw"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, h *Handler, wsServe gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	// 控制单个 IP+路由的速率，上传和留言接口都在保护范围内。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	api.GET("/messages", h.ListMessages)
	api.GET("/months", h.ListMonths)
	api.POST("/user", h.RegisterUser)
	api.POST("/message/:id/revoke", h.RevokeMessage)

	api.POST("/upload/temp", h.UploadImage)
	api.POST("/upload/video", h.UploadVideo)
	api.POST("/upload/voice", h.UploadVoice)

	api.GET("/notifications/:username", h.ListNotifications)
	api.POST("/notification/:id/read", h.MarkNotificationRead)
	api.POST("/notification/send", h.SendNotification)

	api.POST("/background/upload", h.UploadBackground)
	api.DELETE("/background/remove", h.RemoveBackground)
	api.GET("/background", h.GetBackground)

	api.GET("/profile/:username", h.GetProfile)
	api.PUT("/profile/:username", h.UpdateProfile)
	api.GET("/users", h.ListUsers)

	r.GET("/ws", wsServe)

	// 上传文件直接按文件名静态回源。
	r.Static("/temp", cfg.TempDir)

	// 前端静态资源走 NoRoute，避免与 API 路由冲突。
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusNotFound)
			return
		}
		rel := strings.TrimPrefix(filepath.Clean(c.Request.URL.Path), "/")
		if strings.HasPrefix(rel, "api/") || rel == "metrics" || rel == "healthz" || strings.HasPrefix(rel, "ws") {
			c.Status(http.StatusNotFound)
			return
		}
		if rel == "" {
			rel = "index.html"
		}
		target := filepath.Join(cfg.PublicDir, rel)
		if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
			c.File(target)
			return
		}
		if strings.Contains(rel, ".") {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(filepath.Join(cfg.PublicDir, "index.html"))
	})
	return r
}
