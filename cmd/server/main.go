package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tyhnhzi/webchat/internal/config"
	clog "github.com/tyhnhzi/webchat/internal/log"
	"github.com/tyhnhzi/webchat/internal/relay"
	"github.com/tyhnhzi/webchat/internal/server"
	"github.com/tyhnhzi/webchat/internal/service"
	"github.com/tyhnhzi/webchat/internal/store"
	"github.com/tyhnhzi/webchat/internal/tempfile"
	"github.com/tyhnhzi/webchat/internal/ws"
)

func main() {
	// main 负责加载配置、初始化日志、连接两个存储、启动 hub 与清扫任务，
	// 最后挂起 Gin 服务并处理优雅停机。
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	gdb, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("primary open")
	}
	if err := store.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("primary migrate")
	}
	primary := store.NewPrimary(gdb)

	// 备份库连不上不致命：它本来就是尽力而为的。
	var mirror *store.Mirror
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mirror, err = store.ConnectMirror(ctx, cfg.MongoURI)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("mirror connect failed, running without mirror")
			mirror = nil
		}
	}

	notifier, err := relay.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("telegram relay init failed, disabled")
		notifier = relay.Nop{}
	}

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.TempDir).Msg("temp dir")
	}

	hub := ws.NewHub()
	go hub.Run()

	msgSvc := service.NewMessageService(primary, mirror, hub, notifier)
	userSvc := service.NewUserService(primary, mirror, hub, notifier)
	notifSvc := service.NewNotificationService(primary, mirror, hub)
	tmpStore := tempfile.NewStore(primary, mirror, cfg.TempDir, config.TempFileTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go tmpStore.Sweep(ctx, config.SweepInterval)

	h := server.NewHandler(msgSvc, userSvc, notifSvc, tmpStore, hub, cfg.PublicDir)
	r := server.SetupRouter(cfg, h, ws.Serve(hub, msgSvc, userSvc))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := mirror.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("mirror close")
	}
}
