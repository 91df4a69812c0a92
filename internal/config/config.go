package config

import (
	"errors"
	"os"
	"time"
)

type Config struct {
	Port           string
	Env            string
	DatabasePath   string
	MongoURI       string
	TempDir        string
	PublicDir      string
	TelegramToken  string
	TelegramChatID string
}

// 临时文件生命周期与清扫节奏，留言板全局固定。
const (
	TempFileTTL   = 7 * 24 * time.Hour
	TempFileDays  = 7
	SweepInterval = time.Hour
)

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func Load() Config {
	return Config{
		Port:           getenv("APP_PORT", "5555"),
		Env:            getenv("APP_ENV", "dev"),
		DatabasePath:   getenv("DATABASE_PATH", "messages.db"),
		MongoURI:       getenv("MONGO_URI", ""),
		TempDir:        getenv("TEMP_DIR", "temp"),
		PublicDir:      getenv("PUBLIC_DIR", "public"),
		TelegramToken:  getenv("TELEGRAM_TOKEN", ""),
		TelegramChatID: getenv("TELEGRAM_CHAT_ID", ""),
	}
}

// Validate 检查启动必需项。MongoDB 与 Telegram 均为可选的旁路能力，允许为空。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("port is required")
	}
	if cfg.DatabasePath == "" {
		return errors.New("database path is required")
	}
	if cfg.TempDir == "" {
		return errors.New("temp dir is required")
	}
	return nil
}
