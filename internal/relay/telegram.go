// Package relay 把站内活动转发到外部通知通道（Telegram）。
// 转发是 fire-and-forget：没有返回值，失败只记日志，任何调用方都不等待结果。
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

// Activity 是一次需要转发的站内活动。
type Activity struct {
	Username string
	IP       string
}

// Notifier 是服务层看到的转发接口。kind 目前取 "message" 或 "user"。
type Notifier interface {
	NotifyActivity(kind string, a Activity)
}

// Nop 在未配置外部通道时使用。
type Nop struct{}

func (Nop) NotifyActivity(string, Activity) {}

// Telegram 通过 Bot API 投递活动摘要。
type Telegram struct {
	bot    *bot.Bot
	chatID string
}

const sendTimeout = 10 * time.Second

// NewTelegram 构造转发器。token 或 chatID 为空时返回 Nop。
func NewTelegram(token, chatID string) (Notifier, error) {
	if token == "" || chatID == "" {
		return Nop{}, nil
	}
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

// NotifyActivity 在后台投递一条摘要，失败只记日志。
func (t *Telegram) NotifyActivity(kind string, a Activity) {
	text := render(kind, a)
	if text == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    t.chatID,
			Text:      text,
			ParseMode: tgmodels.ParseModeHTML,
		})
		if err != nil {
			log.Warn().Err(err).Str("kind", kind).Msg("telegram notify failed")
		}
	}()
}

func render(kind string, a Activity) string {
	when := time.Now().Format("15:04:05 02/01/2006")
	switch kind {
	case "message":
		return fmt.Sprintf("📨 <b>Tin nhắn mới</b>\n👤 Người dùng: <tg-spoiler><code>%s</code></tg-spoiler>\n🌐 IP: <tg-spoiler>%s</tg-spoiler>\n⏰ Lúc: %s", a.Username, a.IP, when)
	case "user":
		return fmt.Sprintf("👋 <b>Người dùng mới</b>\n👤 Tên: <tg-spoiler><code>%s</code></tg-spoiler>\n🌐 IP: <tg-spoiler>%s</tg-spoiler>\n⏰ Lúc: %s", a.Username, a.IP, when)
	}
	return ""
}
