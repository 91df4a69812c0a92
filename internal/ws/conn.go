package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tyhnhzi/webchat/internal/models"
	"github.com/tyhnhzi/webchat/internal/service"
)

// Client 的 username 只在 readPump goroutine 里读写；hub 通过 join 消息
// 拿到身份，不碰这个字段。done 由 hub 关闭，通知 writePump 收尾。
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	username string
	ip       string
	msgSvc   *service.MessageService
	userSvc  *service.UserService
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inbound 是 client→server 事件信封，data 延迟到分发时再解。
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// payload 覆盖全部入站事件的字段并集。
type payload struct {
	Username  string `json:"username"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageUrl"`
	VideoURL  string `json:"videoUrl"`
	VoiceURL  string `json:"voiceUrl"`
	Duration  int    `json:"duration"`
	FileSize  int64  `json:"fileSize"`
	MessageID uint   `json:"messageId"`
}

func Serve(h *Hub, msgSvc *service.MessageService, userSvc *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{
			hub:     h,
			conn:    conn,
			send:    make(chan []byte, 256),
			done:    make(chan struct{}),
			ip:      c.ClientIP(),
			msgSvc:  msgSvc,
			userSvc: userSvc,
		}
		h.register <- client

		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		var p payload
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &p); err != nil {
				continue
			}
		}
		c.dispatch(in.Event, p)
	}
}

// dispatch 按提交顺序处理单个连接的入站事件。
func (c *Client) dispatch(event string, p payload) {
	switch event {
	case "join":
		if p.Username == "" {
			return
		}
		if err := c.userSvc.Join(p.Username, c.ip); err != nil {
			log.Error().Err(err).Str("username", p.Username).Msg("join upsert")
		}
		// 身份至多确立一次，随 join 消息进 hub。
		if c.username == "" {
			c.username = p.Username
			c.hub.joined <- join{client: c, username: p.Username}
		}
	case "message":
		c.ingest(p.Content, models.TypeText, p)
	case "image-message":
		c.ingest(p.ImageURL, models.TypeImage, p)
	case "video-message":
		c.ingest(p.VideoURL, models.TypeVideo, p)
	case "voice-message":
		c.ingest(p.VoiceURL, models.TypeVoice, p)
	case "revoke-message":
		if err := c.msgSvc.Revoke(p.MessageID, p.Username); err != nil {
			// 与 HTTP 入口一致：拒绝时给出显式错误，不再静默吞掉。
			if errors.Is(err, service.ErrRevokeDenied) {
				c.enqueue("error", map[string]interface{}{"error": err.Error(), "messageId": p.MessageID})
				return
			}
			log.Error().Err(err).Uint("message_id", p.MessageID).Msg("revoke")
		}
	}
}

// ingest 走统一的接入管线。实时路径上校验或落库失败只记日志，不回发错误。
func (c *Client) ingest(content, typ string, p payload) {
	if c.username == "" {
		log.Warn().Str("type", typ).Msg("message before join, dropped")
		return
	}
	_, err := c.msgSvc.Ingest(service.IngestInput{
		Username: c.username,
		Content:  content,
		Type:     typ,
		IP:       c.ip,
		Duration: p.Duration,
		FileSize: p.FileSize,
	})
	if err != nil {
		log.Warn().Err(err).Str("username", c.username).Str("type", typ).Msg("ingest dropped")
	}
}

// enqueue 只给当前连接投递一个事件。send 通道从不关闭，
// 已被踢掉或积压满的连接在这里只是丢弃，不会崩。
func (c *Client) enqueue(event string, data interface{}) {
	b, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
