package ws

import (
	"encoding/json"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/tyhnhzi/webchat/internal/metrics"
)

// Event 是 WebSocket 双向统一的事件信封。
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Presence 是在线名册中的一项。名册按连接计数：同一用户开两个连接就占两个名额。
type Presence struct {
	Username string `json:"username"`
	IP       string `json:"ip"`
}

// join 把连接确立的身份带进 hub，hub 之后不再读 Client 的任何可变字段。
type join struct {
	client   *Client
	username string
}

// Hub 管理全部连接与在线名册。run goroutine 独占 clients map（值为用户名，
// join 之前为空串），其余代码只通过 channel 与之交互，进程启动时名册为空。
type Hub struct {
	clients    map[*Client]string
	register   chan *Client
	joined     chan join
	unregister chan *Client
	broadcast  chan []byte
	online     int32
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]string),
		register:   make(chan *Client),
		joined:     make(chan join),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

// Run 启动事件循环，应在独立 goroutine 中运行。
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = ""
			metrics.WsConnections.Inc()
		case j := <-h.joined:
			// join 之后连接才进入名册；user-joined 只发给其他连接。
			if _, ok := h.clients[j.client]; ok {
				h.clients[j.client] = j.username
				atomic.StoreInt32(&h.online, int32(h.countJoined()))
				if b, err := json.Marshal(Event{Event: "user-joined", Data: map[string]interface{}{"username": j.username}}); err == nil {
					for c := range h.clients {
						if c == j.client {
							continue
						}
						h.send(c, b)
					}
				}
				h.broadcastRoster()
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.done)
				metrics.WsConnections.Dec()
			}
			atomic.StoreInt32(&h.online, int32(h.countJoined()))
			h.broadcastRoster()
		case msg := <-h.broadcast:
			for c := range h.clients {
				h.send(c, msg)
			}
		}
	}
}

// send 尝试投递；发不进去说明客户端写入积压，直接踢掉。
// send 通道从不关闭，踢人只关 done，连接收尾由 writePump 完成。
func (h *Hub) send(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.done)
		metrics.WsConnections.Dec()
	}
}

func (h *Hub) countJoined() int {
	n := 0
	for _, name := range h.clients {
		if name != "" {
			n++
		}
	}
	return n
}

// broadcastRoster 把完整名册广播给所有连接。
func (h *Hub) broadcastRoster() {
	roster := make([]Presence, 0, len(h.clients))
	for c, name := range h.clients {
		if name == "" {
			continue
		}
		roster = append(roster, Presence{Username: name, IP: c.ip})
	}
	b, err := json.Marshal(Event{Event: "users-online", Data: roster})
	if err != nil {
		return
	}
	for c := range h.clients {
		h.send(c, b)
	}
}

// BroadcastEvent 把事件广播给全部连接，服务层通过它完成各类 server→client 推送。
func (h *Hub) BroadcastEvent(event string, data interface{}) {
	b, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal broadcast event")
		return
	}
	h.broadcast <- b
}

// Online 返回当前名册大小。
func (h *Hub) Online() int { return int(atomic.LoadInt32(&h.online)) }
