package intake

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"birdrescue-server-go/src/core/utils"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	subscriberBuf  = 8
	maxInboundSize = 512
)

// StatusHub 把流程状态变化推送给同一会话的 websocket 订阅者
type StatusHub struct {
	upgrader websocket.Upgrader
	logger   *utils.TaggedLogger

	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

// NewStatusHub 创建状态推送中心
func NewStatusHub(logger *utils.Logger) *StatusHub {
	return &StatusHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源的连接
			},
		},
		logger: logger.WithTag("status"),
		subs:   make(map[string]map[chan []byte]struct{}),
	}
}

// Publish 实现 Notifier 接口。订阅者处理不过来时丢弃该事件。
func (h *StatusHub) Publish(sessionID string, event StatusEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("状态事件序列化失败", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- data:
		default:
		}
	}
}

func (h *StatusHub) subscribe(sessionID string) chan []byte {
	ch := make(chan []byte, subscriberBuf)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan []byte]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *StatusHub) unsubscribe(sessionID string, ch chan []byte) {
	h.mu.Lock()
	delete(h.subs[sessionID], ch)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
	h.mu.Unlock()
}

// Subscribers 当前会话的订阅者数量
func (h *StatusHub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

// Serve 升级连接并持续推送，initial 为连接建立后立即发送的当前状态
func (h *StatusHub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, initial StatusEvent) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket升级失败", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	ch := h.subscribe(sessionID)
	defer h.unsubscribe(sessionID, ch)

	// 读循环只用于处理 pong 和检测断开
	done := make(chan struct{})
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if data, err := json.Marshal(initial); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case data := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
