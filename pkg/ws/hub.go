package ws

import (
	"encoding/json"
	"sync"
	"time"

	"SchoolLink/pkg/zlog"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 50 * time.Second
)

// Hub 按账号维护在线连接，一个账号可以有多个终端
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	if c == nil || c.accountID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.accountID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.accountID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	if c == nil || c.accountID == "" {
		return
	}
	h.mu.Lock()
	set := h.clients[c.accountID]
	if set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.accountID)
		}
	}
	h.mu.Unlock()
	c.Close()
}

// Online 账号当前是否有连接
func (h *Hub) Online(accountID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID]) > 0
}

func (h *Hub) Send(accountID string, payload []byte) bool {
	if accountID == "" || len(payload) == 0 {
		return false
	}

	h.mu.RLock()
	set := h.clients[accountID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return false
	}

	ok := false
	for _, c := range targets {
		if c.trySend(payload) {
			ok = true
			continue
		}
		// 发送缓冲已满，视为慢连接直接踢掉
		h.Unregister(c)
	}
	return ok
}

func (h *Hub) SendJSON(accountID string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Send(accountID, b)
	return nil
}

// SendJSONToMany 返回实际送达的账号数
func (h *Hub) SendJSONToMany(accountIDs []string, v interface{}) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, id := range accountIDs {
		if h.Send(id, b) {
			delivered++
		}
	}
	return delivered, nil
}

type Client struct {
	accountID string
	conn      *websocket.Conn
	send      chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(accountID string, conn *websocket.Conn) *Client {
	return &Client{
		accountID: accountID,
		conn:      conn,
		send:      make(chan []byte, 64),
	}
}

func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zlog.Warn("ws write failed", zap.String("account_id", c.accountID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
