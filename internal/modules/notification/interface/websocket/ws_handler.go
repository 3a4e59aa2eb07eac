package websocket

import (
	"net/http"
	"time"

	"SchoolLink/internal/modules/notification/application/service"
	"SchoolLink/pkg/util/myjwt"
	"SchoolLink/pkg/ws"
	"SchoolLink/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const readWait = 60 * time.Second

type WsHandler struct {
	hub     *ws.Hub
	tracker service.StatusTracker
}

func NewWsHandler(hub *ws.Hub, tracker service.StatusTracker) *WsHandler {
	return &WsHandler{hub: hub, tracker: tracker}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Connect 浏览器 WebSocket 不能带自定义头，token 走 query 参数，不经过 JWT 中间件
func (h *WsHandler) Connect(c *gin.Context) {
	clientID := c.Query("client_id")
	token := c.Query("token")
	if clientID == "" || token == "" {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	claims, err := myjwt.ParseToken(token)
	if err != nil || claims.Uuid != clientID {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	// 解析不到学校的账号不允许建立连接；顺便拿到首帧的未读数
	unread, err := h.tracker.GetUnreadCount(c.Request.Context(), clientID)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Warn("ws upgrade failed", zap.String("account_id", clientID), zap.Error(err))
		return
	}
	client := ws.NewClient(clientID, conn)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	go client.WritePump()
	_ = h.hub.SendJSON(clientID, map[string]interface{}{
		"type":  "connected",
		"count": unread,
	})

	conn.SetReadLimit(4 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	// 只推不收，读循环用于感知断开和处理 pong
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
	}
}
