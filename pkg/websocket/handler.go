package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"school-im/config"
	"school-im/internal/broker"
	"school-im/internal/repository"
	"school-im/internal/service"
	"school-im/pkg/jwt"
	"school-im/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// Handler WebSocket接入处理器
type Handler struct {
	manager  *Manager
	jwtSvc   *jwt.JWTService
	chat     *service.ChatService
	userRepo *repository.UserRepository
	cfg      config.WebSocketConfig
}

// NewHandler 创建WebSocket处理器
func NewHandler(manager *Manager, jwtSvc *jwt.JWTService, chat *service.ChatService, userRepo *repository.UserRepository, cfg config.WebSocketConfig) *Handler {
	return &Handler{
		manager:  manager,
		jwtSvc:   jwtSvc,
		chat:     chat,
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// Serve Gin路由处理函数
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Sec-WebSocket-Protocol"), "Bearer ")
	}
	if token == "" {
		response.Unauthorized(c, "缺少token")
		return
	}

	claims, err := h.jwtSvc.ValidateToken(token)
	if err != nil {
		response.Unauthorized(c, "token无效或已过期")
		return
	}
	userID64, _ := strconv.ParseUint(claims.Subject, 10, 32)
	if userID64 == 0 {
		response.Unauthorized(c, "token无效")
		return
	}
	userID := uint(userID64)

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		return
	}

	client := NewClient(userID, conn)
	h.manager.AddClient(userID, client)

	ctx := context.Background()

	// 连接建立后置为在线：数据库状态 + 缓存TTL键
	_ = h.userRepo.UpdateStatus(userID, "online")
	_ = h.chat.Heartbeat(ctx, userID)

	// 每个连接持有的输入状态订阅，断开时统一关闭
	typingSubs := make(map[string]*broker.Subscription)

	defer func() {
		for _, sub := range typingSubs {
			sub.Close()
		}
		h.manager.RemoveClient(userID, client)

		// 连接关闭后置为离线
		_ = h.userRepo.UpdateStatus(userID, "offline")
		_ = h.chat.Disconnect(ctx, userID)
	}()

	// 启动写协程 + 定时发送ping心跳，连接终止后退出
	go func() {
		ticker := time.NewTicker(h.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg := <-client.Send:
				_ = conn.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					_ = conn.Close()
					return
				}
			case <-client.Done():
				return
			}
		}
	}()

	// 读协程（接收心跳/输入状态/已读回执）。若超时未收到任何读事件则断开
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(appData string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		var msg map[string]interface{}
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		t, ok := msg["type"].(string)
		if !ok {
			continue
		}

		switch t {
		case "heartbeat":
			// 刷新用户在线状态（延长TTL）
			_ = h.chat.Heartbeat(ctx, userID)
			_ = h.userRepo.UpdateStatus(userID, "online")

		case "typing":
			roomID, _ := msg["room_id"].(string)
			isTyping, _ := msg["is_typing"].(bool)
			if roomID != "" {
				_ = h.chat.PublishTyping(userID, roomID, isTyping)
			}

		case "watch":
			// 订阅聊天室的输入状态事件（需为成员）
			roomID, _ := msg["room_id"].(string)
			if roomID == "" {
				continue
			}
			if _, ok := typingSubs[roomID]; ok {
				continue
			}
			sub, err := h.chat.SubscribeTyping(userID, roomID)
			if err != nil {
				continue
			}
			typingSubs[roomID] = sub
			go h.forwardTyping(client, userID, sub)

		case "ack_read":
			var msgID string
			switch v := msg["msg_id"].(type) {
			case float64:
				msgID = strconv.FormatUint(uint64(v), 10)
			case string:
				msgID = v
			}
			if msgID != "" {
				_ = h.chat.MarkMessageRead(ctx, userID, msgID)
			}
		}
	}

}

// forwardTyping 将聊天室输入状态事件转发给客户端，跳过自己的事件
// 订阅关闭后随通道耗尽退出，迟到事件由deliver按终止标记丢弃
func (h *Handler) forwardTyping(client *Client, userID uint, sub *broker.Subscription) {
	for payload := range sub.C() {
		event, ok := payload.(broker.TypingEvent)
		if !ok || event.UserID == userID {
			continue
		}
		data, err := json.Marshal(map[string]interface{}{
			"type":      "typing",
			"room_id":   event.RoomID,
			"user_id":   event.UserID,
			"is_typing": event.IsTyping,
		})
		if err != nil {
			continue
		}
		client.deliver(data)
	}
}
