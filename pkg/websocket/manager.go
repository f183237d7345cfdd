package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"school-im/internal/broker"
	"school-im/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client 代表一个WebSocket连接的用户
// UserID: 用户ID
// Conn: WebSocket连接
// Send: 发送消息的通道，只写不close

type Client struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte

	done     chan struct{}
	shutOnce sync.Once
}

// NewClient 创建客户端连接
func NewClient(userID uint, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// Done 连接终止通知，连接被移除或被新连接替换后关闭
func (c *Client) Done() <-chan struct{} { return c.done }

// shutdown 标记连接终止
// Send通道从不close：转发协程可能还持有引用，晚到的投递走done分支被丢弃
func (c *Client) shutdown() {
	c.shutOnce.Do(func() { close(c.done) })
}

// deliver 非阻塞投递，连接已终止或缓冲满时丢弃
func (c *Client) deliver(msg []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.Send <- msg:
	default:
		// 缓冲满，可能连接已断开
	}
}

// Manager 管理所有在线用户的WebSocket连接
// 持有注入的事件代理，按事件携带的参与者集合过滤推送
// 同一用户仅保留最新一条连接

type Manager struct {
	clients map[uint]*Client
	lock    sync.RWMutex
	broker  *broker.Broker
}

// NewManager 创建Manager实例
func NewManager(b *broker.Broker) *Manager {
	return &Manager{
		clients: make(map[uint]*Client),
		broker:  b,
	}
}

// Run 订阅新消息主题并按成员关系分发，ctx取消时退出
func (m *Manager) Run(ctx context.Context) {
	sub := m.broker.Subscribe(broker.TopicMessageAdded)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.C():
			if !ok {
				return
			}
			event, ok := payload.(broker.MessageAddedEvent)
			if !ok {
				continue
			}
			m.dispatch(event)
		}
	}
}

// dispatch 将新消息事件推送给在线的聊天室参与者
// 发送者也会收到回显，便于多端同步
func (m *Manager) dispatch(event broker.MessageAddedEvent) {
	msg := event.Message
	data, err := json.Marshal(map[string]interface{}{
		"type":        "message_added",
		"room_id":     event.RoomID,
		"msg_id":      msg.ID,
		"sender_id":   msg.SenderID,
		"sender_type": msg.SenderType,
		"subject":     msg.Subject,
		"message":     msg.Body,
		"image_url":   msg.ImageURL,
		"timestamp":   msg.CreatedAt.Unix(),
	})
	if err != nil {
		logger.Warnf("序列化推送消息失败 msg=%d: %v", msg.ID, err)
		return
	}

	for _, pid := range event.Participants {
		m.SendToUser(pid, data)
	}
}

// AddClient 添加新连接，同一用户的旧连接被终止并替换
func (m *Manager) AddClient(userID uint, client *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if old, ok := m.clients[userID]; ok {
		old.shutdown()
		if old.Conn != nil {
			_ = old.Conn.Close()
		}
	}
	m.clients[userID] = client
}

// RemoveClient 终止连接，仅当该连接仍是用户的当前连接时从表中移除
func (m *Manager) RemoveClient(userID uint, client *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()
	client.shutdown()
	if c, ok := m.clients[userID]; ok && c == client {
		delete(m.clients, userID)
	}
}

// SendToUser 推送消息给指定用户
// 不在线或发送缓冲已满时直接丢弃，离线方从数据库历史补齐
func (m *Manager) SendToUser(userID uint, msg []byte) {
	m.lock.RLock()
	client, ok := m.clients[userID]
	m.lock.RUnlock()
	if !ok {
		return
	}
	client.deliver(msg)
}

// IsConnected 判断用户是否持有活跃连接
func (m *Manager) IsConnected(userID uint) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, ok := m.clients[userID]
	return ok
}
