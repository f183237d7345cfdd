package broker

import (
	"sync"

	"school-im/internal/model"
	"school-im/pkg/metrics"
)

// 主题约定
// messageAdded 为全局新消息主题，订阅边界按聊天室成员过滤
// typing:{roomId} 为每室输入状态主题
const TopicMessageAdded = "messageAdded"

// TypingTopic 构造聊天室输入状态主题名
func TypingTopic(roomID string) string {
	return "typing:" + roomID
}

// MessageAddedEvent 新消息事件
// Participants 携带聊天室参与者集合，供订阅边界做成员过滤
type MessageAddedEvent struct {
	Message      *model.ChatMessage
	RoomID       string
	Participants []uint
}

// TypingEvent 输入状态事件，纯瞬态广播，无持久化
type TypingEvent struct {
	RoomID   string `json:"room_id"`
	UserID   uint   `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// Subscription 一个订阅者持有的事件流
type Subscription struct {
	topic  string
	ch     chan interface{}
	broker *Broker
	once   sync.Once
}

// C 返回只读事件通道
func (s *Subscription) C() <-chan interface{} {
	return s.ch
}

// Close 取消订阅并关闭通道，可安全重复调用
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.ch)
	})
}

// Broker 进程内发布订阅
// 显式构造并注入，不使用包级单例
// 投递语义：尽力而为、每订阅者至多一次，缓冲满即丢弃
type Broker struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	bufSize int
}

// New 创建事件代理
func New() *Broker {
	return &Broker{
		subs:    make(map[string]map[*Subscription]struct{}),
		bufSize: 256,
	}
}

// Subscribe 订阅主题
func (b *Broker) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		topic:  topic,
		ch:     make(chan interface{}, b.bufSize),
		broker: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	return sub
}

// Publish 向主题的全部订阅者投递事件
// 绝不阻塞发布方：订阅者缓冲满时丢弃该订阅者的本次事件
func (b *Broker) Publish(topic string, payload interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[topic] {
		select {
		case sub.ch <- payload:
		default:
			// 慢订阅者不得拖慢发送路径
			metrics.FanoutDropped.Inc()
		}
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.topic)
		}
	}
}

// SubscriberCount 返回主题当前订阅者数量（测试与诊断用）
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
