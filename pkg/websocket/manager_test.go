package websocket

import (
	"testing"
	"time"

	"school-im/internal/broker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ReplaceConnection(t *testing.T) {
	m := NewManager(broker.New())

	first := NewClient(7, nil)
	m.AddClient(7, first)

	second := NewClient(7, nil)
	m.AddClient(7, second)

	// 被替换的旧连接收到终止通知，迟到的投递被丢弃而不是panic
	select {
	case <-first.Done():
	default:
		t.Fatal("replaced client was not shut down")
	}
	first.deliver([]byte("late"))

	m.SendToUser(7, []byte("hello"))
	select {
	case msg := <-second.Send:
		assert.Equal(t, "hello", string(msg))
	default:
		t.Fatal("current client did not receive the message")
	}
	select {
	case <-first.Send:
		t.Fatal("replaced client must not receive new messages")
	default:
	}
}

func TestManager_RemoveClient(t *testing.T) {
	m := NewManager(broker.New())

	client := NewClient(3, nil)
	m.AddClient(3, client)
	m.RemoveClient(3, client)

	assert.False(t, m.IsConnected(3))

	// 移除后推送与投递均为无害的空操作
	m.SendToUser(3, []byte("x"))
	client.deliver([]byte("x"))

	// 旧连接断开时不影响同一用户的新连接
	current := NewClient(3, nil)
	stale := NewClient(3, nil)
	m.AddClient(3, current)
	m.RemoveClient(3, stale)
	assert.True(t, m.IsConnected(3))
}

func TestForwardTyping_DrainsAfterShutdown(t *testing.T) {
	b := broker.New()
	client := NewClient(2, nil)
	sub := b.Subscribe(broker.TypingTopic("r1"))

	// 事件先于终止进入订阅缓冲
	b.Publish(broker.TypingTopic("r1"), broker.TypingEvent{RoomID: "r1", UserID: 1, IsTyping: true})
	client.shutdown()
	sub.Close()

	done := make(chan struct{})
	go func() {
		(&Handler{}).forwardTyping(client, 2, sub)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwardTyping did not drain the closed subscription")
	}

	select {
	case <-client.Send:
		t.Fatal("event must be dropped after the client shut down")
	default:
	}
}

func TestForwardTyping_DeliversToWatcher(t *testing.T) {
	b := broker.New()
	client := NewClient(2, nil)
	sub := b.Subscribe(broker.TypingTopic("r1"))
	defer sub.Close()

	go (&Handler{}).forwardTyping(client, 2, sub)

	// 自己的事件被跳过，对方的事件被转发
	b.Publish(broker.TypingTopic("r1"), broker.TypingEvent{RoomID: "r1", UserID: 2, IsTyping: true})
	b.Publish(broker.TypingTopic("r1"), broker.TypingEvent{RoomID: "r1", UserID: 1, IsTyping: true})

	select {
	case msg := <-client.Send:
		require.Contains(t, string(msg), `"user_id":1`)
	case <-time.After(time.Second):
		t.Fatal("typing event was not forwarded")
	}
}
