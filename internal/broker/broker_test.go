package broker_test

import (
	"sync"
	"testing"
	"time"

	"school-im/internal/broker"
	"school-im/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishDeliversToSubscribers(t *testing.T) {
	b := broker.New()

	subA := b.Subscribe(broker.TopicMessageAdded)
	subB := b.Subscribe(broker.TopicMessageAdded)
	defer subA.Close()
	defer subB.Close()

	event := broker.MessageAddedEvent{
		Message:      &model.ChatMessage{ID: 1, RoomID: "r1"},
		RoomID:       "r1",
		Participants: []uint{1, 4},
	}
	b.Publish(broker.TopicMessageAdded, event)

	for _, sub := range []*broker.Subscription{subA, subB} {
		select {
		case payload := <-sub.C():
			got, ok := payload.(broker.MessageAddedEvent)
			require.True(t, ok)
			assert.Equal(t, "r1", got.RoomID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBroker_TopicsAreIsolated(t *testing.T) {
	b := broker.New()

	sub := b.Subscribe(broker.TypingTopic("r1"))
	defer sub.Close()

	b.Publish(broker.TypingTopic("r2"), broker.TypingEvent{RoomID: "r2", UserID: 1, IsTyping: true})

	select {
	case <-sub.C():
		t.Fatal("received event from another room's topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_PublishWithoutSubscribers(t *testing.T) {
	b := broker.New()
	// 无订阅者时发布不阻塞、不panic
	b.Publish(broker.TopicMessageAdded, broker.MessageAddedEvent{RoomID: "r1"})
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	b := broker.New()

	sub := b.Subscribe(broker.TopicMessageAdded)
	sub.Close()
	sub.Close()

	assert.Equal(t, 0, b.SubscriberCount(broker.TopicMessageAdded))

	// 关闭后的发布被丢弃
	b.Publish(broker.TopicMessageAdded, broker.MessageAddedEvent{RoomID: "r1"})
}

func TestBroker_ConcurrentPublish(t *testing.T) {
	b := broker.New()

	sub := b.Subscribe(broker.TypingTopic("r1"))
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Publish(broker.TypingTopic("r1"), broker.TypingEvent{RoomID: "r1", UserID: uint(n)})
		}(i)
	}
	wg.Wait()

	received := 0
	for {
		select {
		case <-sub.C():
			received++
			if received == 10 {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("expected 10 events, got %d", received)
		}
	}
}
