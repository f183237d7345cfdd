package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"school-im/internal/model"

	"github.com/redis/go-redis/v9"
)

// CachedMessage 缓存的消息结构
type CachedMessage struct {
	ID         uint      `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   uint      `json:"sender_id"`
	SenderType string    `json:"sender_type"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"message"`
	ImageURL   string    `json:"image_url,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecentLookup 最近消息缓存查询结果
// Found 为 false 表示缓存未命中，调用方必须回退数据库
type RecentLookup struct {
	Found    bool
	Messages []*model.ChatMessage
}

func toCached(msg *model.ChatMessage) CachedMessage {
	return CachedMessage{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderType: msg.SenderType,
		Subject:    msg.Subject,
		Body:       msg.Body,
		ImageURL:   msg.ImageURL,
		IsRead:     msg.IsRead,
		CreatedAt:  msg.CreatedAt,
	}
}

func fromCached(cached CachedMessage) *model.ChatMessage {
	return &model.ChatMessage{
		ID:         cached.ID,
		RoomID:     cached.RoomID,
		SenderID:   cached.SenderID,
		SenderType: cached.SenderType,
		Subject:    cached.Subject,
		Body:       cached.Body,
		ImageURL:   cached.ImageURL,
		IsRead:     cached.IsRead,
		State:      model.MessageStateActive,
		CreatedAt:  cached.CreatedAt,
	}
}

// PushRecent 将新消息加入聊天室最近消息列表头部并裁剪
// 列表顺序与数据库一致：仅在发送时前插，不做重排
func (c *Cache) PushRecent(ctx context.Context, msg *model.ChatMessage) error {
	data, err := json.Marshal(toCached(msg))
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	key := recentKey(msg.RoomID)
	return c.withRetry(ctx, func(ctx context.Context) error {
		pipe := c.client.Pipeline()
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(c.recentLimit-1))
		pipe.Expire(ctx, key, c.ttl)
		_, err := pipe.Exec(ctx)
		return err
	})
}

// GetRecent 获取聊天室最近消息（新→旧）
// 键不存在返回 Miss，调用方回退数据库
func (c *Cache) GetRecent(ctx context.Context, roomID string) (RecentLookup, error) {
	key := recentKey(roomID)

	var raw []string
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		raw, err = c.client.LRange(ctx, key, 0, int64(c.recentLimit-1)).Result()
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return RecentLookup{}, nil
		}
		return RecentLookup{}, fmt.Errorf("获取最近消息缓存失败: %w", err)
	}
	if len(raw) == 0 {
		return RecentLookup{}, nil
	}

	messages := make([]*model.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var cached CachedMessage
		if err := json.Unmarshal([]byte(item), &cached); err != nil {
			continue // 跳过无法解析的条目
		}
		messages = append(messages, fromCached(cached))
	}
	return RecentLookup{Found: true, Messages: messages}, nil
}

// PrimeRecent 用数据库查询结果整体重建最近消息列表
// 整表重写而非前插，避免打乱与数据库一致的顺序
func (c *Cache) PrimeRecent(ctx context.Context, roomID string, messages []*model.ChatMessage) error {
	key := recentKey(roomID)

	serialized := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(toCached(msg))
		if err != nil {
			continue
		}
		serialized = append(serialized, data)
	}

	return c.withRetry(ctx, func(ctx context.Context) error {
		pipe := c.client.TxPipeline()
		pipe.Del(ctx, key)
		if len(serialized) > 0 {
			// messages 为新→旧，RPush 保持该顺序
			pipe.RPush(ctx, key, serialized...)
			pipe.LTrim(ctx, key, 0, int64(c.recentLimit-1))
			pipe.Expire(ctx, key, c.ttl)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

// RemoveRecent 从最近消息列表中移除指定消息（删除消息后调用）
// 读取-过滤-重写，列表有界所以代价可控
func (c *Cache) RemoveRecent(ctx context.Context, roomID string, messageID uint) error {
	lookup, err := c.GetRecent(ctx, roomID)
	if err != nil {
		return err
	}
	if !lookup.Found {
		return nil
	}

	changed := false
	remaining := make([]*model.ChatMessage, 0, len(lookup.Messages))
	for _, msg := range lookup.Messages {
		if msg.ID == messageID {
			changed = true
			continue
		}
		remaining = append(remaining, msg)
	}
	if !changed {
		return nil
	}

	return c.PrimeRecent(ctx, roomID, remaining)
}
