package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceData 在线状态数据
// 纯缓存驻留，无数据库兜底，缓存重启丢失可接受
type PresenceData struct {
	UserID   uint      `json:"user_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

func (c *Cache) setPresence(ctx context.Context, userID uint, online bool, ttl time.Duration) error {
	presence := PresenceData{
		UserID:   userID,
		Online:   online,
		LastSeen: time.Now(),
	}
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("序列化在线状态失败: %w", err)
	}
	return c.withRetry(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, presenceKey(userID), data, ttl).Err()
	})
}

// SetOnline 标记用户在线（带TTL，心跳刷新维持）
func (c *Cache) SetOnline(ctx context.Context, userID uint) error {
	return c.setPresence(ctx, userID, true, c.presenceTTL)
}

// SetOffline 标记用户离线并记录最近在线时间
// 离线状态保留较久，供lastSeen查询
func (c *Cache) SetOffline(ctx context.Context, userID uint) error {
	return c.setPresence(ctx, userID, false, c.offlineSeen)
}

// getPresence 读取在线状态，键不存在返回nil（未知/离线）
func (c *Cache) getPresence(ctx context.Context, userID uint) (*PresenceData, error) {
	var data string
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.client.Get(ctx, presenceKey(userID)).Result()
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("获取在线状态失败: %w", err)
	}

	var presence PresenceData
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("反序列化在线状态失败: %w", err)
	}
	return &presence, nil
}

// IsOnline 检查用户是否在线，缓存无记录视为离线
func (c *Cache) IsOnline(ctx context.Context, userID uint) (bool, error) {
	presence, err := c.getPresence(ctx, userID)
	if err != nil {
		return false, err
	}
	return presence != nil && presence.Online, nil
}

// LastSeen 获取用户最近在线时间，未知返回nil
func (c *Cache) LastSeen(ctx context.Context, userID uint) (*time.Time, error) {
	presence, err := c.getPresence(ctx, userID)
	if err != nil || presence == nil {
		return nil, err
	}
	t := presence.LastSeen
	return &t, nil
}
