package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// UnreadEntry 未读计数键解析结果（对账任务使用）
type UnreadEntry struct {
	UserID uint
	RoomID string
}

// IncrUnread 原子递增用户在某聊天室的未读计数
// 使用INCR而非读-改-写，并发发送不丢失增量
func (c *Cache) IncrUnread(ctx context.Context, userID uint, roomID string) error {
	key := unreadKey(userID, roomID)
	return c.withRetry(ctx, func(ctx context.Context) error {
		pipe := c.client.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, c.ttl)
		_, err := pipe.Exec(ctx)
		return err
	})
}

// decrUnreadScript 脚本内完成递减与归零删除
// 键不存在时不递减，任何中间状态都不会暴露负计数
var decrUnreadScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
local v = redis.call('DECR', KEYS[1])
if v <= 0 then
	redis.call('DEL', KEYS[1])
	return 0
end
return v
`)

// DecrUnread 原子递减未读计数，不低于0
func (c *Cache) DecrUnread(ctx context.Context, userID uint, roomID string) error {
	key := unreadKey(userID, roomID)
	return c.withRetry(ctx, func(ctx context.Context) error {
		return decrUnreadScript.Run(ctx, c.client, []string{key}).Err()
	})
}

// GetUnread 获取未读计数
// found 为 false 表示缓存无此键，调用方需从数据库推导
func (c *Cache) GetUnread(ctx context.Context, userID uint, roomID string) (int64, bool, error) {
	key := unreadKey(userID, roomID)

	var result string
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		result, err = c.client.Get(ctx, key).Result()
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("获取未读计数失败: %w", err)
	}

	count, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("解析未读计数失败: %w", err)
	}
	return count, true, nil
}

// SetUnread 设置未读计数（数据库推导后回填，或对账修复）
func (c *Cache) SetUnread(ctx context.Context, userID uint, roomID string, count int64) error {
	key := unreadKey(userID, roomID)
	return c.withRetry(ctx, func(ctx context.Context) error {
		if count <= 0 {
			return c.client.Del(ctx, key).Err()
		}
		return c.client.Set(ctx, key, count, c.ttl).Err()
	})
}

// ClearUnread 清零用户在某聊天室的未读计数（整室已读后调用）
func (c *Cache) ClearUnread(ctx context.Context, userID uint, roomID string) error {
	return c.withRetry(ctx, func(ctx context.Context) error {
		return c.client.Del(ctx, unreadKey(userID, roomID)).Err()
	})
}

// scanUnreadKeys 使用SCAN非阻塞遍历匹配的未读计数key
func (c *Cache) scanUnreadKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		ks, next, err := c.client.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("遍历未读计数key失败: %w", err)
		}
		keys = append(keys, ks...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// SumUnread 汇总用户在所有聊天室的未读计数
func (c *Cache) SumUnread(ctx context.Context, userID uint) (int64, error) {
	pattern := fmt.Sprintf("unread:%d:*", userID)

	keys, err := c.scanUnreadKeys(ctx, pattern)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	// 批量获取所有计数
	pipe := c.client.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, pipe.Get(ctx, key))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("批量获取未读计数失败: %w", err)
	}

	var total int64
	for _, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			continue
		}
		if count, err := strconv.ParseInt(val, 10, 64); err == nil && count > 0 {
			total += count
		}
	}
	return total, nil
}

// UnreadRoomIDs 返回用户存在未读消息的聊天室ID列表
func (c *Cache) UnreadRoomIDs(ctx context.Context, userID uint) ([]string, error) {
	prefix := fmt.Sprintf("unread:%d:", userID)

	keys, err := c.scanUnreadKeys(ctx, prefix+"*")
	if err != nil {
		return nil, err
	}

	roomIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		count, err := c.client.Get(ctx, key).Int64()
		if err != nil || count <= 0 {
			continue
		}
		roomIDs = append(roomIDs, strings.TrimPrefix(key, prefix))
	}
	return roomIDs, nil
}

// AllUnreadEntries 遍历全部未读计数键并解析（对账任务使用）
func (c *Cache) AllUnreadEntries(ctx context.Context) ([]UnreadEntry, error) {
	keys, err := c.scanUnreadKeys(ctx, "unread:*")
	if err != nil {
		return nil, err
	}

	entries := make([]UnreadEntry, 0, len(keys))
	for _, key := range keys {
		rest := strings.TrimPrefix(key, "unread:")
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			continue
		}
		userID, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			continue
		}
		entries = append(entries, UnreadEntry{UserID: uint(userID), RoomID: parts[1]})
	}
	return entries, nil
}
