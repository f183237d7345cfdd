package cache

import (
	"context"
	"fmt"
	"time"

	"school-im/config"

	"github.com/redis/go-redis/v9"
)

// Cache 聊天缓存层
// 持有注入的Redis客户端，不使用包级全局状态
// 缓存仅为加速层：任何键值均可从数据库重新推导，分歧时以数据库为准
type Cache struct {
	client       *redis.Client
	ttl          time.Duration // 最近消息/未读计数TTL
	timeout      time.Duration // 单次缓存操作超时
	presenceTTL  time.Duration // 在线状态TTL
	recentLimit  int           // 每室最近消息缓存上限
	offlineSeen  time.Duration // 离线后last_seen保留时长
}

// New 创建缓存层并测试连接
func New(cfg config.RedisConfig, chatCfg config.ChatConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		// 连接池配置
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	c := &Cache{
		client:      client,
		ttl:         chatCfg.CacheTTL,
		timeout:     chatCfg.CacheTimeout,
		presenceTTL: chatCfg.PresenceTTL,
		recentLimit: chatCfg.RecentLimit,
		offlineSeen: 24 * time.Hour,
	}
	if c.ttl <= 0 {
		c.ttl = time.Hour
	}
	if c.timeout <= 0 {
		c.timeout = 200 * time.Millisecond
	}
	if c.presenceTTL <= 0 {
		c.presenceTTL = 2 * time.Minute
	}
	if c.recentLimit <= 0 {
		c.recentLimit = 50
	}
	return c, nil
}

// Close 关闭Redis连接
func (c *Cache) Close() error {
	return c.client.Close()
}

// HealthCheck 检查Redis健康状态
func (c *Cache) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("redis连接异常: %w", err)
	}
	return nil
}

// opCtx 派生带超时的操作上下文
func (c *Cache) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// withRetry 执行缓存操作，失败时重试一次后放弃
// 每次尝试都使用独立的超时上下文
func (c *Cache) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := func() error {
		opCtx, cancel := c.opCtx(ctx)
		defer cancel()
		return op(opCtx)
	}
	if err := attempt(); err != nil {
		return attempt()
	}
	return nil
}

// 缓存keyspace约定
// unread:{userId}:{roomId} 整数未读计数
// recent:{roomId}          序列化消息的有界列表
// presence:{userId}        在线状态结构
func unreadKey(userID uint, roomID string) string {
	return fmt.Sprintf("unread:%d:%s", userID, roomID)
}

func recentKey(roomID string) string {
	return fmt.Sprintf("recent:%s", roomID)
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("presence:%d", userID)
}
